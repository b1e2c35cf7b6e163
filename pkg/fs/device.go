package fs

import (
	"context"
	"os/exec"
)

// Device holds the adb invocation shared by the shell channel and the
// push/pull subprocesses: the binary name plus pass-through arguments
// (single-letter flags and option/value pairs already expanded).
type Device struct {
	Bin  string
	Args []string
}

// NewDevice expands CLI-style pass-through arguments into an invocation.
// flags become "-F"; options are "KEY=VALUE" pairs becoming "-KEY VALUE".
func NewDevice(bin string, flags []string, options [][2]string) *Device {
	if bin == "" {
		bin = "adb"
	}
	d := &Device{Bin: bin}
	for _, f := range flags {
		d.Args = append(d.Args, "-"+f)
	}
	for _, opt := range options {
		d.Args = append(d.Args, "-"+opt[0], opt[1])
	}
	return d
}

// Command builds an adb subprocess not bound to any context (the persistent
// shell session, which is shut down explicitly).
func (d *Device) Command(args ...string) *exec.Cmd {
	return exec.Command(d.Bin, append(append([]string{}, d.Args...), args...)...)
}

// CommandContext builds an adb subprocess killed when ctx is cancelled
// (push/pull transfers).
func (d *Device) CommandContext(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, d.Bin, append(append([]string{}, d.Args...), args...)...)
}
