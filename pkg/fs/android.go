package fs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gautamajay52/adbclone/pkg/logging"
)

// AndroidFS is the device-side backend. Metadata operations are text
// scraped over the persistent shell session; the bytes of a push go
// through a dedicated `adb push` subprocess.
type AndroidFS struct {
	dev    *Device
	sh     shellRunner
	logger *logging.Logger
}

// shellRunner lets tests script device replies.
type shellRunner interface {
	Exec(args ...string) ([]string, error)
	Close() error
}

// NewAndroidFS opens the shell session for the device backend.
func NewAndroidFS(dev *Device, logger *logging.Logger) (*AndroidFS, error) {
	sh, err := NewShell(dev)
	if err != nil {
		return nil, err
	}
	return &AndroidFS{dev: dev, sh: sh, logger: logger}, nil
}

var (
	daemonStarting = regexp.MustCompile(`^\* daemon not running; starting now at tcp:[0-9]+$`)
	daemonStarted  = regexp.MustCompile(`^\* daemon started successfully$`)

	realpathNoSuchFile    = regexp.MustCompile(`^realpath: .*: No such file or directory$`)
	realpathNotADirectory = regexp.MustCompile(`^realpath: .*: Not a directory$`)
)

// TestConnection runs a no-op through the shell. The adb daemon may
// announce itself on first contact; those banners are tolerated. Any other
// reply, for example "adb: no devices/emulators found", fails the check.
func (a *AndroidFS) TestConnection() error {
	lines, err := a.sh.Exec(":")
	if err != nil {
		return err
	}
	for _, line := range lines {
		if daemonStarting.MatchString(line) || daemonStarted.MatchString(line) {
			a.logger.Debug("adb daemon banner", "line", line)
			continue
		}
		return fmt.Errorf("connection test: %w: %s", ErrConnection, line)
	}
	return nil
}

func (a *AndroidFS) Lstat(p string) (FileMeta, error) {
	lines, err := a.sh.Exec("ls", "-lad", p)
	if err != nil {
		return FileMeta{}, err
	}
	if len(lines) == 0 {
		return FileMeta{}, fmt.Errorf("lstat %s: empty reply: %w", p, ErrProtocol)
	}
	meta, err := parseListingLine(lines[0])
	if err != nil {
		return FileMeta{}, fmt.Errorf("lstat %s: %w", p, err)
	}
	// `ls -d` prints the path itself, not a child name.
	meta.Name = path.Base(a.Clean(p))
	return meta, nil
}

func (a *AndroidFS) ReadDir(p string) ([]FileMeta, error) {
	lines, err := a.sh.Exec("ls", "-la", p)
	if err != nil {
		return nil, err
	}
	var metas []FileMeta
	for _, line := range lines {
		if isTotalHeader(line) {
			continue
		}
		meta, err := parseListingLine(line)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", p, err)
		}
		if meta.Name == "." || meta.Name == ".." {
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// runSilent executes a command that legitimately prints nothing; a reply
// line means the device reported a problem the grammar has no place for.
func (a *AndroidFS) runSilent(args ...string) error {
	lines, err := a.sh.Exec(args...)
	if err != nil {
		return err
	}
	if len(lines) > 0 {
		return fmt.Errorf("%s: %w: %s", strings.Join(args, " "), ErrProtocol, lines[0])
	}
	return nil
}

func (a *AndroidFS) Unlink(p string) error {
	return a.runSilent("rm", p)
}

func (a *AndroidFS) RemoveAll(p string) error {
	return a.runSilent("rm", "-r", p)
}

func (a *AndroidFS) MkdirAll(p string) error {
	return a.runSilent("mkdir", "-p", p)
}

// touchLayout is the [[CC]YY]MMDDhhmm[.ss] form toybox touch accepts.
const touchLayout = "200601021504"

func (a *AndroidFS) Chtimes(p string, atime, mtime time.Time) error {
	return a.runSilent("touch",
		"-at", atime.Format(touchLayout),
		"-mt", mtime.Format(touchLayout),
		p)
}

func (a *AndroidFS) RealPath(p string) (string, error) {
	lines, err := a.sh.Exec("realpath", p)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("realpath %s: empty reply: %w", p, ErrProtocol)
	}
	line := lines[0]
	switch {
	case realpathNoSuchFile.MatchString(line):
		return "", fmt.Errorf("realpath %s: %w", p, ErrNotExist)
	case realpathNotADirectory.MatchString(line):
		return "", fmt.Errorf("realpath %s: %w", p, ErrNotADirectory)
	}
	return line, nil
}

// Device paths always speak "/"; stray Windows separators from user input
// are converted before use.
func (a *AndroidFS) Join(base, leaf string) string {
	return path.Join(deviceSlash(base), deviceSlash(leaf))
}

func (a *AndroidFS) Split(p string) (string, string) {
	q := deviceSlash(p)
	return path.Dir(q), path.Base(q)
}

func (a *AndroidFS) Clean(p string) string {
	return path.Clean(deviceSlash(p))
}

func deviceSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// TransferFile pushes one file from the host into the device filesystem.
func (a *AndroidFS) TransferFile(ctx context.Context, source, destination string, size int64, advance func(int64)) error {
	cmd := a.dev.CommandContext(ctx, "push", source, destination)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	a.logger.Debug("adb push", "source", source, "destination", destination)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("adb push %s: %w: %v", source, ErrTransfer, err)
	}

	stop := make(chan struct{})
	var polled int64
	var wg sync.WaitGroup
	if advance != nil && size > largeFileThreshold {
		wg.Add(1)
		go func() {
			defer wg.Done()
			polled = pollSize(stop, func() (int64, error) {
				meta, err := a.Lstat(destination)
				if err != nil {
					return 0, err
				}
				return meta.Size, nil
			}, advance)
		}()
	}
	err := cmd.Wait()
	close(stop)
	wg.Wait()

	if ctx.Err() != nil {
		a.logger.Warn("removing partial file", "path", destination)
		if rmErr := a.Unlink(destination); rmErr != nil {
			a.logger.Warn("could not remove partial file", "path", destination, "err", rmErr)
		}
		return fmt.Errorf("push of %s interrupted: %w", source, ctx.Err())
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("adb push %s: %w: %s", source, ErrTransfer, msg)
	}
	if advance != nil {
		if rest := size - polled; rest > 0 {
			advance(rest)
		}
	}
	return nil
}

func (a *AndroidFS) Close() error {
	return a.sh.Close()
}
