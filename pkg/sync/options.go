package sync

import (
	"fmt"
)

// Direction selects which side of the cable is the source.
type Direction string

const (
	// DirectionPush copies computer to device.
	DirectionPush Direction = "push"
	// DirectionPull copies device to computer.
	DirectionPull Direction = "pull"
)

// Options configures one sync run.
type Options struct {
	Direction Direction
	// Local and Android are the two endpoints as the user typed them; a
	// trailing separator on the source side changes the nesting rules.
	Local   string
	Android string

	DryRun         bool
	CopyLinks      bool
	Excludes       []string
	Delete         bool
	DeleteExcluded bool
	Force          bool
	Compare        CompareMode
	ShowProgress   bool
	ShowTree       bool

	ADBBin     string
	ADBFlags   []string
	ADBOptions [][2]string

	LogLevel string
	// LogFile duplicates the log stream into a file when set.
	LogFile string
}

// Validate fills defaults and rejects nonsense.
func (o *Options) Validate() error {
	switch o.Direction {
	case DirectionPush, DirectionPull:
	default:
		return fmt.Errorf("unknown direction %q", o.Direction)
	}
	if o.Local == "" || o.Android == "" {
		return fmt.Errorf("both a local and an android path are required")
	}
	switch o.Compare {
	case "":
		o.Compare = CompareMtime
	case CompareMtime, CompareMtimeSize:
	default:
		return fmt.Errorf("unknown comparison policy %q", o.Compare)
	}
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	return nil
}
