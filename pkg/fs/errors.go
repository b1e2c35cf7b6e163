package fs

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// Sentinel errors shared by both backends. Local OS errors are mapped onto
// these so callers never branch on backend type.
var (
	ErrNotExist      = errors.New("no such file or directory")
	ErrNotADirectory = errors.New("not a directory")
	ErrPermission    = errors.New("permission denied")

	// ErrProtocol marks device output no grammar accounts for. Further
	// parsing of the stream would be unsound, so it is always fatal.
	ErrProtocol = errors.New("unrecognized device output")

	// ErrConnection marks a failed health check or a broken shell stream.
	ErrConnection = errors.New("device connection failed")

	// ErrTransfer marks a non-zero exit from the push/pull subprocess.
	ErrTransfer = errors.New("transfer failed")
)

// Skippable reports whether an error is tolerable at per-child granularity
// during a snapshot walk (the entry vanished or became unreadable mid-walk).
func Skippable(err error) bool {
	return errors.Is(err, ErrNotExist) ||
		errors.Is(err, ErrNotADirectory) ||
		errors.Is(err, ErrPermission)
}

// wrapOSError rewraps a local filesystem error with the operation, the path
// and the matching sentinel. Unclassified errors pass through wrapped.
func wrapOSError(op, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%s %s: %w", op, path, ErrNotExist)
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%s %s: %w", op, path, ErrNotADirectory)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%s %s: %w", op, path, ErrPermission)
	default:
		return fmt.Errorf("%s %s: %w", op, path, err)
	}
}
