package fs

import (
	"context"
	"time"
)

// Kind classifies a filesystem entry.
type Kind int

const (
	KindRegular Kind = iota
	KindDirectory
	KindSymlink
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "special file"
	}
}

// FileMeta describes one filesystem entry. Remote entries are synthesized
// from listing text: their access time mirrors the modify time and symlink
// entries carry an empty Name because the listing cannot separate a link's
// name from its target.
type FileMeta struct {
	Name       string
	Kind       Kind
	Size       int64
	ModTime    time.Time
	AccessTime time.Time
}

// PathOps are the pure path functions of a backend. The local backend uses
// the host's conventions; the device backend always speaks "/".
type PathOps interface {
	Join(base, leaf string) string
	Split(path string) (dir, base string)
	Clean(path string) string
}

// FileSystem is the capability surface the sync pipeline runs against,
// implemented by LocalFS and AndroidFS. Lstat never follows the final
// symlink component. ReadDir lists a directory without "." and ".." and
// costs one device round trip on the remote side. TransferFile copies
// bytes into this filesystem from the counterpart via the device's opaque
// push/pull primitive; advance, when non-nil, receives byte deltas for
// progress.
type FileSystem interface {
	PathOps
	Lstat(path string) (FileMeta, error)
	ReadDir(path string) ([]FileMeta, error)
	Unlink(path string) error
	RemoveAll(path string) error
	MkdirAll(path string) error
	Chtimes(path string, atime, mtime time.Time) error
	RealPath(path string) (string, error)
	TransferFile(ctx context.Context, source, destination string, size int64, advance func(int64)) error
	Close() error
}

const (
	// Transfers larger than this are watched by polling the destination size.
	largeFileThreshold = 30 * 1024 * 1024
	pollDelay          = 1 * time.Second
	pollInterval       = 500 * time.Millisecond
)

// pollSize periodically probes the destination size while a transfer runs,
// feeding deltas to advance. It tolerates the destination not existing yet
// and returns the number of bytes reported so the caller can top up the
// remainder. Stops when stop is closed.
func pollSize(stop <-chan struct{}, probe func() (int64, error), advance func(int64)) int64 {
	var reported int64
	select {
	case <-stop:
		return reported
	case <-time.After(pollDelay):
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return reported
		case <-ticker.C:
			size, err := probe()
			if err != nil {
				continue
			}
			if size > reported {
				advance(size - reported)
				reported = size
			}
		}
	}
}
