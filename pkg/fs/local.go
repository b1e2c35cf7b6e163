package fs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gautamajay52/adbclone/pkg/logging"
)

// LocalFS is the host-side backend. It still needs the device handle: the
// bytes of a pull land here through `adb pull`.
type LocalFS struct {
	dev    *Device
	logger *logging.Logger
}

// NewLocalFS creates the local backend.
func NewLocalFS(dev *Device, logger *logging.Logger) *LocalFS {
	return &LocalFS{dev: dev, logger: logger}
}

func (l *LocalFS) Lstat(p string) (FileMeta, error) {
	info, err := os.Lstat(p)
	if err != nil {
		return FileMeta{}, wrapOSError("lstat", p, err)
	}
	return localMeta(filepath.Base(p), info), nil
}

func (l *LocalFS) ReadDir(p string) ([]FileMeta, error) {
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, wrapOSError("read dir", p, err)
	}
	metas := make([]FileMeta, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// The entry vanished between listing and stat.
			l.logger.Warn("skipping vanished entry", "path", filepath.Join(p, entry.Name()), "err", err)
			continue
		}
		metas = append(metas, localMeta(entry.Name(), info))
	}
	return metas, nil
}

func (l *LocalFS) Unlink(p string) error {
	err := os.Remove(p)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return wrapOSError("unlink", p, err)
}

func (l *LocalFS) RemoveAll(p string) error {
	return wrapOSError("remove", p, os.RemoveAll(p))
}

func (l *LocalFS) MkdirAll(p string) error {
	return wrapOSError("mkdir", p, os.MkdirAll(p, 0o755))
}

func (l *LocalFS) Chtimes(p string, atime, mtime time.Time) error {
	return wrapOSError("set times", p, os.Chtimes(p, atime, mtime))
}

func (l *LocalFS) RealPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", wrapOSError("resolve", p, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", wrapOSError("resolve", p, err)
	}
	return resolved, nil
}

func (l *LocalFS) Join(base, leaf string) string {
	return filepath.Join(base, leaf)
}

func (l *LocalFS) Split(p string) (string, string) {
	return filepath.Dir(p), filepath.Base(p)
}

func (l *LocalFS) Clean(p string) string {
	return filepath.Clean(p)
}

// TransferFile pulls one file from the device into the local filesystem.
func (l *LocalFS) TransferFile(ctx context.Context, source, destination string, size int64, advance func(int64)) error {
	if err := l.MkdirAll(filepath.Dir(destination)); err != nil {
		return err
	}
	cmd := l.dev.CommandContext(ctx, "pull", source, destination)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	l.logger.Debug("adb pull", "source", source, "destination", destination)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("adb pull %s: %w: %v", source, ErrTransfer, err)
	}

	stop := make(chan struct{})
	var polled int64
	var wg sync.WaitGroup
	if advance != nil && size > largeFileThreshold {
		wg.Add(1)
		go func() {
			defer wg.Done()
			polled = pollSize(stop, func() (int64, error) {
				info, err := os.Lstat(destination)
				if err != nil {
					return 0, err
				}
				return info.Size(), nil
			}, advance)
		}()
	}
	err := cmd.Wait()
	close(stop)
	wg.Wait()

	if ctx.Err() != nil {
		l.logger.Warn("removing partial file", "path", destination)
		if rmErr := l.Unlink(destination); rmErr != nil {
			l.logger.Warn("could not remove partial file", "path", destination, "err", rmErr)
		}
		return fmt.Errorf("pull of %s interrupted: %w", source, ctx.Err())
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("adb pull %s: %w: %s", source, ErrTransfer, msg)
	}
	if advance != nil {
		if rest := size - polled; rest > 0 {
			advance(rest)
		}
	}
	return nil
}

func (l *LocalFS) Close() error {
	return nil
}

func localMeta(name string, info os.FileInfo) FileMeta {
	kind := KindOther
	switch mode := info.Mode(); {
	case mode.IsRegular():
		kind = KindRegular
	case mode.IsDir():
		kind = KindDirectory
	case mode&os.ModeSymlink != 0:
		kind = KindSymlink
	}
	meta := FileMeta{
		Name:       name,
		Kind:       kind,
		ModTime:    info.ModTime(),
		AccessTime: accessTime(info),
	}
	if kind == KindRegular {
		meta.Size = info.Size()
	}
	return meta
}
