package sync

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gautamajay52/adbclone/pkg/fs"
)

// memFS is the in-memory backend shared by the package tests: a path-keyed
// entry table plus an operation log for asserting order and dry-run
// behavior. Paths use "/" conventions.
type memFS struct {
	entries  map[string]memEntry
	links    map[string]string // symlink path -> target
	ops      []string
	failPush map[string]error
	failList map[string]error
}

type memEntry struct {
	kind fs.Kind
	size int64
	mod  time.Time
	acc  time.Time
}

func newMemFS() *memFS {
	return &memFS{
		entries:  make(map[string]memEntry),
		links:    make(map[string]string),
		failPush: make(map[string]error),
		failList: make(map[string]error),
	}
}

func (m *memFS) addFile(p string, size int64, mod time.Time) {
	m.entries[path.Clean(p)] = memEntry{kind: fs.KindRegular, size: size, mod: mod, acc: mod}
}

func (m *memFS) addDir(p string, mod time.Time) {
	m.entries[path.Clean(p)] = memEntry{kind: fs.KindDirectory, mod: mod, acc: mod}
}

func (m *memFS) addLink(p, target string) {
	m.entries[path.Clean(p)] = memEntry{kind: fs.KindSymlink, mod: time.Unix(0, 0)}
	m.links[path.Clean(p)] = target
}

func (m *memFS) addSpecial(p string) {
	m.entries[path.Clean(p)] = memEntry{kind: fs.KindOther, mod: time.Unix(0, 0)}
}

func (m *memFS) Join(base, leaf string) string { return path.Join(base, leaf) }

func (m *memFS) Split(p string) (string, string) { return path.Dir(p), path.Base(p) }

func (m *memFS) Clean(p string) string { return path.Clean(p) }

func (m *memFS) Lstat(p string) (fs.FileMeta, error) {
	e, ok := m.entries[path.Clean(p)]
	if !ok {
		return fs.FileMeta{}, fmt.Errorf("lstat %s: %w", p, fs.ErrNotExist)
	}
	return fs.FileMeta{
		Name:       path.Base(path.Clean(p)),
		Kind:       e.kind,
		Size:       e.size,
		ModTime:    e.mod,
		AccessTime: e.acc,
	}, nil
}

func (m *memFS) ReadDir(p string) ([]fs.FileMeta, error) {
	dir := path.Clean(p)
	if err, ok := m.failList[dir]; ok {
		return nil, err
	}
	e, ok := m.entries[dir]
	if !ok {
		return nil, fmt.Errorf("list %s: %w", p, fs.ErrNotExist)
	}
	if e.kind != fs.KindDirectory {
		return nil, fmt.Errorf("list %s: %w", p, fs.ErrNotADirectory)
	}
	var names []string
	for candidate := range m.entries {
		if path.Dir(candidate) == dir && candidate != dir {
			names = append(names, path.Base(candidate))
		}
	}
	sort.Strings(names)
	metas := make([]fs.FileMeta, 0, len(names))
	for _, name := range names {
		meta, err := m.Lstat(path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func (m *memFS) Unlink(p string) error {
	m.ops = append(m.ops, "unlink "+path.Clean(p))
	delete(m.entries, path.Clean(p))
	return nil
}

func (m *memFS) RemoveAll(p string) error {
	clean := path.Clean(p)
	m.ops = append(m.ops, "removeall "+clean)
	for candidate := range m.entries {
		if candidate == clean || strings.HasPrefix(candidate, clean+"/") {
			delete(m.entries, candidate)
		}
	}
	return nil
}

func (m *memFS) MkdirAll(p string) error {
	m.ops = append(m.ops, "mkdirall "+path.Clean(p))
	m.addDir(p, time.Unix(0, 0))
	return nil
}

func (m *memFS) Chtimes(p string, atime, mtime time.Time) error {
	m.ops = append(m.ops, "chtimes "+path.Clean(p))
	e, ok := m.entries[path.Clean(p)]
	if !ok {
		return fmt.Errorf("chtimes %s: %w", p, fs.ErrNotExist)
	}
	e.acc, e.mod = atime, mtime
	m.entries[path.Clean(p)] = e
	return nil
}

func (m *memFS) RealPath(p string) (string, error) {
	clean := path.Clean(p)
	if target, ok := m.links[clean]; ok {
		if _, exists := m.entries[path.Clean(target)]; !exists {
			return "", fmt.Errorf("realpath %s: %w", p, fs.ErrNotExist)
		}
		return path.Clean(target), nil
	}
	if _, ok := m.entries[clean]; !ok {
		return "", fmt.Errorf("realpath %s: %w", p, fs.ErrNotExist)
	}
	return clean, nil
}

func (m *memFS) TransferFile(ctx context.Context, source, destination string, size int64, advance func(int64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.ops = append(m.ops, fmt.Sprintf("transfer %s -> %s", path.Clean(source), path.Clean(destination)))
	if err, ok := m.failPush[path.Clean(destination)]; ok {
		return err
	}
	m.addFile(destination, size, time.Unix(0, 0))
	if advance != nil {
		advance(size)
	}
	return nil
}

func (m *memFS) Close() error { return nil }
