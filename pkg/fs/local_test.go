package fs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func newTestLocalFS(t *testing.T) *LocalFS {
	t.Helper()
	return NewLocalFS(NewDevice("", nil, nil), discardLogger(t))
}

func TestLocalLstatKinds(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(file, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	l := newTestLocalFS(t)
	meta, err := l.Lstat(file)
	if err != nil {
		t.Fatalf("lstat file: %v", err)
	}
	if meta.Kind != KindRegular || meta.Size != 5 || meta.Name != "note.txt" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	meta, err = l.Lstat(sub)
	if err != nil {
		t.Fatalf("lstat dir: %v", err)
	}
	if meta.Kind != KindDirectory {
		t.Fatalf("unexpected kind %s", meta.Kind)
	}

	if runtime.GOOS != "windows" {
		link := filepath.Join(dir, "link")
		if err := os.Symlink(file, link); err != nil {
			t.Fatalf("symlink: %v", err)
		}
		meta, err = l.Lstat(link)
		if err != nil {
			t.Fatalf("lstat link: %v", err)
		}
		if meta.Kind != KindSymlink {
			t.Fatalf("lstat should not follow the link, got %s", meta.Kind)
		}
	}
}

func TestLocalLstatErrorMapping(t *testing.T) {
	dir := t.TempDir()
	l := newTestLocalFS(t)
	if _, err := l.Lstat(filepath.Join(dir, "missing")); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := l.Lstat(filepath.Join(file, "below")); !Skippable(err) {
		t.Fatalf("path through a file should be skippable, got %v", err)
	}
}

func TestLocalReadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	l := newTestLocalFS(t)
	metas, err := l.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("unexpected entries: %+v", metas)
	}
}

func TestLocalUnlinkToleratesMissing(t *testing.T) {
	l := newTestLocalFS(t)
	if err := l.Unlink(filepath.Join(t.TempDir(), "nothing")); err != nil {
		t.Fatalf("unlink of a missing file should succeed: %v", err)
	}
}

func TestLocalChtimes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "stamped")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := newTestLocalFS(t)
	stamp := time.Date(2020, 6, 1, 12, 30, 0, 0, time.Local)
	if err := l.Chtimes(file, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	meta, err := l.Lstat(file)
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}
	if !meta.ModTime.Equal(stamp) {
		t.Fatalf("mtime not applied: %s", meta.ModTime)
	}
}

func TestLocalRealPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	link := filepath.Join(dir, "alias")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	l := newTestLocalFS(t)
	resolved, err := l.RealPath(link)
	if err != nil {
		t.Fatalf("realpath: %v", err)
	}
	resolvedTarget, err := l.RealPath(target)
	if err != nil {
		t.Fatalf("realpath target: %v", err)
	}
	if resolved != resolvedTarget {
		t.Fatalf("link should resolve to its target: %q vs %q", resolved, resolvedTarget)
	}
	if _, err := l.RealPath(filepath.Join(dir, "missing")); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}
