package fs

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gautamajay52/adbclone/pkg/logging"
)

// fakeShell replays scripted replies keyed by the joined command words. A
// command with no scripted reply succeeds silently.
type fakeShell struct {
	replies map[string][]string
	calls   []string
	execErr error
	closed  bool
}

func (f *fakeShell) Exec(args ...string) ([]string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	if f.execErr != nil {
		return nil, f.execErr
	}
	return f.replies[key], nil
}

func (f *fakeShell) Close() error {
	f.closed = true
	return nil
}

func discardLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New("none", io.Discard)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return logger
}

func newTestAndroidFS(t *testing.T, sh *fakeShell) *AndroidFS {
	t.Helper()
	return &AndroidFS{dev: NewDevice("", nil, nil), sh: sh, logger: discardLogger(t)}
}

func TestAndroidLstat(t *testing.T) {
	sh := &fakeShell{replies: map[string][]string{
		"ls -lad /sdcard/DCIM": {"drwxrwx--x 2 root sdcard_rw 4096 2016-07-14 21:41 /sdcard/DCIM"},
	}}
	a := newTestAndroidFS(t, sh)
	meta, err := a.Lstat("/sdcard/DCIM")
	if err != nil {
		t.Fatalf("lstat failed: %v", err)
	}
	if meta.Kind != KindDirectory {
		t.Fatalf("unexpected kind %s", meta.Kind)
	}
	if meta.Name != "DCIM" {
		t.Fatalf("name should come from the path, got %q", meta.Name)
	}
}

func TestAndroidLstatNotFound(t *testing.T) {
	sh := &fakeShell{replies: map[string][]string{
		"ls -lad /sdcard/missing": {"ls: /sdcard/missing: No such file or directory"},
	}}
	a := newTestAndroidFS(t, sh)
	if _, err := a.Lstat("/sdcard/missing"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestAndroidLstatEmptyReply(t *testing.T) {
	a := newTestAndroidFS(t, &fakeShell{})
	if _, err := a.Lstat("/sdcard"); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestAndroidReadDir(t *testing.T) {
	sh := &fakeShell{replies: map[string][]string{
		"ls -la /sdcard": {
			"total 24",
			"drwxrwx--x 4 root sdcard_rw 4096 2016-07-14 21:41 .",
			"drwxrwx--x 4 root sdcard_rw 4096 2016-07-14 21:41 ..",
			"drwxrwx--x 2 root sdcard_rw 4096 2016-07-14 21:41 DCIM",
			"-rw-rw---- 1 root sdcard_rw 13 2016-07-14 21:41 b.txt",
			"lrwxrwxrwx 1 root root 21 2023-01-01 00:00 sdcard -> /storage/self/primary",
		},
	}}
	a := newTestAndroidFS(t, sh)
	metas, err := a.ReadDir("/sdcard")
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("dot entries should be dropped, got %+v", metas)
	}
	if metas[0].Name != "DCIM" || metas[1].Name != "b.txt" {
		t.Fatalf("unexpected entries: %+v", metas)
	}
	if metas[2].Kind != KindSymlink || metas[2].Name != "" {
		t.Fatalf("symlink entry should survive nameless: %+v", metas[2])
	}
}

func TestAndroidReadDirUnrecognizedLine(t *testing.T) {
	sh := &fakeShell{replies: map[string][]string{
		"ls -la /sdcard": {"ls: invalid option -- z"},
	}}
	a := newTestAndroidFS(t, sh)
	if _, err := a.ReadDir("/sdcard"); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestAndroidMutationsExpectSilence(t *testing.T) {
	sh := &fakeShell{}
	a := newTestAndroidFS(t, sh)
	if err := a.Unlink("/sdcard/b.txt"); err != nil {
		t.Fatalf("unlink failed: %v", err)
	}
	if err := a.RemoveAll("/sdcard/DCIM"); err != nil {
		t.Fatalf("remove all failed: %v", err)
	}
	if err := a.MkdirAll("/sdcard/new dir"); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	want := []string{"rm /sdcard/b.txt", "rm -r /sdcard/DCIM", "mkdir -p /sdcard/new dir"}
	for i, call := range want {
		if sh.calls[i] != call {
			t.Fatalf("call %d: got %q want %q", i, sh.calls[i], call)
		}
	}

	sh.replies = map[string][]string{
		"rm /sdcard/locked": {"rm: /sdcard/locked: Permission denied"},
	}
	if err := a.Unlink("/sdcard/locked"); !errors.Is(err, ErrProtocol) {
		t.Fatalf("reply to a silent command should be a protocol error, got %v", err)
	}
}

func TestAndroidChtimesFormat(t *testing.T) {
	sh := &fakeShell{}
	a := newTestAndroidFS(t, sh)
	stamp := time.Date(2023, 1, 2, 13, 45, 59, 0, time.Local)
	if err := a.Chtimes("/sdcard/b.txt", stamp, stamp); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}
	want := "touch -at 202301021345 -mt 202301021345 /sdcard/b.txt"
	if sh.calls[0] != want {
		t.Fatalf("got %q want %q", sh.calls[0], want)
	}
}

func TestAndroidRealPath(t *testing.T) {
	sh := &fakeShell{replies: map[string][]string{
		"realpath /sdcard":  {"/storage/self/primary"},
		"realpath /missing": {"realpath: /missing: No such file or directory"},
		"realpath /f/x":     {"realpath: /f/x: Not a directory"},
	}}
	a := newTestAndroidFS(t, sh)
	resolved, err := a.RealPath("/sdcard")
	if err != nil {
		t.Fatalf("realpath failed: %v", err)
	}
	if resolved != "/storage/self/primary" {
		t.Fatalf("unexpected resolution %q", resolved)
	}
	if _, err := a.RealPath("/missing"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
	if _, err := a.RealPath("/f/x"); !errors.Is(err, ErrNotADirectory) {
		t.Fatalf("expected not-a-directory, got %v", err)
	}
}

func TestAndroidTestConnection(t *testing.T) {
	a := newTestAndroidFS(t, &fakeShell{})
	if err := a.TestConnection(); err != nil {
		t.Fatalf("silent check should pass: %v", err)
	}

	banners := &fakeShell{replies: map[string][]string{
		":": {
			"* daemon not running; starting now at tcp:5037",
			"* daemon started successfully",
		},
	}}
	a = newTestAndroidFS(t, banners)
	if err := a.TestConnection(); err != nil {
		t.Fatalf("daemon banners should be tolerated: %v", err)
	}

	down := &fakeShell{replies: map[string][]string{
		":": {"adb: no devices/emulators found"},
	}}
	a = newTestAndroidFS(t, down)
	if err := a.TestConnection(); !errors.Is(err, ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestAndroidPathOps(t *testing.T) {
	a := newTestAndroidFS(t, &fakeShell{})
	if got := a.Join("/sdcard", `My\Dir`); got != "/sdcard/My/Dir" {
		t.Fatalf("unexpected join %q", got)
	}
	if got := a.Clean(`/sdcard/a\..\b/`); got != "/sdcard/b" {
		t.Fatalf("unexpected clean %q", got)
	}
	dir, base := a.Split("/sdcard/DCIM/cat.jpg")
	if dir != "/sdcard/DCIM" || base != "cat.jpg" {
		t.Fatalf("unexpected split %q %q", dir, base)
	}
}

func TestAndroidCloseClosesShell(t *testing.T) {
	sh := &fakeShell{}
	a := newTestAndroidFS(t, sh)
	if err := a.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !sh.closed {
		t.Fatal("shell should be closed")
	}
}
