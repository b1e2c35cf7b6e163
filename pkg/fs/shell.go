package fs

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// endOfCommand is echoed after every command so the reply can be delimited
// on a line the command itself will never legitimately print.
const endOfCommand = "ADBCLONE END OF COMMAND"

// Shell is a persistent interactive `adb shell` session. Commands are
// framed by the sentinel echo; exactly one command may be in flight at a
// time, enforced by the mutex held from write through sentinel.
type Shell struct {
	mu  sync.Mutex
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
}

// NewShell spawns the session. Stderr is merged into stdout, mirroring how
// the device interleaves diagnostics with command output.
func NewShell(dev *Device) (*Shell, error) {
	cmd := dev.Command("shell")
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open shell stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open shell stdout: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start adb shell: %w: %v", ErrConnection, err)
	}
	return &Shell{cmd: cmd, in: in, out: bufio.NewReader(out)}, nil
}

// Exec runs one command on the device and returns its output lines. The
// command is shell-quoted, its stdin redirected empty, and the sentinel
// echo is flushed in the same write. Lines are consumed until the exact
// sentinel line; end of stream before it means the connection broke.
func (s *Shell) Exec(args ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var req strings.Builder
	req.WriteString(quoteCommand(args))
	req.WriteString(" </dev/null\n")
	req.WriteString(quoteCommand([]string{"echo", endOfCommand}))
	req.WriteString(" </dev/null\n")
	if _, err := io.WriteString(s.in, req.String()); err != nil {
		return nil, fmt.Errorf("write to adb shell: %w: %v", ErrConnection, err)
	}
	var lines []string
	for {
		line, err := s.out.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("adb shell closed before end of reply: %w", ErrConnection)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == endOfCommand {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// Close ends the session by closing its stdin and reaping the process.
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.in != nil {
		s.in.Close()
		s.in = nil
	}
	if s.cmd != nil {
		err := s.cmd.Wait()
		s.cmd = nil
		return err
	}
	return nil
}

// quoteToken wraps a token in single quotes, escaping embedded quotes the
// POSIX way, so arbitrary filenames survive the device shell.
func quoteToken(val string) string {
	if val != "" && !strings.ContainsAny(val, " \t\n\"'`$\\&|;<>(){}[]*?~#") {
		return val
	}
	return "'" + strings.ReplaceAll(val, "'", `'\''`) + "'"
}

func quoteCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quoteToken(a)
	}
	return strings.Join(quoted, " ")
}
