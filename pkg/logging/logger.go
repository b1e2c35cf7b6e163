package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// levelNone sits above every slog level so a handler using it emits nothing.
const levelNone = slog.Level(128)

// Logger wraps slog.Logger and owns the writers it must close on shutdown.
type Logger struct {
	*slog.Logger
	closers []io.Closer
}

// New creates a Logger writing to the given writers.
func New(level string, writers ...io.Writer) (*Logger, error) {
	if len(writers) == 0 {
		return nil, fmt.Errorf("at least one log writer is required")
	}
	var closerList []io.Closer
	var output io.Writer
	if len(writers) == 1 {
		output = writers[0]
	} else {
		output = io.MultiWriter(writers...)
	}
	for _, w := range writers {
		if c, ok := w.(io.Closer); ok {
			closerList = append(closerList, c)
		}
	}
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return &Logger{
		Logger:  slog.New(handler),
		closers: closerList,
	}, nil
}

// Tree emits a multi-line rendering one record per line at the given level,
// so tree output obeys level filtering and reaches every attached writer.
func (l *Logger) Tree(level slog.Level, rendered string) {
	for _, line := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
		l.Log(context.Background(), level, line)
	}
}

// Close closes every writer that supports it.
func (l *Logger) Close() error {
	var lastErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// LevelFromCounts maps repeatable -v/-q flags onto a level name. Each -v
// steps toward debug, each -q toward silence; the loudest surviving level
// wins.
func LevelFromCounts(verbose, quiet int) string {
	switch n := quiet - verbose; {
	case n <= -1:
		return "debug"
	case n == 0:
		return "info"
	case n == 1:
		return "warn"
	case n == 2:
		return "error"
	default:
		return "none"
	}
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		return levelNone
	default:
		return slog.LevelInfo
	}
}
