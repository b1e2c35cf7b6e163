package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/schollz/progressbar/v3"
)

// Progress receives transfer-phase updates. Implementations never influence
// control flow.
type Progress interface {
	Start(totalFiles int, totalBytes int64)
	NextFile(path string, size int64)
	AddBytes(n int64)
	Finish()
}

// Counter receives live tallies while a snapshot walk runs.
type Counter interface {
	Count(folders, files int, bytes int64)
	Done()
}

const (
	progressWidth  = 30
	maxDescLen     = 50
	renderThrottle = 65 * time.Millisecond
)

// BarProgress renders a single transfer bar: overall bytes plus a file
// counter and the path currently on the wire.
type BarProgress struct {
	mu         sync.Mutex
	writer     io.Writer
	bar        *progressbar.ProgressBar
	totalFiles int
	doneFiles  int
	current    string
}

// NewBarProgress creates a bar writing to the given writer.
func NewBarProgress(writer io.Writer) *BarProgress {
	return &BarProgress{writer: writer}
}

func (p *BarProgress) Start(totalFiles int, totalBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalFiles = totalFiles
	p.doneFiles = 0
	p.current = ""
	p.bar = progressbar.NewOptions64(totalBytes,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(progressWidth),
		progressbar.OptionThrottle(renderThrottle),
		progressbar.OptionSetDescription(p.describeLocked()),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.writer) }),
	)
}

func (p *BarProgress) NextFile(path string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	p.doneFiles++
	p.current = shortenPath(path, maxDescLen)
	p.bar.Describe(p.describeLocked())
}

func (p *BarProgress) AddBytes(n int64) {
	if n == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	_ = p.bar.Add64(n)
}

func (p *BarProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}

func (p *BarProgress) describeLocked() string {
	desc := fmt.Sprintf("[%d/%d]", p.doneFiles, p.totalFiles)
	if p.current != "" {
		desc += " " + p.current
	}
	return desc
}

// WrapWriter returns a writer that clears the bar before each log line and
// redraws it after, so log output never lands mid-bar.
func (p *BarProgress) WrapWriter(w io.Writer) io.Writer {
	if p == nil {
		return w
	}
	return &progressAwareWriter{
		progress: p,
		writer:   w,
	}
}

type progressAwareWriter struct {
	progress *BarProgress
	writer   io.Writer
}

func (pw *progressAwareWriter) Write(b []byte) (int, error) {
	pw.progress.mu.Lock()
	defer pw.progress.mu.Unlock()
	if pw.progress.bar != nil {
		_ = pw.progress.bar.Clear()
	}
	n, err := pw.writer.Write(b)
	if pw.progress.bar != nil {
		_ = pw.progress.bar.RenderBlank()
	}
	return n, err
}

// ScanCounter shows the running folder/file/byte tally as a spinner line,
// cleared once the walk finishes.
type ScanCounter struct {
	mu    sync.Mutex
	label string
	bar   *progressbar.ProgressBar
}

// NewScanCounter creates a spinner labelled with the side being walked.
func NewScanCounter(writer io.Writer, label string) *ScanCounter {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(renderThrottle),
		progressbar.OptionSetDescription(label),
	)
	return &ScanCounter{label: label, bar: bar}
}

func (c *ScanCounter) Count(folders, files int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar == nil {
		return
	}
	c.bar.Describe(fmt.Sprintf("%s: %d folders, %d files, %s",
		c.label, folders, files, bytefmt.ByteSize(uint64(bytes))))
	_ = c.bar.Add(1)
}

func (c *ScanCounter) Done() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar == nil {
		return
	}
	_ = c.bar.Clear()
	c.bar = nil
}

// NoopProgress is used when the bar is switched off.
type NoopProgress struct{}

func (NoopProgress) Start(totalFiles int, totalBytes int64) {}
func (NoopProgress) NextFile(path string, size int64)       {}
func (NoopProgress) AddBytes(n int64)                       {}
func (NoopProgress) Finish()                                {}

// NoopCounter is used when the scan display is switched off.
type NoopCounter struct{}

func (NoopCounter) Count(folders, files int, bytes int64) {}
func (NoopCounter) Done()                                 {}

func shortenPath(path string, maxLen int) string {
	clean := strings.NewReplacer("\n", " ", "\r", " ").Replace(path)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	keep := maxLen - 3
	head := keep / 2
	tail := keep - head
	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:])
}
