package task

import (
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultOutputMaxLines is how many lines an Output keeps by default.
const DefaultOutputMaxLines = 1000

// OutputChannel is a host log panel that task sources write diagnostics to.
type OutputChannel interface {
	// AppendLine appends text followed by a newline.
	AppendLine(text string)

	// Show reveals the channel to the user. With preserveFocus set the
	// channel is shown without taking input focus.
	Show(preserveFocus bool)
}

// OutputLine is a single line appended to an Output.
type OutputLine struct {
	// Content is the appended text.
	Content string

	// Timestamp is when the line was appended.
	Timestamp time.Time

	// LineNumber is the sequential line number (1-based).
	LineNumber int
}

// Output is an OutputChannel that keeps the most recent appended lines,
// copies each one to a writer, and mirrors it into a logger.
// Line numbers keep counting when old lines are dropped.
type Output struct {
	name   string
	writer io.Writer
	logger *zap.Logger

	mu        sync.RWMutex
	lines     []OutputLine
	maxLines  int
	appended  int
	shows     int
	lastFocus bool
	onShow    func(preserveFocus bool)
}

// OutputOption configures an Output.
type OutputOption func(*Output)

// WithOutputWriter copies appended lines to w.
func WithOutputWriter(w io.Writer) OutputOption {
	return func(o *Output) {
		o.writer = w
	}
}

// WithOutputLogger mirrors appended lines into logger at debug level.
func WithOutputLogger(logger *zap.Logger) OutputOption {
	return func(o *Output) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOutputMaxLines caps the kept history at n lines. n <= 0 keeps the
// default.
func WithOutputMaxLines(n int) OutputOption {
	return func(o *Output) {
		if n > 0 {
			o.maxLines = n
		}
	}
}

// WithShowHandler is called every time the channel is revealed.
func WithShowHandler(fn func(preserveFocus bool)) OutputOption {
	return func(o *Output) {
		o.onShow = fn
	}
}

// NewOutput creates a named output channel.
func NewOutput(name string, opts ...OutputOption) *Output {
	o := &Output{
		name:     name,
		logger:   zap.NewNop(),
		lines:    make([]OutputLine, 0, 16),
		maxLines: DefaultOutputMaxLines,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns the channel name.
func (o *Output) Name() string {
	return o.name
}

// AppendLine implements OutputChannel.
func (o *Output) AppendLine(text string) {
	o.mu.Lock()
	o.appended++
	line := OutputLine{
		Content:    text,
		Timestamp:  time.Now(),
		LineNumber: o.appended,
	}
	if len(o.lines) >= o.maxLines {
		n := copy(o.lines, o.lines[len(o.lines)-o.maxLines+1:])
		o.lines = o.lines[:n]
	}
	o.lines = append(o.lines, line)
	w := o.writer
	o.mu.Unlock()

	// The writer already shows the line; the logger copy is for debugging.
	o.logger.Debug(text, zap.String("channel", o.name), zap.Int("line", line.LineNumber))

	if w != nil {
		_, _ = io.WriteString(w, text+"\n")
	}
}

// Show implements OutputChannel.
func (o *Output) Show(preserveFocus bool) {
	o.mu.Lock()
	o.shows++
	o.lastFocus = preserveFocus
	fn := o.onShow
	o.mu.Unlock()

	if fn != nil {
		fn(preserveFocus)
	}
}

// Lines returns a copy of all appended lines.
func (o *Output) Lines() []OutputLine {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]OutputLine, len(o.lines))
	copy(result, o.lines)
	return result
}

// Contents returns the content of every appended line.
func (o *Output) Contents() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]string, len(o.lines))
	for i, line := range o.lines {
		result[i] = line.Content
	}
	return result
}

// ShowCount returns how many times the channel was revealed and the
// preserveFocus flag of the latest reveal.
func (o *Output) ShowCount() (int, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.shows, o.lastFocus
}

// Clear drops all appended lines.
func (o *Output) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = o.lines[:0]
	o.appended = 0
}

var _ OutputChannel = (*Output)(nil)
