package sse

import (
	"io"
	"strconv"
	"strings"
	"sync"
)

// Encode serializes an event into its wire form, terminated by a blank line.
// Multi-line data is split into one "data:" line per line. The "event:" line
// is omitted for the default message type.
func Encode(ev Event) []byte {
	var b strings.Builder

	if ev.Type != "" && ev.Type != DefaultEventType {
		b.WriteString("event: ")
		b.WriteString(stripNewlines(ev.Type))
		b.WriteByte('\n')
	}
	if ev.ID != "" {
		b.WriteString("id: ")
		b.WriteString(stripNewlines(ev.ID))
		b.WriteByte('\n')
	}
	if ev.Retry > 0 {
		b.WriteString("retry: ")
		b.WriteString(strconv.Itoa(ev.Retry))
		b.WriteByte('\n')
	}

	data := strings.ReplaceAll(ev.Data, "\r\n", "\n")
	for line := range strings.SplitSeq(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	return []byte(b.String())
}

// Comment serializes an SSE comment block. Comments are ignored by parsers,
// which makes them safe to interleave with relayed frames at block boundaries.
func Comment(text string) []byte {
	return []byte(": " + stripNewlines(text) + "\n\n")
}

// KeepAlive returns the wire form of a keep-alive frame.
func KeepAlive() []byte {
	return Encode(Event{Data: KeepAliveData})
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// Writer serializes concurrent writes to an underlying stream so that each
// Write call lands on the wire as one contiguous block.
type Writer struct {
	mu  sync.Mutex
	dst io.Writer
	n   int64
}

// NewWriter wraps dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// Write writes p in full while holding the writer lock.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.dst.Write(p)
	w.n += int64(n)
	return n, err
}

// WriteEvent encodes and writes a single event.
func (w *Writer) WriteEvent(ev Event) error {
	_, err := w.Write(Encode(ev))
	return err
}

// WriteComment writes a comment block.
func (w *Writer) WriteComment(text string) error {
	_, err := w.Write(Comment(text))
	return err
}

// Written returns the total number of bytes written.
func (w *Writer) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}
