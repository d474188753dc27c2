package sse

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

// TeeReader reads SSE events from a source io.Reader while simultaneously
// writing all raw bytes verbatim to a destination io.Writer.
// This effectively enables "tee" shaped reading where TeeReader.Next
// returns the Event for consumption while writing to a separate destination.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │ TeeReader.Next() │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Event       │
// └──────────────────┘
//
// Raw bytes are written to the destination one whole block at a time: every
// line up to and including the blank line that terminates it goes out in a
// single Write call. A destination shared with another writer (a keep-alive
// ticker, for example) therefore never sees its bytes land in the middle of a
// frame as long as it serializes Write calls.
type TeeReader struct {
	src  *bufio.Reader
	dest io.Writer

	// line is reused across reads and holds the raw bytes of the current line,
	// terminator included.
	line []byte
	err  error

	// pending holds raw bytes of the block being read that have not been
	// written to dest yet.
	pending bytes.Buffer
	written int64

	// current accumulates fields for the event being built in the current scan.
	current  *Event
	hasData  bool
	dataSeen bool
}

// maxLineSize bounds a single line, terminator included.
const maxLineSize = 1024 * 1024

// ErrLineTooLong is returned by Next when a line exceeds maxLineSize.
var ErrLineTooLong = errors.New("sse: line too long")

// NewTeeReader returns a Reader that parses SSE events from the src io.Reader
// and writes all raw bytes through to dest.
// The dest writer typically backs an io.Pipe connected to the downstream HTTP
// response.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	return &TeeReader{
		src:     bufio.NewReaderSize(src, 64*1024),
		dest:    dest,
		current: &Event{},
	}
}

// NewReader returns a TeeReader that only parses events and discards the raw bytes.
func NewReader(src io.Reader) *TeeReader {
	return NewTeeReader(src, io.Discard)
}

// Next returns the next parsed SSE event from the source. It blocks until a
// complete event is available (terminated by a blank line in the stream).
// Next returns nil, nil when the source is exhausted.
//
// Next also tees all bytes to the destination writer supplied
// to NewTeeReader. Lines go out exactly as they arrived: "\r\n" terminators
// are kept and a final line without a terminator is not given one.
func (r *TeeReader) Next() (*Event, error) {
	for {
		raw, err := r.readLine()
		if len(raw) > 0 {
			r.pending.Write(raw)
			line := trimLineEnding(raw)

			switch {
			case len(line) == 0:
				// A blank line signals the end of the current block.
				if ferr := r.flush(); ferr != nil {
					return nil, ferr
				}
				if r.hasData {
					ev := r.current
					r.reset()
					return ev, nil
				}
				// Blank line with no accumulated fields: skip (e.g. leading
				// blank lines or comment-only keep-alive blocks).
			case line[0] == ':':
				// Comment line. Skip it in Event parsing.
			default:
				r.parseLine(string(line))
			}
		}

		if err != nil {
			return r.finish(err)
		}
	}
}

// Written returns the number of bytes written to the destination so far.
func (r *TeeReader) Written() int64 {
	return r.written
}

// readLine returns the next raw line including its terminator. The final line
// of the source may come back without one, alongside the read error.
func (r *TeeReader) readLine() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}

	r.line = r.line[:0]
	for {
		chunk, err := r.src.ReadSlice('\n')
		r.line = append(r.line, chunk...)
		if len(r.line) > maxLineSize {
			r.err = ErrLineTooLong
			return nil, r.err
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			r.err = err
		}
		return r.line, err
	}
}

// finish handles the end of the source. An in-progress event (stream ended
// without a trailing blank line) is yielded once the source is exhausted.
func (r *TeeReader) finish(err error) (*Event, error) {
	if ferr := r.flush(); ferr != nil {
		return nil, ferr
	}
	if !errors.Is(err, io.EOF) {
		return nil, err
	}

	if r.hasData {
		ev := r.current
		r.reset()
		return ev, nil
	}
	return nil, nil
}

func (r *TeeReader) flush() error {
	if r.pending.Len() == 0 {
		return nil
	}

	n, err := r.dest.Write(r.pending.Bytes())
	r.written += int64(n)
	r.pending.Reset()
	return err
}

// trimLineEnding strips a trailing "\n", "\r\n" or "\r" from raw.
func trimLineEnding(raw []byte) []byte {
	raw = bytes.TrimSuffix(raw, []byte("\n"))
	return bytes.TrimSuffix(raw, []byte("\r"))
}

// parseLine processes a single non-empty, non-comment SSE line and
// accumulates the field into the current event.
//
// Per the SSE spec, a line has the form "field:value" where the first
// space after the colon is optional and stripped if present.
func (r *TeeReader) parseLine(line string) {
	var field, value string

	if before, after, ok := strings.Cut(line, ":"); ok {
		field = before
		value = after
		// Strip a single leading space after the colon.
		value = strings.TrimPrefix(value, " ")
	} else {
		// Line with no colon: the entire line is the field name with
		// an empty value.
		field = line
	}

	switch field {
	case "data":
		if r.dataSeen {
			// Multiple data fields are joined with "\n", empty ones included.
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.dataSeen = true
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	case "retry":
		// Only base-10 digits are valid; anything else is ignored.
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			r.current.Retry = ms
		}
	default:
		// Other unknown fields are ignored per the SSE spec.
	}
}

// reset clears the accumulated event state for the next event.
func (r *TeeReader) reset() {
	r.current = &Event{}
	r.hasData = false
	r.dataSeen = false
}
