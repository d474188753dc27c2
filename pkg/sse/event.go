// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// codec for the brainstream relay. The tee-reader parses events from the
// upstream brain service while simultaneously forwarding the raw bytes
// verbatim to a downstream client, and the writer serializes events and
// keep-alive markers for streams the relay synthesizes itself.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DefaultEventType is the event type implied by a frame without an "event:" field.
const DefaultEventType = "message"

// KeepAliveData is the literal payload of a keep-alive frame. It is not JSON,
// so consumers must check for it before attempting to decode a payload.
const KeepAliveData = "keep-alive"

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string

	// Retry is the reconnection time in milliseconds from the "retry:" field.
	// Zero means the field was absent.
	Retry int
}

// EventType returns the event type, substituting the default "message" type
// when the "event:" field was absent.
func (e *Event) EventType() string {
	if e.Type == "" {
		return DefaultEventType
	}
	return e.Type
}

// IsKeepAlive reports whether the event is a keep-alive marker. Only the
// default message type carries one; a named event whose payload happens to
// read "keep-alive" is a regular event.
func (e *Event) IsKeepAlive() bool {
	return e.EventType() == DefaultEventType && e.Data == KeepAliveData
}
