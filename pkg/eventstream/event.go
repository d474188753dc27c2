// Package eventstream defines the transport-neutral events the relay emits
// for every frame it forwards, and the Publisher interface backends implement.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/brainstream/pkg/frame"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeFrameRelayed is emitted after a frame is forwarded to a client.
	EventTypeFrameRelayed = "brainstream.frame.relayed"
)

// FrameRelayedEvent is a transport-neutral event payload for a relayed frame.
type FrameRelayedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Source        EventSource    `json:"source"`
	Connection    ConnectionMeta `json:"connection"`
	Frame         frame.Frame    `json:"frame"`
}

// EventSource identifies which relay stream produced the frame.
type EventSource struct {
	Relay    string `json:"relay,omitempty"`
	Upstream string `json:"upstream,omitempty"`
	Variant  string `json:"variant"`
}

// ConnectionMeta captures the client connection the frame was relayed on.
type ConnectionMeta struct {
	ID       string    `json:"id"`
	OpenedAt time.Time `json:"opened_at"`

	// Sequence is the 1-based position of the frame within the connection.
	Sequence uint64 `json:"sequence"`
}

// NewFrameRelayedEvent stamps a new event for f.
func NewFrameRelayedEvent(src EventSource, conn ConnectionMeta, f frame.Frame) *FrameRelayedEvent {
	return &FrameRelayedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeFrameRelayed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        src,
		Connection:    conn,
		Frame:         f,
	}
}

// Key is the partitioning key for the event: frames from one connection stay
// in order on one partition.
func (e *FrameRelayedEvent) Key() string {
	return e.Connection.ID
}
