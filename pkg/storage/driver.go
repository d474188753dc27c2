// Package storage archives relayed frames so they can be inspected after the
// stream has moved on.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/brainstream/pkg/eventstream"
	"github.com/papercomputeco/brainstream/pkg/frame"
)

// Record is one archived frame.
type Record struct {
	// ID is assigned by the driver on Append and increases monotonically.
	ID int64 `json:"id"`

	EventID      string      `json:"event_id"`
	ConnectionID string      `json:"connection_id"`
	Sequence     uint64      `json:"sequence"`
	Variant      string      `json:"variant"`
	Frame        frame.Frame `json:"frame"`
	RelayedAt    time.Time   `json:"relayed_at"`
}

// NewRecord builds a record from a relayed frame event.
func NewRecord(ev *eventstream.FrameRelayedEvent) *Record {
	return &Record{
		EventID:      ev.EventID,
		ConnectionID: ev.Connection.ID,
		Sequence:     ev.Connection.Sequence,
		Variant:      ev.Source.Variant,
		Frame:        ev.Frame,
		RelayedAt:    ev.EmittedAt,
	}
}

// Driver defines the interface for persisting and retrieving archived frames.
type Driver interface {
	// Append stores rec and sets rec.ID. Keep-alive frames are rejected with
	// ErrKeepAlive.
	Append(ctx context.Context, rec *Record) error

	// Get retrieves a record by id.
	Get(ctx context.Context, id int64) (*Record, error)

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]*Record, error)

	// ByConnection returns up to limit records of one connection, newest first.
	ByConnection(ctx context.Context, connectionID string, limit int) ([]*Record, error)

	// Count returns the number of records currently retained.
	Count(ctx context.Context) (int64, error)

	// Close closes the store and releases any resources.
	Close() error
}
