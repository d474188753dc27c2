package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Variant names which kind of stream a connection serves.
type Variant string

const (
	VariantProxy     Variant = "proxy"
	VariantSynthetic Variant = "synthetic"
)

// State is the lifecycle state of a relay connection.
type State int

const (
	StateConnecting State = iota
	StateOpen
	// StateDegraded is reported for open connections whose upstream has been
	// silent for longer than the staleness threshold.
	StateDegraded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Connection is one client stream. It is created by the request that opens
// the stream and closed when either side goes away.
type Connection struct {
	ID         string
	Variant    Variant
	RemoteAddr string
	OpenedAt   time.Time

	staleAfter time.Duration
	cancel     context.CancelFunc

	mu          sync.Mutex
	state       State
	lastFrameAt time.Time
	frames      uint64
	closedAt    time.Time
}

// ConnectionInfo is a point-in-time view of a Connection.
type ConnectionInfo struct {
	ID          string    `json:"id"`
	Variant     Variant   `json:"variant"`
	State       State     `json:"state"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	OpenedAt    time.Time `json:"opened_at"`
	LastFrameAt time.Time `json:"last_frame_at,omitzero"`
	Frames      uint64    `json:"frames"`
}

func newConnection(variant Variant, remoteAddr string, staleAfter time.Duration, cancel context.CancelFunc) *Connection {
	return &Connection{
		ID:         uuid.NewString(),
		Variant:    variant,
		RemoteAddr: remoteAddr,
		OpenedAt:   time.Now(),
		staleAfter: staleAfter,
		cancel:     cancel,
		state:      StateConnecting,
	}
}

// State returns the current state, reporting StateDegraded for an open
// connection that has seen nothing within the staleness threshold.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateOpen {
		last := c.lastFrameAt
		if last.IsZero() {
			last = c.OpenedAt
		}
		if time.Since(last) > c.staleAfter {
			return StateDegraded
		}
	}
	return c.state
}

// LastFrameAt returns when the last frame was relayed.
func (c *Connection) LastFrameAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFrameAt
}

// Info returns a snapshot of the connection.
func (c *Connection) Info() ConnectionInfo {
	st := c.State()

	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionInfo{
		ID:          c.ID,
		Variant:     c.Variant,
		State:       st,
		RemoteAddr:  c.RemoteAddr,
		OpenedAt:    c.OpenedAt,
		LastFrameAt: c.lastFrameAt,
		Frames:      c.frames,
	}
}

func (c *Connection) markOpen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateConnecting {
		c.state = StateOpen
	}
}

// touch records a relayed frame and returns its 1-based sequence number.
func (c *Connection) touch(at time.Time) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastFrameAt = at
	c.frames++
	return c.frames
}

// Close cancels the connection's context. It reports whether this call did
// the closing.
func (c *Connection) Close() bool {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return false
	}
	c.state = StateClosed
	c.closedAt = time.Now()
	c.mu.Unlock()

	c.cancel()
	return true
}

// registry tracks open connections so the relay can report on them and cancel
// them at shutdown. Connections never read each other's state through it.
type registry struct {
	mu    sync.Mutex
	conns map[string]*Connection
}

func newRegistry() *registry {
	return &registry{conns: make(map[string]*Connection)}
}

func (r *registry) add(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

func (r *registry) remove(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c.ID)
}

func (r *registry) list() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
