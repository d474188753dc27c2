// Package store holds the client-side view of the brain event stream: bounded
// logs of recent frames and thoughts plus a handful of derived fields.
//
// A Store has a single writer (the subscriber dispatch loop) and any number of
// readers. Readers only ever receive copies through Snapshot.
package store

import (
	"sync"
	"time"

	"github.com/papercomputeco/brainstream/pkg/frame"
)

// Thought is one entry in the thought log.
type Thought struct {
	Text       string    `json:"text"`
	ID         string    `json:"id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// DerivedState holds fields computed from whitelisted frames. A field only
// changes when a frame of its kind carries a payload of the expected shape.
type DerivedState struct {
	Score       float64   `json:"score"`
	HasScore    bool      `json:"has_score"`
	ActiveAgent string    `json:"active_agent"`
	BrainState  string    `json:"brain_state"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	Connected   bool          `json:"connected"`
	LastFrameAt time.Time     `json:"last_frame_at,omitzero"`
	Derived     DerivedState  `json:"derived"`
	Thoughts    []Thought     `json:"thoughts"`
	Frames      []frame.Frame `json:"frames"`
	Total       uint64        `json:"total"`
	Capacity    int           `json:"capacity"`
}

// ThoughtTexts returns the thought log texts, newest first.
func (s Snapshot) ThoughtTexts() []string {
	out := make([]string, len(s.Thoughts))
	for i, t := range s.Thoughts {
		out[i] = t.Text
	}
	return out
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity sets the capacity of the frame and thought logs.
func WithCapacity(n int) Option {
	return func(s *Store) {
		s.capacity = n
	}
}

// Store is the single source of truth for what the stream reported lately.
type Store struct {
	mu       sync.RWMutex
	capacity int

	frames   *BoundedLog[frame.Frame]
	thoughts *BoundedLog[Thought]
	derived  DerivedState

	connected   bool
	lastFrameAt time.Time
	total       uint64
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	if s.capacity <= 0 {
		s.capacity = DefaultCapacity
	}

	s.frames = NewBoundedLog[frame.Frame](s.capacity)
	s.thoughts = NewBoundedLog[Thought](s.capacity)
	return s
}

// Apply pushes the frame and updates derived state from it. It has the
// signature of a subscriber handler.
func (s *Store) Apply(f frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.push(f)
	s.updateDerived(f)
}

// Push inserts the frame at the head of the frame log and, for thought
// frames, the thought log. Keep-alive frames are ignored.
func (s *Store) Push(f frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.push(f)
}

// UpdateDerived applies a whitelisted frame to the derived state. It reports
// whether a field changed; unrecognized kinds and malformed payloads are
// ignored.
func (s *Store) UpdateDerived(f frame.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateDerived(f)
}

func (s *Store) push(f frame.Frame) {
	if f.IsKeepAlive() {
		return
	}

	s.frames.Push(f)
	s.total++
	if f.ReceivedAt.After(s.lastFrameAt) {
		s.lastFrameAt = f.ReceivedAt
	}

	if f.Kind == frame.KindThought {
		s.thoughts.Push(Thought{
			Text:       thoughtText(f.Payload),
			ID:         f.ID,
			ReceivedAt: f.ReceivedAt,
		})
	}
}

func (s *Store) updateDerived(f frame.Frame) bool {
	switch f.Kind {
	case frame.KindTrinityScore:
		n, ok := f.Payload.Number("score", "value", "trinity_score")
		if !ok {
			return false
		}
		s.derived.Score = n
		s.derived.HasScore = true

	case frame.KindActiveAgent:
		name, ok := f.Payload.String("agent", "name", "active_agent")
		if !ok {
			return false
		}
		s.derived.ActiveAgent = name

	case frame.KindBrainState:
		state, ok := f.Payload.String("state", "status")
		if !ok {
			return false
		}
		s.derived.BrainState = state

	default:
		return false
	}

	s.derived.UpdatedAt = f.ReceivedAt
	return true
}

func thoughtText(p frame.Payload) string {
	if text, ok := p.String("text", "content", "thought"); ok {
		return text
	}
	return p.Raw
}

// SetConnected records the subscriber's connection status.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = connected
}

// Connected reports the last recorded connection status.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.connected
}

// Derived returns the current derived state.
func (s *Store) Derived() DerivedState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.derived
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Connected:   s.connected,
		LastFrameAt: s.lastFrameAt,
		Derived:     s.derived,
		Thoughts:    s.thoughts.Items(),
		Frames:      s.frames.Items(),
		Total:       s.total,
		Capacity:    s.capacity,
	}
}

// Reset returns the store to its freshly constructed state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames.Reset()
	s.thoughts.Reset()
	s.derived = DerivedState{}
	s.connected = false
	s.lastFrameAt = time.Time{}
	s.total = 0
}
