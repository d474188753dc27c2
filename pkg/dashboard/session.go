// Package dashboard wires one client session together: a subscriber feeding a
// store, plus the brain health probe. Each Session owns its own store, so
// tests and multiple views never share module-level state.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/brainstream/pkg/brain"
	"github.com/papercomputeco/brainstream/pkg/frame"
	"github.com/papercomputeco/brainstream/pkg/logger"
	"github.com/papercomputeco/brainstream/pkg/store"
	"github.com/papercomputeco/brainstream/pkg/subscriber"
)

// Config configures a Session.
type Config struct {
	// RelayURL is the relay stream endpoint the session subscribes to.
	RelayURL string

	// BrainURL is the brain base URL for health probes. Empty disables them.
	BrainURL string

	Capacity    int
	StaleAfter  time.Duration
	IdleTimeout time.Duration
	Backoff     subscriber.BackoffPolicy
}

// Snapshot is the consumer view of a session.
type Snapshot struct {
	store.Snapshot

	State subscriber.State `json:"state"`
	Stale bool             `json:"stale"`
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the logger for the session and its subscriber.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSubscriberOptions passes options through to the subscriber.
func WithSubscriberOptions(opts ...subscriber.Option) Option {
	return func(s *Session) { s.subOpts = append(s.subOpts, opts...) }
}

// WithBrainOptions passes options through to the brain client.
func WithBrainOptions(opts ...brain.Option) Option {
	return func(s *Session) { s.brainOpts = append(s.brainOpts, opts...) }
}

// Session is one dashboard's live view of the brain.
type Session struct {
	logger    *slog.Logger
	subOpts   []subscriber.Option
	brainOpts []brain.Option

	store *store.Store
	sub   *subscriber.Subscriber
	brain *brain.Client

	mu        sync.Mutex
	listeners []func(frame.Frame)
}

// NewSession builds a session. Nothing connects until Start.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	s := &Session{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	s.store = store.New(store.WithCapacity(cfg.Capacity))

	sub, err := subscriber.New(subscriber.Config{
		URL:         cfg.RelayURL,
		Backoff:     cfg.Backoff,
		StaleAfter:  cfg.StaleAfter,
		IdleTimeout: cfg.IdleTimeout,
	}, append([]subscriber.Option{subscriber.WithLogger(s.logger)}, s.subOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating subscriber: %w", err)
	}
	s.sub = sub

	sub.Handle(frame.KindConnected, func(f frame.Frame) {
		s.logger.Info("relay connected", "payload", f.Payload.Raw)
		s.apply(f)
	})
	sub.HandleDefault(s.apply)
	sub.OnStateChange(func(st subscriber.State) {
		s.store.SetConnected(st == subscriber.StateOpen)
	})

	if cfg.BrainURL != "" {
		s.brain = brain.NewClient(cfg.BrainURL,
			append([]brain.Option{brain.WithLogger(s.logger)}, s.brainOpts...)...)
	}

	return s, nil
}

func (s *Session) apply(f frame.Frame) {
	s.store.Apply(f)

	s.mu.Lock()
	listeners := append([]func(frame.Frame){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(f)
	}
}

// OnFrame registers fn to be called after each frame is applied to the store.
// It runs on the subscriber goroutine.
func (s *Session) OnFrame(fn func(frame.Frame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// OnStateChange registers an observer of connection state transitions.
func (s *Session) OnStateChange(fn func(subscriber.State)) {
	s.sub.OnStateChange(fn)
}

// Start connects the subscriber.
func (s *Session) Start(ctx context.Context) error {
	return s.sub.Connect(ctx)
}

// Close disconnects. The store keeps its last state.
func (s *Session) Close() {
	s.sub.Close()
}

// Done is closed when the subscriber stops.
func (s *Session) Done() <-chan struct{} {
	return s.sub.Done()
}

// Err reports why the subscriber stopped, if it gave up.
func (s *Session) Err() error {
	return s.sub.Err()
}

// Store exposes the underlying store.
func (s *Session) Store() *store.Store {
	return s.store
}

// Snapshot returns the current view. After the subscriber gives up the
// snapshot still carries the last state the stream reported, with Connected
// false.
func (s *Session) Snapshot() Snapshot {
	st := s.sub.State()
	return Snapshot{
		Snapshot: s.store.Snapshot(),
		State:    st,
		Stale:    st == subscriber.StateDegraded,
	}
}

// Reset clears the thought log, frame log and derived state. The connection
// is left alone.
func (s *Session) Reset() {
	s.store.Reset()
	s.store.SetConnected(s.sub.Connected())
}

// Health probes the brain, degrading to a placeholder when it is unreachable
// or not configured.
func (s *Session) Health(ctx context.Context) brain.Health {
	if s.brain == nil {
		return brain.FallbackHealth()
	}
	return s.brain.Health(ctx)
}
