// Package subscriber consumes a brainstream SSE endpoint on behalf of a
// dashboard. It owns exactly one connection at a time, dispatches decoded
// frames to per-kind handlers on a single goroutine, and reconnects with
// jittered exponential backoff when the stream drops or goes idle.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/brainstream/pkg/frame"
	"github.com/papercomputeco/brainstream/pkg/logger"
	"github.com/papercomputeco/brainstream/pkg/sse"
)

const (
	// DefaultStaleAfter is how long an open stream may go without a frame
	// before State reports StateDegraded.
	DefaultStaleAfter = 45 * time.Second

	// DefaultIdleTimeout is how long a read may block before the connection
	// is torn down and retried. It is larger than the relay keep-alive period.
	DefaultIdleTimeout = 90 * time.Second
)

var (
	// ErrRetriesExhausted is reported by Err once MaxRetries consecutive
	// attempts have failed.
	ErrRetriesExhausted = errors.New("reconnect retries exhausted")

	// ErrAlreadyConnected is returned by Connect on a subscriber that has
	// already been started.
	ErrAlreadyConnected = errors.New("subscriber already connected")

	// ErrMissingURL is returned by New when Config.URL is empty or unparseable.
	ErrMissingURL = errors.New("subscriber url is required")

	// ErrIdleTimeout is the cause recorded when a stream stops producing bytes.
	ErrIdleTimeout = errors.New("stream idle timeout")

	errStreamEnded = errors.New("stream ended")
)

// StatusError is the failure recorded when the endpoint answers with a
// non-200 status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Status)
}

// Handler receives one frame. Handlers run on the subscriber goroutine.
type Handler func(frame.Frame)

// Config configures a Subscriber.
type Config struct {
	// URL of the SSE endpoint, usually the relay's stream path.
	URL string

	Backoff     BackoffPolicy
	StaleAfter  time.Duration
	IdleTimeout time.Duration

	// Header is added to every connection request.
	Header http.Header
}

// Option customizes a Subscriber.
type Option func(*Subscriber)

// WithHTTPClient sets the client used to open the stream. The client must not
// impose an overall timeout since streams are long-lived.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Subscriber) { s.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Subscriber) { s.logger = l }
}

// WithClock replaces time.Now for staleness and frame timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Subscriber) { s.now = now }
}

// WithRand replaces the jitter source. rnd must return values in [0, 1).
func WithRand(rnd func() float64) Option {
	return func(s *Subscriber) { s.rand = rnd }
}

// Subscriber is a reconnecting SSE client.
type Subscriber struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
	rand   func() float64

	mu          sync.Mutex
	handlers    map[frame.Kind]Handler
	fallback    Handler
	observers   []func(State)
	state       State
	openedAt    time.Time
	lastFrameAt time.Time
	lastEventID string
	retryHint   time.Duration
	err         error
	started     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// New creates a subscriber. It does not connect until Connect is called.
func New(cfg Config, opts ...Option) (*Subscriber, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if u, err := url.Parse(cfg.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingURL, cfg.URL)
	}

	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	cfg.Backoff = cfg.Backoff.withDefaults()

	s := &Subscriber{
		cfg:      cfg,
		client:   &http.Client{},
		logger:   logger.Nop(),
		now:      time.Now,
		rand:     rand.Float64,
		handlers: make(map[frame.Kind]Handler),
		state:    StateClosed,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handle registers h for frames of kind k, replacing any earlier handler.
func (s *Subscriber) Handle(k frame.Kind, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[k] = h
}

// HandleDefault registers the handler for kinds with no handler of their own,
// including KindUnknown.
func (s *Subscriber) HandleDefault(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = h
}

// OnStateChange registers an observer of stored state transitions. Observers
// are called on the subscriber goroutine and must not block.
func (s *Subscriber) OnStateChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Connect starts the connection loop in the background. The loop runs until
// ctx is canceled, Close is called, or retries are exhausted.
func (s *Subscriber) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Close stops the subscriber and waits for its goroutine to exit. It is safe
// to call more than once, and before Connect.
func (s *Subscriber) Close() {
	s.mu.Lock()
	started, cancel := s.started, s.cancel
	s.started = true
	s.mu.Unlock()

	if !started {
		close(s.done)
		return
	}
	if cancel != nil {
		cancel()
	}
	<-s.done
}

// Done is closed when the subscriber has stopped for good.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// State returns the current connection state. An open connection with no
// frame inside the staleness window reports StateDegraded.
func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateOpen && s.staleLocked() {
		return StateDegraded
	}
	return s.state
}

// Connected reports whether a stream is currently open, stale or not.
func (s *Subscriber) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateOpen
}

// LastFrameAt returns when the last frame, keep-alives included, arrived.
func (s *Subscriber) LastFrameAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrameAt
}

// Err returns the reason the subscriber stopped, or nil while it is running or
// after a plain Close.
func (s *Subscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscriber) staleLocked() bool {
	last := s.lastFrameAt
	if s.openedAt.After(last) {
		last = s.openedAt
	}
	return s.now().Sub(last) > s.cfg.StaleAfter
}

func (s *Subscriber) run(ctx context.Context) {
	defer close(s.done)
	defer s.setState(StateClosed)

	attempt := 0
	for {
		if attempt == 0 {
			s.setState(StateConnecting)
		} else {
			s.setState(StateReconnecting)
		}

		received, err := s.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		if received {
			attempt = 0
		}
		attempt++

		if s.cfg.Backoff.Exhausted(attempt) {
			s.mu.Lock()
			s.err = fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt-1, err)
			s.mu.Unlock()
			s.logger.Error("giving up on stream", "url", s.cfg.URL, "attempts", attempt-1, "error", err)
			return
		}

		delay := s.nextDelay(attempt)
		s.logger.Warn("stream disconnected, retrying",
			"url", s.cfg.URL,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		s.setState(StateReconnecting)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// nextDelay applies the backoff policy, using the server's retry hint as the
// initial delay when one was sent.
func (s *Subscriber) nextDelay(attempt int) time.Duration {
	policy := s.cfg.Backoff

	s.mu.Lock()
	if s.retryHint > 0 {
		policy.InitialDelay = s.retryHint
		if policy.MaxDelay < policy.InitialDelay {
			policy.MaxDelay = policy.InitialDelay
		}
	}
	s.mu.Unlock()

	return policy.Delay(attempt, s.rand)
}

// stream runs one connection attempt. received reports whether at least one
// event arrived before the stream ended, which resets the retry counter. A
// server that accepts the request and hangs up without sending anything counts
// as a failed attempt.
func (s *Subscriber) stream(ctx context.Context) (received bool, err error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}
	for k, vs := range s.cfg.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	s.mu.Lock()
	if s.lastEventID != "" {
		req.Header.Set("Last-Event-ID", s.lastEventID)
	}
	s.mu.Unlock()

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("opening stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		s.logger.Warn("unexpected content type on stream", "content_type", ct)
	}

	var idle bool
	var idleMu sync.Mutex
	watchdog := time.AfterFunc(s.cfg.IdleTimeout, func() {
		idleMu.Lock()
		idle = true
		idleMu.Unlock()
		cancel()
	})
	defer watchdog.Stop()

	s.markOpen()
	s.logger.Info("stream open", "url", s.cfg.URL)

	reader := sse.NewReader(&activityReader{
		r:      resp.Body,
		onRead: func() { watchdog.Reset(s.cfg.IdleTimeout) },
	})

	for {
		ev, err := reader.Next()
		if err != nil {
			idleMu.Lock()
			timedOut := idle
			idleMu.Unlock()
			if timedOut {
				return received, ErrIdleTimeout
			}
			return received, fmt.Errorf("reading stream: %w", err)
		}
		if ev == nil {
			return received, errStreamEnded
		}

		received = true
		s.observe(ev)

		f := frame.Decode(ev, s.now())
		if f.IsKeepAlive() {
			continue
		}
		s.dispatch(f)
	}
}

func (s *Subscriber) markOpen() {
	s.mu.Lock()
	s.openedAt = s.now()
	s.mu.Unlock()
	s.setState(StateOpen)
}

// observe records liveness and resume bookkeeping for every event.
func (s *Subscriber) observe(ev *sse.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFrameAt = s.now()
	if ev.ID != "" {
		s.lastEventID = ev.ID
	}
	if ev.Retry > 0 {
		s.retryHint = time.Duration(ev.Retry) * time.Millisecond
	}
}

func (s *Subscriber) dispatch(f frame.Frame) {
	s.mu.Lock()
	h, ok := s.handlers[f.Kind]
	if !ok {
		h = s.fallback
	}
	s.mu.Unlock()

	if h == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("frame handler panicked", "kind", f.Kind.String(), "panic", r)
		}
	}()
	h(f)
}

func (s *Subscriber) setState(st State) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	observers := append([]func(State){}, s.observers...)
	s.mu.Unlock()

	s.logger.Debug("subscriber state", "state", st.String())
	for _, fn := range observers {
		fn(st)
	}
}

// activityReader calls onRead after every read that returned bytes.
type activityReader struct {
	r      io.Reader
	onRead func()
}

func (a *activityReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if n > 0 {
		a.onRead()
	}
	return n, err
}
