// Package degrade turns best-effort loads into values that are always usable.
//
// A Guard tries a live fetch first, then the last value it saw succeed, then a
// placeholder. Callers get a Result tagged with where the value came from and
// never have to handle an error on the read path.
package degrade

import (
	"context"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/papercomputeco/brainstream/pkg/logger"
)

// DefaultTTL is how long a last-known-good value may stand in for a failed
// live fetch.
const DefaultTTL = 5 * time.Minute

// Source tells where a Result value came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceCached   Source = "cached"
	SourceFallback Source = "fallback"
)

// Result is the outcome of a guarded load.
type Result[T any] struct {
	Value  T
	Source Source

	// Err is the live fetch failure when Source is not SourceLive. It is
	// informational only.
	Err error

	// FetchedAt is when Value was loaded live. It is zero for fallbacks.
	FetchedAt time.Time
}

// Degraded reports whether the value did not come from a live fetch.
func (r Result[T]) Degraded() bool {
	return r.Source != SourceLive
}

// Fetcher loads a live value.
type Fetcher[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

type options struct {
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Guard.
type Option func(*options)

// WithTTL bounds how long a cached value stays usable.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// WithTimeout bounds each live fetch. Zero leaves the caller's deadline alone.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger used to report degraded loads.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Guard wraps fetches of T with a last-known-good cache and a placeholder.
type Guard[T any] struct {
	name     string
	fallback func() T
	timeout  time.Duration
	logger   *slog.Logger
	cache    *ttlcache.Cache[string, entry[T]]
}

// NewGuard creates a guard. fallback builds the placeholder returned when
// neither a live nor a cached value is available.
func NewGuard[T any](name string, fallback func() T, opts ...Option) *Guard[T] {
	o := &options{
		ttl:    DefaultTTL,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	cache := ttlcache.New[string, entry[T]](
		ttlcache.WithTTL[string, entry[T]](o.ttl),
		ttlcache.WithDisableTouchOnHit[string, entry[T]](),
	)

	return &Guard[T]{
		name:     name,
		fallback: fallback,
		timeout:  o.timeout,
		logger:   o.logger,
		cache:    cache,
	}
}

// Get loads key through fetch. It never fails: a fetch error degrades to the
// cached value for key, and a cache miss degrades to the placeholder.
func (g *Guard[T]) Get(ctx context.Context, key string, fetch Fetcher[T]) Result[T] {
	fetchCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	v, err := fetch(fetchCtx)
	if err == nil {
		now := time.Now()
		g.cache.Set(key, entry[T]{value: v, fetchedAt: now}, ttlcache.DefaultTTL)
		return Result[T]{Value: v, Source: SourceLive, FetchedAt: now}
	}

	if item := g.cache.Get(key); item != nil && !item.IsExpired() {
		e := item.Value()
		g.logger.Warn("serving cached value",
			"guard", g.name,
			"key", key,
			"age", time.Since(e.fetchedAt),
			"error", err,
		)
		return Result[T]{Value: e.value, Source: SourceCached, Err: err, FetchedAt: e.fetchedAt}
	}

	g.logger.Warn("serving placeholder", "guard", g.name, "key", key, "error", err)

	var placeholder T
	if g.fallback != nil {
		placeholder = g.fallback()
	}
	return Result[T]{Value: placeholder, Source: SourceFallback, Err: err}
}

// Forget drops the cached value for key.
func (g *Guard[T]) Forget(key string) {
	g.cache.Delete(key)
}
