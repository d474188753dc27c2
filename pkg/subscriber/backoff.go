package subscriber

import (
	"math"
	"time"
)

// BackoffPolicy controls how the subscriber waits between connection attempts.
//
// The delay before retry n (1-based) is
//
//	min(InitialDelay * Multiplier^(n-1), MaxDelay)
//
// scaled by a random factor in [1-Jitter, 1+Jitter] and capped at MaxDelay again.
// With the defaults (1s, x2, 30s, ±20%) the schedule is roughly
// 1s, 2s, 4s, 8s, 16s, 30s, 30s, ...
type BackoffPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64

	// MaxRetries is the number of consecutive failed attempts tolerated before
	// the subscriber gives up and closes. Zero retries forever.
	MaxRetries int
}

// DefaultBackoff returns the default reconnection policy.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
		MaxRetries:   10,
	}
}

func (b BackoffPolicy) withDefaults() BackoffPolicy {
	d := DefaultBackoff()
	if b.InitialDelay <= 0 {
		b.InitialDelay = d.InitialDelay
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = d.MaxDelay
	}
	if b.MaxDelay < b.InitialDelay {
		b.MaxDelay = b.InitialDelay
	}
	if b.Multiplier < 1 {
		b.Multiplier = d.Multiplier
	}
	if b.Jitter < 0 || b.Jitter > 1 {
		b.Jitter = d.Jitter
	}
	if b.MaxRetries < 0 {
		b.MaxRetries = 0
	}
	return b
}

// Delay returns the wait before retry attempt (1-based). rnd must return a
// value in [0, 1); it is the jitter source.
func (b BackoffPolicy) Delay(attempt int, rnd func() float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if base > float64(b.MaxDelay) {
		base = float64(b.MaxDelay)
	}

	if b.Jitter > 0 && rnd != nil {
		base *= 1 + b.Jitter*(2*rnd()-1)
	}
	if base > float64(b.MaxDelay) {
		base = float64(b.MaxDelay)
	}
	if base < 0 {
		base = 0
	}

	return time.Duration(base)
}

// Exhausted reports whether attempt exceeds the retry ceiling.
func (b BackoffPolicy) Exhausted(attempt int) bool {
	return b.MaxRetries > 0 && attempt > b.MaxRetries
}
