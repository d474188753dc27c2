// Package brain is a small client for the brain service's request/response
// endpoints. Streaming goes through the relay; this client only covers the
// one-shot health probe used by the dashboard and the status command.
package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/brainstream/pkg/degrade"
	"github.com/papercomputeco/brainstream/pkg/logger"
)

const (
	// DefaultTimeout bounds a single health probe.
	DefaultTimeout = 3 * time.Second

	// HealthPath is appended to the brain base URL.
	HealthPath = "/health"

	// StatusUnknown is reported when the brain could not be reached.
	StatusUnknown = "unknown"
)

// ErrMalformedHealth is returned when the health body is not a JSON object.
var ErrMalformedHealth = errors.New("malformed health response")

// StatusError is returned when the brain answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("brain health returned %d %s", e.Code, http.StatusText(e.Code))
}

// Health is the brain's self-reported status.
type Health struct {
	Status        string  `json:"status"`
	Version       string  `json:"version,omitempty"`
	ActiveAgent   string  `json:"active_agent,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds,omitempty"`

	// Source and Placeholder are set by the client, not the brain.
	Source      degrade.Source `json:"source"`
	Placeholder bool           `json:"placeholder"`
	CheckedAt   time.Time      `json:"checked_at"`
}

// Healthy reports whether the brain said it was ok.
func (h Health) Healthy() bool {
	return !h.Placeholder && strings.EqualFold(h.Status, "ok")
}

// FallbackHealth is the placeholder used when no live or cached health exists.
func FallbackHealth() Health {
	return Health{
		Status:      StatusUnknown,
		Source:      degrade.SourceFallback,
		Placeholder: true,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each probe.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCacheTTL bounds how long a last-known-good health may be served.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.cacheTTL = d }
}

// Client probes the brain service.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	cacheTTL time.Duration
	logger   *slog.Logger
	guard    *degrade.Guard[Health]
}

// NewClient returns a client for the brain at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     &http.Client{},
		timeout:  DefaultTimeout,
		cacheTTL: degrade.DefaultTTL,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.guard = degrade.NewGuard("brain-health", FallbackHealth,
		degrade.WithTTL(c.cacheTTL),
		degrade.WithTimeout(c.timeout),
		degrade.WithLogger(c.logger),
	)
	return c
}

// Health probes the brain. It never fails: when the brain is unreachable the
// last good health is returned with Source cached, or FallbackHealth when
// there is none.
func (c *Client) Health(ctx context.Context) Health {
	res := c.guard.Get(ctx, c.baseURL, c.fetchHealth)

	h := res.Value
	h.Source = res.Source
	if res.Source == degrade.SourceFallback {
		h.Placeholder = true
		h.CheckedAt = time.Now()
	}
	return h
}

func (c *Client) fetchHealth(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, nil)
	if err != nil {
		return Health{}, fmt.Errorf("building health request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("probing brain: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Health{}, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Health{}, fmt.Errorf("reading health response: %w", err)
	}

	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return Health{}, fmt.Errorf("%w: %w", ErrMalformedHealth, err)
	}
	if h.Status == "" {
		h.Status = "ok"
	}
	h.Placeholder = false
	h.CheckedAt = time.Now()

	return h, nil
}
