package relay

import (
	"time"

	"github.com/papercomputeco/brainstream/pkg/eventstream"
	"github.com/papercomputeco/brainstream/pkg/storage"
)

// Defaults applied by New when a Config field is zero.
const (
	DefaultListenAddr        = ":8090"
	DefaultUpstreamURL       = "http://localhost:7777"
	DefaultUpstreamPath      = "/events"
	DefaultStreamPath        = "/api/stream"
	DefaultDemoPath          = "/api/stream/demo"
	DefaultMaxLifetime       = 5 * time.Minute
	DefaultKeepAliveInterval = 30 * time.Second
	DefaultDemoInterval      = 5 * time.Second
	DefaultStaleAfter        = 45 * time.Second
	DefaultMaxOpensPerSecond = 20
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// UpstreamURL is the brain base URL (e.g., "http://localhost:7777")
	UpstreamURL string

	// UpstreamPath is the brain's event stream path, appended to UpstreamURL.
	UpstreamPath string

	// StreamPath serves the proxy variant.
	StreamPath string

	// DemoPath serves the synthetic variant.
	DemoPath string

	// MaxLifetime is the hard ceiling on a single stream. Clients reconnect
	// once it passes. Negative disables the ceiling.
	MaxLifetime time.Duration

	// KeepAliveInterval paces keep-alive frames on the synthetic variant and
	// comment probes on the proxy variant.
	KeepAliveInterval time.Duration

	// DemoInterval paces demo frames on the synthetic variant.
	DemoInterval time.Duration

	// StaleAfter is how long an open connection may go without upstream bytes
	// before it reports degraded.
	StaleAfter time.Duration

	// ProxyKeepAlive enables the comment probe on the proxy variant. Clients
	// that go away are noticed without it on TCP connections; the probe also
	// keeps idle intermediaries from closing a quiet stream.
	ProxyKeepAlive bool

	// MaxOpensPerSecond limits how fast new streams are admitted. Negative
	// disables admission control.
	MaxOpensPerSecond float64

	// Publisher receives an event for every relayed frame. Optional.
	Publisher eventstream.Publisher

	// Archive stores every relayed frame. Optional.
	Archive storage.Driver
}

func (c Config) withDefaults() Config {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.UpstreamURL == "" {
		c.UpstreamURL = DefaultUpstreamURL
	}
	if c.UpstreamPath == "" {
		c.UpstreamPath = DefaultUpstreamPath
	}
	if c.StreamPath == "" {
		c.StreamPath = DefaultStreamPath
	}
	if c.DemoPath == "" {
		c.DemoPath = DefaultDemoPath
	}
	if c.MaxLifetime == 0 {
		c.MaxLifetime = DefaultMaxLifetime
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if c.DemoInterval <= 0 {
		c.DemoInterval = DefaultDemoInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.MaxOpensPerSecond == 0 {
		c.MaxOpensPerSecond = DefaultMaxOpensPerSecond
	}
	return c
}
