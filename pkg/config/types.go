package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent brainstream configuration stored as
// config.toml in the .brainstream/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Relay    RelayConfig    `toml:"relay"`
	API      APIConfig      `toml:"api"`
	Client   ClientConfig   `toml:"client"`
	Store    StoreConfig    `toml:"store"`
	Tap      TapConfig      `toml:"tap"`
	Manifest ManifestConfig `toml:"manifest"`
}

// RelayConfig holds relay server settings. Durations are Go duration strings.
type RelayConfig struct {
	Listen            string  `toml:"listen,omitempty"`
	Upstream          string  `toml:"upstream,omitempty"`
	UpstreamPath      string  `toml:"upstream_path,omitempty"`
	StreamPath        string  `toml:"stream_path,omitempty"`
	DemoPath          string  `toml:"demo_path,omitempty"`
	MaxLifetime       string  `toml:"max_lifetime,omitempty"`
	KeepAliveInterval string  `toml:"keepalive_interval,omitempty"`
	DemoInterval      string  `toml:"demo_interval,omitempty"`
	ProxyKeepAlive    bool    `toml:"proxy_keepalive,omitempty"`
	MaxOpensPerSecond float64 `toml:"max_opens_per_second,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for commands that connect to running services
// (serve api, watch, status). Values are full URLs (scheme + host + port).
type ClientConfig struct {
	RelayTarget string `toml:"relay_target,omitempty"`
	BrainTarget string `toml:"brain_target,omitempty"`
	APITarget   string `toml:"api_target,omitempty"`
}

// StoreConfig holds client-side event store settings.
type StoreConfig struct {
	Capacity   uint   `toml:"capacity,omitempty"`
	StaleAfter string `toml:"stale_after,omitempty"`
}

// TapConfig holds frame tap settings: where relayed frames are published and
// archived.
type TapConfig struct {
	// KafkaBrokers is a comma-separated broker list. Empty disables kafka.
	KafkaBrokers  string `toml:"kafka_brokers,omitempty"`
	KafkaTopic    string `toml:"kafka_topic,omitempty"`
	Archive       string `toml:"archive,omitempty"`
	ArchiveTarget string `toml:"archive_target,omitempty"`
}

// ManifestConfig holds the dashboard manifest location.
type ManifestConfig struct {
	Path string `toml:"path,omitempty"`
}

// Archive backends accepted by tap.archive.
const (
	ArchiveMemory   = "memory"
	ArchiveSQLite   = "sqlite"
	ArchivePostgres = "postgres"
)

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func durationKey(key string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if d < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", key)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"relay.listen":        stringKey(func(c *Config) *string { return &c.Relay.Listen }),
	"relay.upstream":      stringKey(func(c *Config) *string { return &c.Relay.Upstream }),
	"relay.upstream_path": stringKey(func(c *Config) *string { return &c.Relay.UpstreamPath }),
	"relay.stream_path":   stringKey(func(c *Config) *string { return &c.Relay.StreamPath }),
	"relay.demo_path":     stringKey(func(c *Config) *string { return &c.Relay.DemoPath }),
	"relay.max_lifetime": durationKey("relay.max_lifetime",
		func(c *Config) *string { return &c.Relay.MaxLifetime }),
	"relay.keepalive_interval": durationKey("relay.keepalive_interval",
		func(c *Config) *string { return &c.Relay.KeepAliveInterval }),
	"relay.demo_interval": durationKey("relay.demo_interval",
		func(c *Config) *string { return &c.Relay.DemoInterval }),
	"relay.proxy_keepalive": {
		get: func(c *Config) string { return strconv.FormatBool(c.Relay.ProxyKeepAlive) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for relay.proxy_keepalive: %w", err)
			}
			c.Relay.ProxyKeepAlive = b
			return nil
		},
	},
	"relay.max_opens_per_second": {
		get: func(c *Config) string {
			return strconv.FormatFloat(c.Relay.MaxOpensPerSecond, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for relay.max_opens_per_second: %w", err)
			}
			c.Relay.MaxOpensPerSecond = n
			return nil
		},
	},
	"api.listen":          stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.relay_target": stringKey(func(c *Config) *string { return &c.Client.RelayTarget }),
	"client.brain_target": stringKey(func(c *Config) *string { return &c.Client.BrainTarget }),
	"client.api_target":   stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"store.capacity": {
		get: func(c *Config) string {
			if c.Store.Capacity == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Store.Capacity), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for store.capacity: %w", err)
			}
			c.Store.Capacity = uint(n)
			return nil
		},
	},
	"store.stale_after": durationKey("store.stale_after",
		func(c *Config) *string { return &c.Store.StaleAfter }),
	"tap.kafka_brokers": stringKey(func(c *Config) *string { return &c.Tap.KafkaBrokers }),
	"tap.kafka_topic":   stringKey(func(c *Config) *string { return &c.Tap.KafkaTopic }),
	"tap.archive": {
		get: func(c *Config) string { return c.Tap.Archive },
		set: func(c *Config, v string) error {
			switch v {
			case ArchiveMemory, ArchiveSQLite, ArchivePostgres:
				c.Tap.Archive = v
				return nil
			default:
				return fmt.Errorf("invalid value for tap.archive: %q (available: memory, sqlite, postgres)", v)
			}
		},
	},
	"tap.archive_target": stringKey(func(c *Config) *string { return &c.Tap.ArchiveTarget }),
	"manifest.path":      stringKey(func(c *Config) *string { return &c.Manifest.Path }),
}
