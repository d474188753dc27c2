package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/brainstream/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "BRAINSTREAM"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the BRAINSTREAM_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (BRAINSTREAM_RELAY_LISTEN, BRAINSTREAM_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: BRAINSTREAM_RELAY_LISTEN, BRAINSTREAM_TAP_ARCHIVE, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Relay
	v.SetDefault("relay.listen", d.Relay.Listen)
	v.SetDefault("relay.upstream", d.Relay.Upstream)
	v.SetDefault("relay.upstream_path", d.Relay.UpstreamPath)
	v.SetDefault("relay.stream_path", d.Relay.StreamPath)
	v.SetDefault("relay.demo_path", d.Relay.DemoPath)
	v.SetDefault("relay.max_lifetime", d.Relay.MaxLifetime)
	v.SetDefault("relay.keepalive_interval", d.Relay.KeepAliveInterval)
	v.SetDefault("relay.demo_interval", d.Relay.DemoInterval)
	v.SetDefault("relay.proxy_keepalive", d.Relay.ProxyKeepAlive)
	v.SetDefault("relay.max_opens_per_second", d.Relay.MaxOpensPerSecond)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Client
	v.SetDefault("client.relay_target", d.Client.RelayTarget)
	v.SetDefault("client.brain_target", d.Client.BrainTarget)
	v.SetDefault("client.api_target", d.Client.APITarget)

	// Store
	v.SetDefault("store.capacity", d.Store.Capacity)
	v.SetDefault("store.stale_after", d.Store.StaleAfter)

	// Tap
	v.SetDefault("tap.kafka_brokers", d.Tap.KafkaBrokers)
	v.SetDefault("tap.kafka_topic", d.Tap.KafkaTopic)
	v.SetDefault("tap.archive", d.Tap.Archive)
	v.SetDefault("tap.archive_target", d.Tap.ArchiveTarget)

	// Manifest
	v.SetDefault("manifest.path", d.Manifest.Path)
}
