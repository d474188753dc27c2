package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/brainstream/pkg/dotdir"
)

const (
	// ConfigFile is the name of the config file inside the .brainstream/ dir.
	ConfigFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .brainstream/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, ConfigFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// orderedKeys lists the config keys in TOML section order.
var orderedKeys = []string{
	"relay.listen",
	"relay.upstream",
	"relay.upstream_path",
	"relay.stream_path",
	"relay.demo_path",
	"relay.max_lifetime",
	"relay.keepalive_interval",
	"relay.demo_interval",
	"relay.proxy_keepalive",
	"relay.max_opens_per_second",
	"api.listen",
	"client.relay_target",
	"client.brain_target",
	"client.api_target",
	"store.capacity",
	"store.stale_after",
	"tap.kafka_brokers",
	"tap.kafka_topic",
	"tap.archive",
	"tap.archive_target",
	"manifest.path",
}

// ValidConfigKeys returns the list of all supported configuration key names
// in a stable order matching the TOML section layout.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target
// .brainstream/ directory. If the file does not exist, returns
// NewDefaultConfig() so callers always receive a fully-populated Config.
// Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
// Booleans are left alone: their zero value is their default.
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = d.Version
	}

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}

	fill(&cfg.Relay.Listen, d.Relay.Listen)
	fill(&cfg.Relay.Upstream, d.Relay.Upstream)
	fill(&cfg.Relay.UpstreamPath, d.Relay.UpstreamPath)
	fill(&cfg.Relay.StreamPath, d.Relay.StreamPath)
	fill(&cfg.Relay.DemoPath, d.Relay.DemoPath)
	fill(&cfg.Relay.MaxLifetime, d.Relay.MaxLifetime)
	fill(&cfg.Relay.KeepAliveInterval, d.Relay.KeepAliveInterval)
	fill(&cfg.Relay.DemoInterval, d.Relay.DemoInterval)
	if cfg.Relay.MaxOpensPerSecond == 0 {
		cfg.Relay.MaxOpensPerSecond = d.Relay.MaxOpensPerSecond
	}

	fill(&cfg.API.Listen, d.API.Listen)

	fill(&cfg.Client.RelayTarget, d.Client.RelayTarget)
	fill(&cfg.Client.BrainTarget, d.Client.BrainTarget)
	fill(&cfg.Client.APITarget, d.Client.APITarget)

	if cfg.Store.Capacity == 0 {
		cfg.Store.Capacity = d.Store.Capacity
	}
	fill(&cfg.Store.StaleAfter, d.Store.StaleAfter)

	fill(&cfg.Tap.KafkaTopic, d.Tap.KafkaTopic)
	fill(&cfg.Tap.Archive, d.Tap.Archive)
}

// SaveConfig persists the configuration to config.toml in the target
// .brainstream/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// DefaultConfigValue returns the built-in default of the given key.
func DefaultConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}
	return info.get(NewDefaultConfig()), nil
}

// PresetConfig returns a Config for the named preset.
// Supported presets:
//   - "local": loopback defaults with an in-memory archive.
//   - "demo": clients follow the synthetic stream, so no brain is needed.
//   - "durable": frames are archived to sqlite and the proxy probe is on.
//
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "local":
		return cfg, nil

	case "demo":
		cfg.Client.RelayTarget = "http://localhost:8090" + defaultDemoPath
		return cfg, nil

	case "durable":
		cfg.Relay.ProxyKeepAlive = true
		cfg.Tap.Archive = ArchiveSQLite
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"local", "demo", "durable"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
