package config

const (
	defaultRelayListen       = ":8090"
	defaultUpstream          = "http://localhost:7777"
	defaultUpstreamPath      = "/events"
	defaultStreamPath        = "/api/stream"
	defaultDemoPath          = "/api/stream/demo"
	defaultMaxLifetime       = "5m"
	defaultKeepAliveInterval = "30s"
	defaultDemoInterval      = "5s"
	defaultMaxOpensPerSecond = 20

	defaultAPIListen = ":8091"

	defaultClientRelayTarget = "http://localhost:8090/api/stream"
	defaultClientBrainTarget = "http://localhost:7777"
	defaultClientAPITarget   = "http://localhost:8091"

	defaultStoreCapacity   = 50
	defaultStoreStaleAfter = "45s"

	defaultKafkaTopic = "brainstream.frames"
	defaultArchive    = ArchiveMemory
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Listen:            defaultRelayListen,
			Upstream:          defaultUpstream,
			UpstreamPath:      defaultUpstreamPath,
			StreamPath:        defaultStreamPath,
			DemoPath:          defaultDemoPath,
			MaxLifetime:       defaultMaxLifetime,
			KeepAliveInterval: defaultKeepAliveInterval,
			DemoInterval:      defaultDemoInterval,
			MaxOpensPerSecond: defaultMaxOpensPerSecond,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			RelayTarget: defaultClientRelayTarget,
			BrainTarget: defaultClientBrainTarget,
			APITarget:   defaultClientAPITarget,
		},
		Store: StoreConfig{
			Capacity:   defaultStoreCapacity,
			StaleAfter: defaultStoreStaleAfter,
		},
		Tap: TapConfig{
			KafkaTopic: defaultKafkaTopic,
			Archive:    defaultArchive,
		},
	}
}
