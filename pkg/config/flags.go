package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --upstream
// on both "brainstream serve" and "brainstream serve relay").
type Flag struct {
	// Name is the long flag name (e.g. "upstream").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "relay.upstream").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagRelayListen    = "relay-listen"
	FlagAPIListen      = "api-listen"
	FlagUpstream       = "upstream"
	FlagMaxLifetime    = "max-lifetime"
	FlagProxyKeepAlive = "proxy-keepalive"
	FlagRelayTarget    = "relay-target"
	FlagBrainTarget    = "brain-target"
	FlagAPITarget      = "api-target"
	FlagCapacity       = "capacity"
	FlagArchive        = "archive"
	FlagArchiveTarget  = "archive-target"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagManifest       = "manifest"

	// Standalone subcommand variants use "listen" as the flag name
	// but bind to different viper keys depending on the service.
	FlagRelayListenStandalone = "relay-listen-standalone"
	FlagAPIListenStandalone   = "api-listen-standalone"
)

// Registry holds every flag definition shared across commands.
var Registry = FlagSet{
	FlagRelayListen:           {Name: "relay-listen", Shorthand: "r", ViperKey: "relay.listen", Description: "Address for the relay to listen on"},
	FlagAPIListen:             {Name: "api-listen", Shorthand: "a", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagRelayListenStandalone: {Name: "listen", Shorthand: "l", ViperKey: "relay.listen", Description: "Address for the relay to listen on"},
	FlagAPIListenStandalone:   {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagUpstream:              {Name: "upstream", Shorthand: "u", ViperKey: "relay.upstream", Description: "Brain base URL the relay streams from"},
	FlagMaxLifetime:           {Name: "max-lifetime", ViperKey: "relay.max_lifetime", Description: "Hard ceiling on a single stream (0 disables)"},
	FlagProxyKeepAlive:        {Name: "proxy-keepalive", ViperKey: "relay.proxy_keepalive", Description: "Write keep-alive comments on proxied streams"},
	FlagRelayTarget:           {Name: "relay-target", ViperKey: "client.relay_target", Description: "Relay stream URL to subscribe to"},
	FlagBrainTarget:           {Name: "brain-target", ViperKey: "client.brain_target", Description: "Brain base URL for health probes"},
	FlagAPITarget:             {Name: "api-target", ViperKey: "client.api_target", Description: "Brainstream API server URL"},
	FlagCapacity:              {Name: "capacity", ViperKey: "store.capacity", Description: "Number of frames and thoughts kept by the store"},
	FlagArchive:               {Name: "archive", ViperKey: "tap.archive", Description: "Frame archive backend (memory, sqlite, postgres)"},
	FlagArchiveTarget:         {Name: "archive-target", ViperKey: "tap.archive_target", Description: "Archive path or DSN (default: .brainstream/archive.sqlite for sqlite)"},
	FlagKafkaBrokers:          {Name: "kafka-brokers", ViperKey: "tap.kafka_brokers", Description: "Comma-separated kafka brokers for the frame tap"},
	FlagManifest:              {Name: "manifest", Shorthand: "m", ViperKey: "manifest.path", Description: "Dashboard manifest file"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddDurationFlag registers a duration flag on cmd from the given FlagSet.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *time.Duration) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetDuration(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().DurationVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultViper() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	return defaultViper().GetString(viperKey)
}
