// Package configcmder provides the config command for managing persistent
// brainstream configuration stored in the .brainstream/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent brainstream configuration.

Configuration is stored as config.toml in the .brainstream/ directory and
provides default values for command flags. CLI flags and BRAINSTREAM_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  relay.listen, relay.upstream, relay.max_lifetime, relay.proxy_keepalive, ...
  api.listen,
  client.relay_target, client.brain_target, client.api_target,
  store.capacity, store.stale_after,
  tap.kafka_brokers, tap.kafka_topic, tap.archive, tap.archive_target,
  manifest.path

Use subcommands to get, set, or list configuration values:
  brainstream config set <key> <value>    Set a configuration value
  brainstream config get <key>            Get a configuration value
  brainstream config list                 List all configuration values

Examples:
  brainstream config set relay.upstream http://brain.lan:7777
  brainstream config set tap.archive sqlite
  brainstream config get relay.max_lifetime
  brainstream config list`

const configShortDesc string = "Manage persistent brainstream configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
