// Package brainstreamcmder is the root brainstream command.
package brainstreamcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/brainstream/cmd/brainstream/config"
	initcmder "github.com/papercomputeco/brainstream/cmd/brainstream/init"
	servecmder "github.com/papercomputeco/brainstream/cmd/brainstream/serve"
	statuscmder "github.com/papercomputeco/brainstream/cmd/brainstream/status"
	watchcmder "github.com/papercomputeco/brainstream/cmd/brainstream/watch"
	versioncmder "github.com/papercomputeco/brainstream/cmd/version"
)

const brainstreamLongDesc string = `Brainstream relays the brain's live event stream to dashboards.

Run services using:
  brainstream serve relay    Run the stream relay
  brainstream serve api      Run the API server
  brainstream serve          Run both servers together

Inspect a running stack using:
  brainstream watch          Print relay frames as they arrive
  brainstream status         Show session state and brain health`

const brainstreamShortDesc string = "Brainstream - brain event relay"

func NewBrainstreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "brainstream",
		Short:        brainstreamShortDesc,
		Long:         brainstreamLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .brainstream/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
