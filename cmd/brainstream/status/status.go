// Package statuscmder provides the status command, which asks a running
// brainstream API server for its session state and brain health.
package statuscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/brainstream/pkg/brain"
	"github.com/papercomputeco/brainstream/pkg/cliui"
	"github.com/papercomputeco/brainstream/pkg/config"
	"github.com/papercomputeco/brainstream/pkg/dashboard"
	"github.com/papercomputeco/brainstream/pkg/utils"
)

const (
	requestTimeout = 5 * time.Second
	thoughtLimit   = 5
)

type statusCommander struct {
	flags     config.FlagSet
	apiTarget string

	viper *viper.Viper
}

var statusFlags = []string{
	config.FlagAPITarget,
}

const statusLongDesc string = `Show the state of a running brainstream API server.

Fetches the session snapshot and the brain health from the API server and
prints the connection state, the time of the last frame, the derived score,
active agent and brain state, and the most recent thoughts.

Examples:
  brainstream status
  brainstream status --api-target http://dash.lan:8091`

const statusShortDesc string = "Show relay session and brain health"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{flags: config.Registry}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, statusFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *statusCommander) run(ctx context.Context, out io.Writer) error {
	target := strings.TrimSuffix(c.viper.GetString("client.api_target"), "/")
	client := &http.Client{Timeout: requestTimeout}

	fmt.Fprintln(out)

	var snap dashboard.Snapshot
	err := cliui.Step(out, "Fetching session state", func() error {
		return getJSON(ctx, client, target+"/state", &snap)
	})
	if err != nil {
		return fmt.Errorf("fetching state from %s: %w", target, err)
	}

	var health brain.Health
	err = cliui.Step(out, "Probing brain health", func() error {
		return getJSON(ctx, client, target+"/brain/health", &health)
	})
	if err != nil {
		health = brain.FallbackHealth()
	}

	printStatus(out, target, snap, health, time.Now())
	return nil
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func printStatus(out io.Writer, target string, snap dashboard.Snapshot, health brain.Health, now time.Time) {
	row := func(key, value string) {
		fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-13s", key+":")), value)
	}

	fmt.Fprintln(out)
	row("API", cliui.DimStyle.Render(target))

	stream := cliui.State(snap.State.String())
	if snap.Stale {
		stream += " " + cliui.State("stale")
	}
	row("Stream", stream)
	row("Last frame", cliui.ValueStyle.Render(cliui.FormatAge(snap.LastFrameAt, now)))
	row("Frames", cliui.ValueStyle.Render(fmt.Sprintf("%d of %d", len(snap.Frames), snap.Capacity))+
		" "+cliui.DimStyle.Render(fmt.Sprintf("(%d total)", snap.Total)))

	score := cliui.DimStyle.Render("-")
	if snap.Derived.HasScore {
		score = cliui.ValueStyle.Render(strconv.FormatFloat(snap.Derived.Score, 'f', -1, 64))
	}
	row("Score", score)
	row("Active agent", orDash(snap.Derived.ActiveAgent))
	row("Brain state", orDash(snap.Derived.BrainState))

	brainLine := cliui.State(strings.ToLower(health.Status)) + " " + cliui.DimStyle.Render("("+string(health.Source)+")")
	if health.Version != "" {
		brainLine += " " + cliui.DimStyle.Render(health.Version)
	}
	row("Brain", brainLine)

	if len(snap.Thoughts) > 0 {
		fmt.Fprintf(out, "\n  %s\n", cliui.KeyStyle.Render("Recent thoughts:"))
		for i, t := range snap.Thoughts[:min(len(snap.Thoughts), thoughtLimit)] {
			fmt.Fprintf(out, "  %s %s %s\n",
				cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
				cliui.ValueStyle.Render(utils.Preview(t.Text, 72)),
				cliui.DimStyle.Render(cliui.FormatAge(t.ReceivedAt, now)),
			)
		}
	}

	fmt.Fprintln(out)
}

func orDash(s string) string {
	if s == "" {
		return cliui.DimStyle.Render("-")
	}
	return cliui.ValueStyle.Render(s)
}
