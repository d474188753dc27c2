// Package watchcmder provides the watch command, which subscribes to a relay
// and prints each frame as it arrives.
package watchcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/brainstream/cmd/brainstream/serve/stack"
	"github.com/papercomputeco/brainstream/pkg/cliui"
	"github.com/papercomputeco/brainstream/pkg/config"
	"github.com/papercomputeco/brainstream/pkg/frame"
	"github.com/papercomputeco/brainstream/pkg/logger"
	"github.com/papercomputeco/brainstream/pkg/subscriber"
	"github.com/papercomputeco/brainstream/pkg/utils"
)

const previewLen = 72

type watchCommander struct {
	flags config.FlagSet
	debug bool

	relayTarget string
	brainTarget string

	viper *viper.Viper
}

var watchFlags = []string{
	config.FlagRelayTarget,
	config.FlagBrainTarget,
}

const watchLongDesc string = `Watch a relay stream from the terminal.

Subscribes to the relay like a dashboard would and prints one line per frame:
the time it arrived, its event type and a preview of its payload. Connection
state changes are printed as they happen. The subscriber reconnects with
backoff and gives up after the configured number of retries.

Examples:
  brainstream watch
  brainstream watch --relay-target http://relay.lan:8090/api/stream/demo`

const watchShortDesc string = "Print relay frames as they arrive"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{flags: config.Registry}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, watchFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagRelayTarget, &cmder.relayTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagBrainTarget, &cmder.brainTarget)

	return cmd
}

func (c *watchCommander) run(ctx context.Context, out, errOut io.Writer) error {
	log := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(errOut),
	)

	session, err := stack.Session(c.viper, log, "", false)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	emit := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, line)
	}

	session.OnFrame(func(f frame.Frame) {
		emit(FormatFrame(f))
	})
	session.OnStateChange(func(s subscriber.State) {
		emit(FormatState(s))
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("starting subscriber: %w", err)
	}
	defer session.Close()

	emit(cliui.DimStyle.Render("watching " + c.viper.GetString("client.relay_target")))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-session.Done():
		return session.Err()
	case <-sigChan:
		return nil
	case <-ctx.Done():
		return nil
	}
}

// FormatFrame renders a frame as a single terminal line.
func FormatFrame(f frame.Frame) string {
	line := fmt.Sprintf("%s %s",
		cliui.DimStyle.Render(f.ReceivedAt.Format("15:04:05")),
		cliui.TypeStyle.Render(f.Type),
	)
	if f.ID != "" {
		line += " " + cliui.DimStyle.Render("#"+f.ID)
	}
	return line + " " + cliui.ValueStyle.Render(preview(f))
}

// FormatState renders a connection state change.
func FormatState(s subscriber.State) string {
	return cliui.DimStyle.Render("--") + " " + cliui.State(s.String())
}

func preview(f frame.Frame) string {
	var keys []string
	switch f.Kind {
	case frame.KindTrinityScore:
		if n, ok := f.Payload.Number("score", "value", "trinity_score"); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	case frame.KindThought:
		keys = []string{"text", "content", "thought"}
	case frame.KindActiveAgent:
		keys = []string{"agent", "name", "active_agent"}
	case frame.KindBrainState:
		keys = []string{"state", "status"}
	}
	if len(keys) > 0 {
		if s, ok := f.Payload.String(keys...); ok {
			return utils.Preview(s, previewLen)
		}
	}
	return utils.Preview(f.Payload.Text(), previewLen)
}
