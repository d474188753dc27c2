// Package relaycmder provides the relay server command.
package relaycmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/brainstream/cmd/brainstream/serve/stack"
	"github.com/papercomputeco/brainstream/pkg/config"
	storageutils "github.com/papercomputeco/brainstream/pkg/storage/utils"
	"github.com/papercomputeco/brainstream/relay"
)

type relayCommander struct {
	flags     config.FlagSet
	configDir string
	debug     bool
	logFile   string

	listen         string
	upstream       string
	maxLifetime    time.Duration
	proxyKeepAlive bool
	archive        string
	archiveTarget  string
	kafkaBrokers   string

	viper *viper.Viper
}

var relayFlags = []string{
	config.FlagRelayListenStandalone,
	config.FlagUpstream,
	config.FlagMaxLifetime,
	config.FlagProxyKeepAlive,
	config.FlagArchive,
	config.FlagArchiveTarget,
	config.FlagKafkaBrokers,
}

const relayLongDesc string = `Run the relay server.

The relay bridges the brain's event stream to any number of dashboard
clients. Every client stream opens its own upstream call, and the relay
forwards the upstream bytes verbatim. A synthetic stream with demo frames
is served alongside it for clients that run without a brain.

Relayed frames can be tapped to kafka (--kafka-brokers) and archived to
sqlite or postgres (--archive).`

const relayShortDesc string = "Run the brainstream relay server"

func NewRelayCmd() *cobra.Command {
	cmder := &relayCommander{flags: config.Registry}

	cmd := &cobra.Command{
		Use:   "relay",
		Short: relayShortDesc,
		Long:  relayLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, relayFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagRelayListenStandalone, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagUpstream, &cmder.upstream)
	config.AddDurationFlag(cmd, cmder.flags, config.FlagMaxLifetime, &cmder.maxLifetime)
	config.AddBoolFlag(cmd, cmder.flags, config.FlagProxyKeepAlive, &cmder.proxyKeepAlive)
	config.AddStringFlag(cmd, cmder.flags, config.FlagArchive, &cmder.archive)
	config.AddStringFlag(cmd, cmder.flags, config.FlagArchiveTarget, &cmder.archiveTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *relayCommander) run(ctx context.Context) error {
	log, closeLog, err := stack.Logger(c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := stack.RelayConfig(c.viper)

	// Nothing reads an in-memory archive from a standalone relay.
	if c.viper.GetString("tap.archive") != storageutils.ProviderMemory {
		archive, err := stack.Archive(ctx, c.viper, c.configDir, log)
		if err != nil {
			return err
		}
		defer archive.Close()
		cfg.Archive = archive
	}

	pub, err := stack.Publisher(c.viper, log)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
	}
	cfg.Publisher = pub

	r, err := relay.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}
	defer r.Close()

	log.Info("starting relay server",
		"listen", cfg.ListenAddr,
		"upstream", cfg.UpstreamURL+cfg.UpstreamPath,
		"stream_path", cfg.StreamPath,
		"demo_path", cfg.DemoPath,
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- r.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("relay error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}
