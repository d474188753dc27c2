// Package servecmder provides the serve command with subcommands for running services.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/brainstream/api"
	apicmder "github.com/papercomputeco/brainstream/cmd/brainstream/serve/api"
	relaycmder "github.com/papercomputeco/brainstream/cmd/brainstream/serve/relay"
	"github.com/papercomputeco/brainstream/cmd/brainstream/serve/stack"
	"github.com/papercomputeco/brainstream/pkg/config"
	"github.com/papercomputeco/brainstream/relay"
)

type ServeCommander struct {
	flags     config.FlagSet
	configDir string
	debug     bool
	logFile   string

	relayListen    string
	apiListen      string
	upstream       string
	maxLifetime    time.Duration
	proxyKeepAlive bool
	brainTarget    string
	capacity       uint
	archive        string
	archiveTarget  string
	kafkaBrokers   string
	manifest       string

	viper *viper.Viper
}

var serveFlags = []string{
	config.FlagRelayListen,
	config.FlagAPIListen,
	config.FlagUpstream,
	config.FlagMaxLifetime,
	config.FlagProxyKeepAlive,
	config.FlagBrainTarget,
	config.FlagCapacity,
	config.FlagArchive,
	config.FlagArchiveTarget,
	config.FlagKafkaBrokers,
	config.FlagManifest,
}

const serveLongDesc string = `Run brainstream services.

Use subcommands to run individual services or all services together:
  brainstream serve          Run the relay and the API server together
  brainstream serve relay    Run just the relay server
  brainstream serve api      Run just the API server

Run together, the API server's session subscribes to the relay started
alongside it, and both share one frame archive.`

const serveShortDesc string = "Run brainstream services"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{flags: config.Registry}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, serveFlags)
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

	config.AddStringFlag(cmd, cmder.flags, config.FlagRelayListen, &cmder.relayListen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagAPIListen, &cmder.apiListen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagUpstream, &cmder.upstream)
	config.AddDurationFlag(cmd, cmder.flags, config.FlagMaxLifetime, &cmder.maxLifetime)
	config.AddBoolFlag(cmd, cmder.flags, config.FlagProxyKeepAlive, &cmder.proxyKeepAlive)
	config.AddStringFlag(cmd, cmder.flags, config.FlagBrainTarget, &cmder.brainTarget)
	config.AddUintFlag(cmd, cmder.flags, config.FlagCapacity, &cmder.capacity)
	config.AddStringFlag(cmd, cmder.flags, config.FlagArchive, &cmder.archive)
	config.AddStringFlag(cmd, cmder.flags, config.FlagArchiveTarget, &cmder.archiveTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagManifest, &cmder.manifest)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	cmd.AddCommand(apicmder.NewAPICmd())
	cmd.AddCommand(relaycmder.NewRelayCmd())

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	log, closeLog, err := stack.Logger(c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Shared frame archive
	archive, err := stack.Archive(ctx, c.viper, c.configDir, log)
	if err != nil {
		return err
	}
	defer archive.Close()

	pub, err := stack.Publisher(c.viper, log)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
	}

	relayConfig := stack.RelayConfig(c.viper)
	relayConfig.Archive = archive
	relayConfig.Publisher = pub

	r, err := relay.New(relayConfig, log)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}
	defer r.Close()

	// Listen before subscribing so the session's first attempt finds the relay.
	relayListener, err := net.Listen("tcp", relayConfig.ListenAddr)
	if err != nil {
		return fmt.Errorf("relay listen: %w", err)
	}

	relayURL := stack.LocalURL(relayListener.Addr(), relayConfig.StreamPath)
	session, err := stack.Session(c.viper, log, relayURL, true)
	if err != nil {
		relayListener.Close()
		return err
	}

	apiConfig, err := stack.APIConfig(c.viper, c.configDir)
	if err != nil {
		relayListener.Close()
		return err
	}

	apiServer, err := api.NewServer(apiConfig, session, archive, log)
	if err != nil {
		relayListener.Close()
		return fmt.Errorf("creating API server: %w", err)
	}

	log.Info("starting relay",
		"relay_addr", relayListener.Addr().String(),
		"upstream", relayConfig.UpstreamURL+relayConfig.UpstreamPath,
	)

	errChan := make(chan error, 2)

	go func() {
		if err := r.RunWithListener(relayListener); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer session.Close()

	go func() {
		if err := apiServer.WatchManifest(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("manifest watch stopped", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		return apiServer.Shutdown()
	}
}
