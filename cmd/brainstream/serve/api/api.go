// Package apicmder provides the API server cobra command.
package apicmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/brainstream/api"
	"github.com/papercomputeco/brainstream/cmd/brainstream/serve/stack"
	"github.com/papercomputeco/brainstream/pkg/config"
	"github.com/papercomputeco/brainstream/pkg/storage"
	storageutils "github.com/papercomputeco/brainstream/pkg/storage/utils"
)

type apiCommander struct {
	flags     config.FlagSet
	configDir string
	debug     bool
	logFile   string

	listen        string
	relayTarget   string
	brainTarget   string
	archive       string
	archiveTarget string
	manifest      string

	viper *viper.Viper
}

var apiFlags = []string{
	config.FlagAPIListenStandalone,
	config.FlagRelayTarget,
	config.FlagBrainTarget,
	config.FlagArchive,
	config.FlagArchiveTarget,
	config.FlagManifest,
}

const apiLongDesc string = `Run the brainstream API server.

The API server subscribes to a relay stream and serves the derived dashboard
state, recent frames, the dashboard manifest and brain health. With a sqlite
or postgres archive, /frames reads the frames a relay archived instead of
the session's own frame log.`

const apiShortDesc string = "Run the brainstream API server"

func NewAPICmd() *cobra.Command {
	cmder := &apiCommander{flags: config.Registry}

	cmd := &cobra.Command{
		Use:   "api",
		Short: apiShortDesc,
		Long:  apiLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, apiFlags)
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

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPIListenStandalone, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagRelayTarget, &cmder.relayTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagBrainTarget, &cmder.brainTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagArchive, &cmder.archive)
	config.AddStringFlag(cmd, cmder.flags, config.FlagArchiveTarget, &cmder.archiveTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagManifest, &cmder.manifest)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *apiCommander) run(ctx context.Context) error {
	log, closeLog, err := stack.Logger(c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	// An in-memory archive would stay empty here: only a relay writes to it.
	var archive storage.Driver
	if c.viper.GetString("tap.archive") != storageutils.ProviderMemory {
		archive, err = stack.Archive(ctx, c.viper, c.configDir, log)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	session, err := stack.Session(c.viper, log, "", true)
	if err != nil {
		return err
	}

	apiConfig, err := stack.APIConfig(c.viper, c.configDir)
	if err != nil {
		return err
	}

	server, err := api.NewServer(apiConfig, session, archive, log)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer session.Close()

	log.Info("subscribed to relay", "relay", c.viper.GetString("client.relay_target"))

	go func() {
		if err := server.WatchManifest(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("manifest watch stopped", "error", err)
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
