// Package initcmder provides the init command for initializing a local
// .brainstream directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/brainstream/pkg/cliui"
	"github.com/papercomputeco/brainstream/pkg/config"
)

const (
	dirName = ".brainstream"

	// maxRemoteConfigSize bounds a config fetched with --preset <url>.
	maxRemoteConfigSize = 1 << 20
)

const initLongDesc string = `Initialize a new .brainstream/ directory in the current working directory.

Creates a local .brainstream/ directory that takes precedence over the default
~/.brainstream/ directory for configuration, the frame archive and the
dashboard manifest, and writes a config.toml with default values.

Use --preset to start from a named preset or a config.toml fetched over HTTP:
  local      relay and clients on localhost (the default values)
  demo       clients follow the synthetic stream, no brain needed
  durable    archive relayed frames to sqlite and probe idle proxies

An existing config.toml is only replaced when --preset is given.

Examples:
  brainstream init
  brainstream init --preset demo
  brainstream init --preset https://example.com/brainstream/config.toml`

const initShortDesc string = "Initialize a local .brainstream/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Preset name (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(out io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .brainstream directory: %w", err)
	}

	if existed {
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	} else {
		fmt.Fprintf(out, "Initialized .brainstream directory: %s\n", dir)
	}

	cfgPath := filepath.Join(dir, config.ConfigFile)

	if c.preset == "" {
		if _, err := os.Stat(cfgPath); err == nil {
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading config: %w", err)
		}
		return writeConfig(out, dir, config.NewDefaultConfig())
	}

	if isURL(c.preset) {
		data, err := fetchRemoteConfig(c.preset)
		if err != nil {
			return err
		}
		if _, err := config.ParseConfigTOML(data); err != nil {
			return err
		}
		if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Fprintf(out, "  %s Wrote %s from %s\n", cliui.SuccessMark, config.ConfigFile, c.preset)
		return nil
	}

	cfg, err := config.PresetConfig(c.preset)
	if err != nil {
		return err
	}
	return writeConfig(out, dir, cfg)
}

func writeConfig(out io.Writer, dir string, cfg *config.Config) error {
	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s Wrote %s\n", cliui.SuccessMark, cfger.GetTarget())
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func fetchRemoteConfig(url string) ([]byte, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfigSize))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}
	return data, nil
}
