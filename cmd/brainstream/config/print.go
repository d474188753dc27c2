package configcmder

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/brainstream/pkg/cliui"
	"github.com/papercomputeco/brainstream/pkg/config"
)

const notSet = "<not set>"

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(out io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		if _, err := os.Stat(target); err == nil {
			fmt.Fprintf(out, "\n  %s %s\n\n",
				cliui.KeyStyle.Render("Config file:"),
				cliui.DimStyle.Render(target),
			)
			return
		}
	}
	fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

func displayValue(value string) string {
	if value == "" {
		return notSet
	}
	return value
}

func renderValue(value string) string {
	if value == "" {
		return cliui.DimStyle.Render(notSet)
	}
	return cliui.ValueStyle.Render(value)
}

// defaultNote marks values that match the built-in default.
func defaultNote(key, value string) string {
	def, err := config.DefaultConfigValue(key)
	if err != nil || def != value || value == "" {
		return ""
	}
	return " " + cliui.DimStyle.Render("(default)")
}
