package main

import (
	"fmt"
	"os"

	relaycmder "github.com/papercomputeco/brainstream/cmd/brainstream/serve/relay"
)

func main() {
	cmd := relaycmder.NewRelayCmd()

	cmd.Use = "brainrelay"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .brainstream/ config directory")

	err := cmd.Execute()
	if err != nil {
		fmt.Printf("Error executing root command: %v\n", err)
		os.Exit(1)
	}
}
