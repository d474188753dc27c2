package main

import (
	"os"

	brainstreamcmder "github.com/papercomputeco/brainstream/cmd/brainstream"
)

func main() {
	cmd := brainstreamcmder.NewBrainstreamCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
