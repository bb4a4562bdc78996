// Package main is the entry point for the conductor CLI.
package main

import (
	"os"

	"github.com/thoreinstein/conductor/cmd/conductor/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
