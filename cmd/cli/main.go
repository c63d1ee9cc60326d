// Package main is the entry point for the scrapeplane CLI.
// The CLI is the operator terminal tool for interacting with the manager API.
package main

import (
	"os"

	"scrapeplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
