// Package main provides the entry point for the gno CLI.
package main

import (
	"os"

	"github.com/gnosis-index/gnosis/cmd/gno/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
