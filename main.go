// Package main is the entry point for the novic CLI.
package main

import (
	"fmt"
	"os"

	"github.com/zjrosen/novic/cmd"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	versionString := fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	cmd.SetVersion(versionString)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "novic:", err)
		os.Exit(1)
	}
}
