// Package main is the entry point for the platforge CLI.
//
// platforge bootstraps a private-cloud Kubernetes platform: it provisions
// infrastructure, brings up a replicated secret store with an offline PKI
// root of trust, and installs the platform services on top.
//
// Commands: init, deploy, version.
//
// For detailed usage information, run:
//
//	platforge --help
package main

import (
	"fmt"
	"os"

	"github.com/platforge/platforge/cmd/platforge/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
