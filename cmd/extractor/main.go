package main

import (
	"os"

	"bank-statement-engine/cmd/extractor/cmd"
)

// Build-time variables set via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCodeFor(err))
	}
}
