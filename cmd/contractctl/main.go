// contractctl is the operator CLI: schema migrations, on-demand sweeps,
// deadline calculation and document uploads.
package main

import (
	"os"
	"runtime/debug"

	"github.com/turtacn/ContractKeeper/internal/interfaces/cli"
)

// Set with -ldflags "-X main.version=...".
var (
	version   = ""
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version, cli.GitCommit, cli.BuildDate = resolveVersion(), commit, buildDate
	if err := cli.Execute(); err != nil {
		// Execute has already printed err.
		os.Exit(1)
	}
}

// resolveVersion falls back to the module version recorded by
// "go install ...@vX".
func resolveVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

//Personal.AI order the ending
