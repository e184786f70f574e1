// Command supervisorctl is the command-line client for driving a
// supervisor engine against a running simulator, the way dfsctl drives
// a DittoFS server's REST API.
package main

import (
	"fmt"
	"os"

	"github.com/webots/supervisor/cmd/supervisorctl/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
