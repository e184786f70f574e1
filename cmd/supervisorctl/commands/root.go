// Package commands implements the CLI commands for supervisorctl.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/webots/supervisor/cmd/supervisorctl/cmdutil"
	configcmd "github.com/webots/supervisor/cmd/supervisorctl/commands/config"
	ctxcmd "github.com/webots/supervisor/cmd/supervisorctl/commands/context"
	fieldcmd "github.com/webots/supervisor/cmd/supervisorctl/commands/field"
	journalcmd "github.com/webots/supervisor/cmd/supervisorctl/commands/journal"
	nodecmd "github.com/webots/supervisor/cmd/supervisorctl/commands/node"
	worldcmd "github.com/webots/supervisor/cmd/supervisorctl/commands/world"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "supervisorctl",
	Short: "Control a supervisor engine's connection to a running simulator",
	Long: `supervisorctl drives a supervisor engine client against a running
simulator's supervisor port: resolving node/field handles, reading and
writing field values, managing labels, and saving worlds, all through
the same step-batched protocol the embedded engine uses.

Use "supervisorctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.SimulatorAddr, _ = cmd.Flags().GetString("addr")
		cmdutil.Flags.Token, _ = cmd.Flags().GetString("token")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute adds all child commands to the root command and runs it. This
// is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("addr", "", "Simulator supervisor address (overrides stored connection)")
	rootCmd.PersistentFlags().String("token", "", "Supervisor token (overrides stored connection)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(ctxcmd.Cmd)
	rootCmd.AddCommand(nodecmd.Cmd)
	rootCmd.AddCommand(fieldcmd.Cmd)
	rootCmd.AddCommand(worldcmd.Cmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(journalcmd.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
