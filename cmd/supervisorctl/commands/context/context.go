// Package context implements "supervisorctl context ..." subcommands for
// managing saved simulator connection profiles, the same verb set dfsctl
// exposes over its server-context store.
package context

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/webots/supervisor/cmd/supervisorctl/cmdutil"
	"github.com/webots/supervisor/internal/cliutil/prompt"
	"github.com/webots/supervisor/internal/cliutil/timeutil"
	"github.com/webots/supervisor/internal/credentials"
)

// Cmd is the "context" command group, mounted on the root command.
var Cmd = &cobra.Command{
	Use:     "context",
	Aliases: []string{"ctx"},
	Short:   "Manage saved simulator connection profiles",
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(useCmd)
	Cmd.AddCommand(renameCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(currentCmd)
	Cmd.AddCommand(lockCmd)
	Cmd.AddCommand(unlockCmd)
}

type contextRow struct {
	store   *credentials.Store
	names   []string
	current string
}

func (r contextRow) Headers() []string { return []string{"CURRENT", "NAME", "LOCKED", "EXPIRES"} }
func (r contextRow) Rows() [][]string {
	rows := make([][]string, 0, len(r.names))
	for _, n := range r.names {
		marker := ""
		if n == r.current {
			marker = "*"
		}
		expires := ""
		locked := ""
		if ctx, err := r.store.GetContext(n); err == nil {
			locked = cmdutil.BoolToYesNo(ctx.IsLocked())
			if !ctx.ExpiresAt.IsZero() {
				expires = timeutil.FormatTime(ctx.ExpiresAt.UTC().Format(time.RFC3339))
			}
		}
		rows = append(rows, []string{marker, n, locked, expires})
	}
	return rows
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connection profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}
		names := store.ListContexts()
		row := contextRow{store: store, names: names, current: store.GetCurrentContextName()}
		return cmdutil.PrintOutput(cmd.OutOrStdout(), names, len(names) == 0, "No saved connections.", row)
	},
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the current connection profile name",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}
		name := store.GetCurrentContextName()
		if name == "" {
			return fmt.Errorf("no current connection set")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

var useCmd = &cobra.Command{
	Use:   "use <NAME>",
	Short: "Switch the current connection profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}
		if err := store.UseContext(args[0]); err != nil {
			return err
		}
		cmdutil.PrintSuccess(fmt.Sprintf("switched to connection %q", args[0]))
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <OLD> <NEW>",
	Short: "Rename a connection profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}
		if err := store.RenameContext(args[0], args[1]); err != nil {
			return err
		}
		cmdutil.PrintSuccess(fmt.Sprintf("renamed connection %q to %q", args[0], args[1]))
		return nil
	},
}

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:     "delete <NAME>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved connection profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}
		return cmdutil.RunDeleteWithConfirmation("connection", args[0], deleteForce, func() error {
			return store.DeleteContext(args[0])
		})
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

var lockCmd = &cobra.Command{
	Use:   "lock <NAME>",
	Short: "Require a passphrase before this connection's token can be used",
	Long: `lock sets a passphrase on a connection profile, stored as a bcrypt
hash that "context unlock" checks. This does not encrypt the token on
disk, and other commands connect with the profile whether or not it is
locked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}
		if _, err := store.GetContext(args[0]); err != nil {
			return err
		}
		passphrase, err := prompt.NewPassword()
		if err != nil {
			return err
		}
		if err := store.Lock(args[0], passphrase); err != nil {
			return err
		}
		cmdutil.PrintSuccess(fmt.Sprintf("connection %q locked", args[0]))
		return nil
	},
}

var unlockRemove bool

var unlockCmd = &cobra.Command{
	Use:   "unlock <NAME>",
	Short: "Verify this connection's passphrase",
	Long: `unlock checks a passphrase against a connection profile's stored
hash, confirming the operator is present before a command reuses its
token. It does not itself change how subsequent commands connect;
callers scripting an unattended check can use this to fail fast on the
wrong passphrase rather than on a later authentication error. Pass
--remove to drop the passphrase requirement entirely once verified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}
		ctx, err := store.GetContext(args[0])
		if err != nil {
			return err
		}
		if !ctx.IsLocked() {
			return fmt.Errorf("connection %q is not locked", args[0])
		}
		passphrase, err := prompt.Password("Passphrase")
		if err != nil {
			return err
		}
		if unlockRemove {
			if err := store.RemoveLock(args[0], passphrase); err != nil {
				return err
			}
			cmdutil.PrintSuccess(fmt.Sprintf("connection %q lock removed", args[0]))
			return nil
		}
		if err := store.Unlock(args[0], passphrase); err != nil {
			return err
		}
		cmdutil.PrintSuccess(fmt.Sprintf("connection %q unlocked", args[0]))
		return nil
	},
}

func init() {
	unlockCmd.Flags().BoolVar(&unlockRemove, "remove", false, "Remove the passphrase requirement once verified")
}
