package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/webots/supervisor/cmd/supervisorctl/cmdutil"
	"github.com/webots/supervisor/internal/authtoken"
	"github.com/webots/supervisor/internal/credentials"
	"github.com/webots/supervisor/transport/tcp"
)

var (
	connectAddr          string
	connectToken         string
	connectIssue         bool
	connectSigningSecret string
	connectIssuer        string
	connectSubject       string
	connectTokenTTL      time.Duration
	connectHandshake     time.Duration
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a simulator's supervisor port and store the connection",
	Long: `Connect verifies a TCP dial to the simulator's supervisor port succeeds
and saves the address (and supervisor token, if any) as the current
connection context for subsequent commands.

A token can be supplied directly, or minted locally with --issue when
the caller holds the signing secret itself (local/dev setups without a
separate identity service).

Examples:
  # Connect to a simulator with a pre-issued token
  supervisorctl connect --addr 127.0.0.1:10020 --token eyJhbGciOi...

  # Connect and mint a token locally from a shared signing secret
  supervisorctl connect --addr 127.0.0.1:10020 \
    --issue --signing-secret changeme --subject controller-1

  # Re-verify the stored connection
  supervisorctl connect`,
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&connectAddr, "addr", "", "Simulator supervisor address (required on first connect)")
	connectCmd.Flags().StringVar(&connectToken, "token", "", "Supervisor token")
	connectCmd.Flags().BoolVar(&connectIssue, "issue", false, "Mint a supervisor token locally instead of using --token")
	connectCmd.Flags().StringVar(&connectSigningSecret, "signing-secret", "", "HMAC secret to mint a token with (requires --issue)")
	connectCmd.Flags().StringVar(&connectIssuer, "issuer", "supervisorctl", "Issuer claim for a minted token")
	connectCmd.Flags().StringVar(&connectSubject, "subject", "supervisorctl", "Subject claim for a minted token")
	connectCmd.Flags().DurationVar(&connectTokenTTL, "token-ttl", time.Hour, "Validity window for a minted token")
	connectCmd.Flags().DurationVar(&connectHandshake, "handshake-timeout", 10*time.Second, "Timeout for the verification dial")
}

func runConnect(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	addr := connectAddr
	if addr == "" {
		if ctx, err := store.GetCurrentContext(); err == nil && ctx.SimulatorAddr != "" {
			addr = ctx.SimulatorAddr
		}
	}
	if addr == "" {
		return fmt.Errorf("no simulator address specified and no saved connection found\n\n" +
			"Specify an address:\n" +
			"  supervisorctl connect --addr 127.0.0.1:10020")
	}

	token := connectToken
	if connectIssue {
		if connectSigningSecret == "" {
			return fmt.Errorf("--issue requires --signing-secret")
		}
		issuer := authtoken.NewIssuer([]byte(connectSigningSecret), connectIssuer, connectTokenTTL)
		token, err = issuer.Issue(connectSubject)
		if err != nil {
			return fmt.Errorf("failed to mint supervisor token: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), connectHandshake)
	defer cancel()

	fmt.Printf("Connecting to %s...\n", addr)
	conn, err := tcp.Dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	_ = conn.Close()

	contextName := store.GetCurrentContextName()
	if contextName == "" {
		contextName = credentials.GenerateContextName(addr)
	}

	profile := &credentials.Context{
		SimulatorAddr: addr,
		AccessToken:   token,
		ExpiresAt:     time.Now().Add(connectTokenTTL),
	}
	if err := store.SetContext(contextName, profile); err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	if err := store.UseContext(contextName); err != nil {
		return fmt.Errorf("failed to set current connection: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Connected to %s", addr))
	fmt.Printf("Context: %s\n", contextName)
	fmt.Printf("Connection saved to: %s\n", store.ConfigPath())
	return nil
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the stored supervisor token for the current connection",
	Long: `Disconnect clears the stored supervisor token from the current
connection profile without forgetting the simulator address, the same
logout-without-losing-the-server-URL behavior dfsctl logout has.`,
	RunE: runDisconnect,
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if err := store.ClearCurrentContext(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	cmdutil.PrintSuccess("Disconnected")
	return nil
}
