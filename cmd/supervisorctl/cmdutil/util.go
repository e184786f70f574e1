// Package cmdutil provides shared utilities for supervisorctl commands,
// mirroring dfsctl's cmdutil package: a global-flags holder, a session
// builder that resolves a live Engine from stored credentials or flag
// overrides, and output/confirmation helpers the individual verbs share.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/webots/supervisor/internal/cliutil/output"
	"github.com/webots/supervisor/internal/cliutil/prompt"
	"github.com/webots/supervisor/internal/credentials"
	"github.com/webots/supervisor/supervisor"
	"github.com/webots/supervisor/transport/tcp"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	SimulatorAddr string
	Token         string
	Output        string
	NoColor       bool
	Verbose       bool
}

// Session bundles a connected Engine with the transport it rides on, so
// callers can Flush and then Close in one place.
type Session struct {
	Engine *supervisor.Engine
	Conn   *tcp.Conn
}

// Close releases the underlying connection.
func (s *Session) Close() error {
	return s.Conn.Close()
}

// Flush flushes the step in progress against ctx's deadline, with no
// base handler: a one-shot CLI invocation has no pending controller
// message pump to fall back to for reply tags the supervisor dispatcher
// doesn't own.
func (s *Session) Flush(ctx context.Context) error {
	return s.Engine.Flush(ctx, nil)
}

// Connect dials the simulator address resolved from flags or the
// current stored context and returns a ready Session. The supervisor
// token that ResolveConnection also returns is not used here: it is not
// part of the wire handshake, and nothing sends it to the simulator.
func Connect(ctx context.Context) (*Session, error) {
	addr, _, err := ResolveConnection()
	if err != nil {
		return nil, err
	}

	conn, err := tcp.Dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	engine := supervisor.NewEngineWithLogging(conn)
	return &Session{Engine: engine, Conn: conn}, nil
}

// ResolveConnection returns the simulator address and supervisor token
// to use, preferring explicit flag overrides to the stored context.
func ResolveConnection() (addr, token string, err error) {
	if Flags.SimulatorAddr != "" {
		return Flags.SimulatorAddr, Flags.Token, nil
	}

	store, err := credentials.NewStore()
	if err != nil {
		return "", "", fmt.Errorf("failed to initialize credential store: %w", err)
	}

	ctx, err := store.GetCurrentContext()
	if err != nil {
		return "", "", fmt.Errorf("not connected - run 'supervisorctl connect' first")
	}

	addr = ctx.SimulatorAddr
	if Flags.SimulatorAddr != "" {
		addr = Flags.SimulatorAddr
	}
	if addr == "" {
		return "", "", fmt.Errorf("no simulator address configured. Run 'supervisorctl connect --addr <host:port>' first")
	}

	token = ctx.AccessToken
	if Flags.Token != "" {
		token = Flags.Token
	}

	return addr, token, nil
}

// WithStepTimeout bounds a single CLI operation's Flush call, defaulting
// to 30s when the caller has no reason to pick something else.
func WithStepTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 30*time.Second)
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// PrintOutput prints data in the specified format. For table format, it
// displays emptyMsg if isEmpty, otherwise renders tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintResource prints a single resource: tableRenderer for table
// format, marshaled data for JSON/YAML.
func PrintResource(w io.Writer, data any, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, format, !IsColorDisabled())
	printer.Success(msg)
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is
// true) and runs deleteFn.
func RunDeleteWithConfirmation(resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s '%s'?", resourceType, name), force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := deleteFn(); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s '%s' deleted successfully", resourceType, name))
	return nil
}

// BoolToYesNo converts a boolean to "yes" or "no".
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ParseFloatTriple parses a "x,y,z" string into a [3]float64, the
// shape position/color/axis flags take on the command line.
func ParseFloatTriple(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected 3 comma-separated values, got %d", len(parts))
	}
	for i, p := range parts {
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g", &v); err != nil {
			return out, fmt.Errorf("invalid number %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// HandleAbort checks if err is an abort (Ctrl+C) and prints a message.
// Returns nil for abort, otherwise returns the original error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
