// Package node implements "supervisorctl node ..." subcommands: resolving
// node handles by DEF name, id, or tag, and reading back their cached
// attributes, mirroring dfsctl's resource-verb command layout.
package node

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webots/supervisor/cmd/supervisorctl/cmdutil"
	"github.com/webots/supervisor/internal/cliutil/output"
	"github.com/webots/supervisor/supervisor"
)

// Cmd is the "node" command group, mounted on the root command.
var Cmd = &cobra.Command{
	Use:   "node",
	Short: "Resolve and inspect scene-graph node handles",
}

func init() {
	Cmd.AddCommand(getFromDefCmd)
	Cmd.AddCommand(getFromIDCmd)
	Cmd.AddCommand(getFromTagCmd)
	Cmd.AddCommand(positionCmd)
	Cmd.AddCommand(removeCmd)
	Cmd.AddCommand(resetPhysicsCmd)
}

// nodeRow adapts a *supervisor.Node to output.TableRenderer for a
// single-resource print.
type nodeRow struct{ n *supervisor.Node }

func (r nodeRow) Headers() []string { return []string{"ID", "TYPE", "DEF", "MODEL", "PARENT", "PROTO", "PROTO_INTERNAL"} }
func (r nodeRow) Rows() [][]string {
	n := r.n
	return [][]string{{
		fmt.Sprintf("%d", n.ID),
		supervisor.NodeTypeName(n.Type),
		n.DefName,
		n.ModelName,
		fmt.Sprintf("%d", n.ParentID),
		cmdutil.BoolToYesNo(n.IsProto),
		cmdutil.BoolToYesNo(n.IsProtoInternal),
	}}
}

var getFromDefCmd = &cobra.Command{
	Use:   "get-from-def <DEF-NAME>",
	Short: "Resolve a node handle by its DEF name",
	Long: `get-from-def resolves a node's handle by its DEF name. If the node
is not yet mirrored locally, a NODE_GET_FROM_DEF handle-resolution
request is queued and the step is flushed immediately (every handle
resolution is synchronous); a second lookup of the same DEF name in a
later call returns the cached handle without another round trip.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *cmdutil.Session) error {
			n, err := resolveByDef(cmd, s, args[0])
			if err != nil {
				return err
			}
			return cmdutil.PrintResource(cmd.OutOrStdout(), n, nodeRow{n})
		})
	},
}

var getFromIDCmd = &cobra.Command{
	Use:   "get-from-id <ID>",
	Short: "Resolve a node handle by its numeric id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *cmdutil.Session) error {
			var id int32
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid node id %q: %w", args[0], err)
			}
			n, err := resolveByID(cmd, s, id)
			if err != nil {
				return err
			}
			return cmdutil.PrintResource(cmd.OutOrStdout(), n, nodeRow{n})
		})
	},
}

var getFromTagCmd = &cobra.Command{
	Use:   "get-from-tag <TAG>",
	Short: "Resolve a node handle by its device tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *cmdutil.Session) error {
			var tag int32
			if _, err := fmt.Sscanf(args[0], "%d", &tag); err != nil {
				return fmt.Errorf("invalid tag %q: %w", args[0], err)
			}
			n, err := resolveByTag(cmd, s, tag)
			if err != nil {
				return err
			}
			return cmdutil.PrintResource(cmd.OutOrStdout(), n, nodeRow{n})
		})
	},
}

var positionCmd = &cobra.Command{
	Use:   "position <DEF-NAME>",
	Short: "Read a node's world position",
	Long: `position queues a NODE_GET_POSITION request for the node named
DEF-NAME, flushes the step, and prints the refreshed cached value.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *cmdutil.Session) error {
			n, err := resolveByDef(cmd, s, args[0])
			if err != nil {
				return err
			}
			s.Engine.RequestPosition(n)
			ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
			defer cancel()
			if err := s.Flush(ctx); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			p := s.Engine.Position(n)
			td := output.NewTableData("X", "Y", "Z")
			td.AddRow(fmt.Sprintf("%g", p[0]), fmt.Sprintf("%g", p[1]), fmt.Sprintf("%g", p[2]))
			return cmdutil.PrintResource(cmd.OutOrStdout(), p, td)
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <DEF-NAME>",
	Short: "Remove a node from the scene tree",
	Long: `remove queues a NODE_REMOVE_NODE request and flushes immediately:
removal mutates local state (the parent field's element count), so it
always requires a synchronous reply per spec.md §4.7 step 5.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *cmdutil.Session) error {
			n, err := resolveByDef(cmd, s, args[0])
			if err != nil {
				return err
			}
			s.Engine.RemoveNode(n)
			ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
			defer cancel()
			if err := s.Flush(ctx); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			cmdutil.PrintSuccess(fmt.Sprintf("node %q removed", args[0]))
			return nil
		})
	},
}

var resetPhysicsCmd = &cobra.Command{
	Use:   "reset-physics <DEF-NAME>",
	Short: "Reset a node's physics state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *cmdutil.Session) error {
			n, err := resolveByDef(cmd, s, args[0])
			if err != nil {
				return err
			}
			s.Engine.ResetPhysics(n)
			ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
			defer cancel()
			if err := s.Flush(ctx); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			cmdutil.PrintSuccess(fmt.Sprintf("physics reset queued for %q", args[0]))
			return nil
		})
	},
}

// withSession connects, runs fn, and always closes the connection.
func withSession(cmd *cobra.Command, fn func(s *cmdutil.Session) error) error {
	s, err := cmdutil.Connect(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// resolveByDef follows the find-then-flush-then-retry contract every
// handle-resolution call in the engine uses: the first lookup enqueues
// a request and returns supervisor.ErrNodeNotFound, which this helper
// resolves by flushing once and looking the node up again.
func resolveByDef(cmd *cobra.Command, s *cmdutil.Session, def string) (*supervisor.Node, error) {
	n, err := s.Engine.NodeFromDef(def)
	if err == nil {
		return n, nil
	}
	ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	if n, err := s.Engine.NodeFromDef(def); err == nil {
		return n, nil
	}
	return nil, fmt.Errorf("node with DEF %q not found", def)
}

func resolveByID(cmd *cobra.Command, s *cmdutil.Session, id int32) (*supervisor.Node, error) {
	n, err := s.Engine.NodeFromID(id)
	if err == nil {
		return n, nil
	}
	ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	if n, err := s.Engine.NodeFromID(id); err == nil {
		return n, nil
	}
	return nil, fmt.Errorf("node with id %d not found", id)
}

func resolveByTag(cmd *cobra.Command, s *cmdutil.Session, tag int32) (*supervisor.Node, error) {
	n, err := s.Engine.NodeFromTag(tag)
	if err == nil {
		return n, nil
	}
	ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	if n, err := s.Engine.NodeFromTag(tag); err == nil {
		return n, nil
	}
	return nil, fmt.Errorf("node with tag %d not found", tag)
}
