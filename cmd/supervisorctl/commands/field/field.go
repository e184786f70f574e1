// Package field implements "supervisorctl field ..." subcommands: field
// handle resolution plus SF scalar get/set, mirroring the node package's
// resolve-then-operate shape.
package field

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/webots/supervisor/cmd/supervisorctl/cmdutil"
	"github.com/webots/supervisor/internal/cliutil/output"
	"github.com/webots/supervisor/supervisor"
)

// Cmd is the "field" command group, mounted on the root command.
var Cmd = &cobra.Command{
	Use:   "field",
	Short: "Resolve and read/write VRML field values",
}

func init() {
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(setSFFloatCmd)
	Cmd.AddCommand(setSFColorCmd)
	Cmd.AddCommand(setSFRotationCmd)
	Cmd.AddCommand(setMFFloatCmd)
	Cmd.AddCommand(insertMFFloatCmd)
	Cmd.AddCommand(removeMFCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <DEF-NAME> <FIELD-NAME>",
	Short: "Resolve a field and print its last-known value",
	Long: `get resolves FIELD-NAME on the node named DEF-NAME, issues a
FIELD_GET_VALUE request, flushes, and prints the refreshed value.
Per spec.md §4.3's read-your-writes rule, a SET already queued for this
field earlier in the same process (before this command's own flush) is
observed without an extra round trip.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withField(cmd, args[0], args[1], func(s *cmdutil.Session, f *supervisor.Field) error {
			if err := s.Engine.RequestFieldValue(f); err != nil {
				return fmt.Errorf("request field value: %w", err)
			}
			ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
			defer cancel()
			if err := s.Flush(ctx); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			v := s.Engine.FieldValue(f, -1)
			td := output.NewTableData("TYPE", "VALUE")
			td.AddRow(v.Type.String(), formatValue(v))
			return cmdutil.PrintResource(cmd.OutOrStdout(), v, td)
		})
	},
}

var setSFFloatCmd = &cobra.Command{
	Use:   "set-sf-float <DEF-NAME> <FIELD-NAME> <VALUE>",
	Short: "Queue a SET of an SFFloat field",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", args[2], err)
		}
		return withField(cmd, args[0], args[1], func(s *cmdutil.Session, f *supervisor.Field) error {
			if err := s.Engine.SetSFFloat(f, v); err != nil {
				return err
			}
			cmdutil.PrintSuccess(fmt.Sprintf("queued SET %s.%s = %g (flushes on the next synchronous call)", args[0], args[1], v))
			return nil
		})
	},
}

var setSFColorCmd = &cobra.Command{
	Use:   "set-sf-color <DEF-NAME> <FIELD-NAME> <R,G,B>",
	Short: "Queue a SET of an SFColor field",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.ParseFloatTriple(args[2])
		if err != nil {
			return err
		}
		return withField(cmd, args[0], args[1], func(s *cmdutil.Session, f *supervisor.Field) error {
			if err := s.Engine.SetSFColor(f, c); err != nil {
				return err
			}
			cmdutil.PrintSuccess(fmt.Sprintf("queued SET %s.%s = %v", args[0], args[1], c))
			return nil
		})
	},
}

var setSFRotationCmd = &cobra.Command{
	Use:   "set-sf-rotation <DEF-NAME> <FIELD-NAME> <X,Y,Z,ANGLE>",
	Short: "Queue a SET of an SFRotation field",
	Long: `set-sf-rotation rejects a zero axis (x, y, z) == (0, 0, 0) locally
(spec.md §8 invariant 7) without contacting the simulator.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		parts, err := parseFloat4(args[2])
		if err != nil {
			return err
		}
		return withField(cmd, args[0], args[1], func(s *cmdutil.Session, f *supervisor.Field) error {
			if err := s.Engine.SetSFRotation(f, parts); err != nil {
				return err
			}
			cmdutil.PrintSuccess(fmt.Sprintf("queued SET %s.%s = %v", args[0], args[1], parts))
			return nil
		})
	},
}

var setMFFloatCmd = &cobra.Command{
	Use:   "set-mf-float <DEF-NAME> <FIELD-NAME> <INDEX> <VALUE>",
	Short: "Queue a SET of one element of an MFFloat field",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.ParseInt(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", args[2], err)
		}
		v, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", args[3], err)
		}
		return withField(cmd, args[0], args[1], func(s *cmdutil.Session, f *supervisor.Field) error {
			if err := s.Engine.SetMFFloat(f, int32(index), v); err != nil {
				return err
			}
			cmdutil.PrintSuccess(fmt.Sprintf("queued SET %s.%s[%d] = %g", args[0], args[1], index, v))
			return nil
		})
	},
}

var insertMFFloatCmd = &cobra.Command{
	Use:   "insert-mf-float <DEF-NAME> <FIELD-NAME> <INDEX> <VALUE>",
	Short: "Insert a new element into an MFFloat field",
	Long: `insert-mf-float accepts INDEX in [-(count+1), count]; unlike
set-mf-float and remove-mf, INDEX == count is valid and appends.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.ParseInt(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", args[2], err)
		}
		v, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", args[3], err)
		}
		return withField(cmd, args[0], args[1], func(s *cmdutil.Session, f *supervisor.Field) error {
			if err := s.Engine.InsertMFFloat(f, int32(index), v); err != nil {
				return err
			}
			ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
			defer cancel()
			if err := s.Flush(ctx); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			cmdutil.PrintSuccess(fmt.Sprintf("inserted %s.%s[%d] = %g, new count %d", args[0], args[1], index, v, f.Count))
			return nil
		})
	},
}

var removeMFCmd = &cobra.Command{
	Use:   "remove-mf <DEF-NAME> <FIELD-NAME> <INDEX>",
	Short: "Remove one element of a multi-valued field",
	Long: `remove-mf flushes immediately: a REMOVE's outcome (the field's
refreshed element count, which the simulator alone knows for certain
after an MF_NODE removal) mutates local state, so spec.md §4.7 step 5
requires a synchronous reply.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.ParseInt(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", args[2], err)
		}
		return withField(cmd, args[0], args[1], func(s *cmdutil.Session, f *supervisor.Field) error {
			if err := s.Engine.RemoveMFValue(f, int32(index)); err != nil {
				return err
			}
			ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
			defer cancel()
			if err := s.Flush(ctx); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			cmdutil.PrintSuccess(fmt.Sprintf("removed %s.%s[%d], new count %d", args[0], args[1], index, f.Count))
			return nil
		})
	},
}

// withField resolves node then field, following the same
// find-then-flush-then-retry contract node.resolveByDef uses.
func withField(cmd *cobra.Command, defName, fieldName string, fn func(s *cmdutil.Session, f *supervisor.Field) error) error {
	s, err := cmdutil.Connect(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := resolveNode(cmd, s, defName)
	if err != nil {
		return err
	}
	f, err := resolveField(cmd, s, n, fieldName)
	if err != nil {
		return err
	}
	return fn(s, f)
}

func resolveNode(cmd *cobra.Command, s *cmdutil.Session, def string) (*supervisor.Node, error) {
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

func resolveField(cmd *cobra.Command, s *cmdutil.Session, n *supervisor.Node, name string) (*supervisor.Field, error) {
	f, err := s.Engine.FieldFromName(n, name)
	if err == nil {
		return f, nil
	}
	ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	if f, err := s.Engine.FieldFromName(n, name); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("field %q not found on node", name)
}

// parseFloat4 parses a "x,y,z,angle" string into a [4]float64, the shape
// a rotation flag takes on the command line.
func parseFloat4(s string) ([4]float64, error) {
	var out [4]float64
	fields := splitComma(s)
	if len(fields) != 4 {
		return out, fmt.Errorf("expected 4 comma-separated values (x,y,z,angle), got %d", len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return out, fmt.Errorf("invalid number %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func formatValue(v supervisor.FieldValue) string {
	switch v.Type.Base() {
	case supervisor.SFFloat:
		return fmt.Sprintf("%g", v.Float)
	case supervisor.SFBool:
		return cmdutil.BoolToYesNo(v.Bool)
	case supervisor.SFInt32:
		return fmt.Sprintf("%d", v.Int32)
	case supervisor.SFString:
		return v.Str
	case supervisor.SFColor:
		return fmt.Sprintf("%v", v.Color)
	case supervisor.SFRotation:
		return fmt.Sprintf("%v", v.Rotation)
	case supervisor.SFVec3f:
		return fmt.Sprintf("%v", v.Vec3f)
	case supervisor.SFVec2f:
		return fmt.Sprintf("%v", v.Vec2f)
	case supervisor.SFNode:
		return fmt.Sprintf("node#%d", v.NodeID)
	default:
		return ""
	}
}
