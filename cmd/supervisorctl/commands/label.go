package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webots/supervisor/cmd/supervisorctl/cmdutil"
)

var (
	labelID           int32
	labelX, labelY    float64
	labelSize         float64
	labelColor        string
	labelTransparency float64
	labelFont         string
)

var labelCmd = &cobra.Command{
	Use:   "label <TEXT>",
	Short: "Set an on-screen overlay label",
	Long: `label queues a SET_LABEL command for the given overlay id (last
writer wins within a step, spec.md §4.4) and flushes it. x, y, size, and
transparency are each validated to lie within [0, 1] before the command
is queued.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cmdutil.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		color, err := cmdutil.ParseFloatTriple(labelColor)
		if err != nil {
			return fmt.Errorf("invalid --color: %w", err)
		}

		if err := s.Engine.SetLabel(labelID, args[0], labelX, labelY, labelSize, color, labelTransparency, labelFont); err != nil {
			return err
		}

		ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
		defer cancel()
		if err := s.Flush(ctx); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		cmdutil.PrintSuccess(fmt.Sprintf("label %d set", labelID))
		return nil
	},
}

func init() {
	labelCmd.Flags().Int32Var(&labelID, "id", 0, "Label id (labels with the same id overwrite each other)")
	labelCmd.Flags().Float64Var(&labelX, "x", 0.01, "Horizontal position, 0-1")
	labelCmd.Flags().Float64Var(&labelY, "y", 0.01, "Vertical position, 0-1")
	labelCmd.Flags().Float64Var(&labelSize, "size", 0.1, "Font size, 0-1")
	labelCmd.Flags().StringVar(&labelColor, "color", "1,1,1", "Text color as r,g,b, each 0-1")
	labelCmd.Flags().Float64Var(&labelTransparency, "transparency", 0, "Text transparency, 0-1")
	labelCmd.Flags().StringVar(&labelFont, "font", "Arial", "Font family name")
}
