// Package world implements "supervisorctl world ..." subcommands: the
// step-global, file-format-gated commands spec.md §6 describes (world
// save/load, simulation reset/quit).
package world

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/webots/supervisor/cmd/supervisorctl/cmdutil"
	"github.com/webots/supervisor/internal/artifact"
	"github.com/webots/supervisor/pkg/config"
)

// Cmd is the "world" command group, mounted on the root command.
var Cmd = &cobra.Command{
	Use:   "world",
	Short: "Load, save, reset, or quit the running simulation",
}

func init() {
	Cmd.AddCommand(saveCmd)
	Cmd.AddCommand(loadCmd)
	Cmd.AddCommand(resetCmd)
	Cmd.AddCommand(quitCmd)
}

var saveCmd = &cobra.Command{
	Use:   "save <PATH.wbt>",
	Short: "Save the running world to a .wbt file",
	Long: `save rejects any filename not ending in ".wbt" before queuing the
command (spec.md §6's file-format gate). An s3://bucket/key destination
is saved to a local temporary .wbt file first, then uploaded once the
simulator confirms the save and the temporary file is removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := artifact.ParseDestination(args[0])

		s, err := cmdutil.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		localPath := dest.LocalPath
		if dest.IsS3 {
			tmp, err := os.CreateTemp("", "supervisorctl-world-*"+filepath.Ext(dest.Key))
			if err != nil {
				return fmt.Errorf("create temporary world file: %w", err)
			}
			localPath = tmp.Name()
			_ = tmp.Close()
			defer os.Remove(localPath)
		}

		if err := s.Engine.SaveWorld(localPath); err != nil {
			return err
		}
		ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
		defer cancel()
		if err := s.Flush(ctx); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		cmdutil.PrintSuccess(fmt.Sprintf("world saved to %s", localPath))

		if !dest.IsS3 {
			return nil
		}
		return uploadArtifact(cmd.Context(), dest, args[0], localPath)
	},
}

// uploadArtifact reads localPath's bytes and uploads them to dest,
// identifying the destination in error messages by the original string
// the caller requested (e.g. "s3://bucket/key") rather than the local
// temporary path it was staged at.
func uploadArtifact(ctx context.Context, dest artifact.Destination, destination, localPath string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Artifact.Enabled {
		return fmt.Errorf("s3 destination %q requested but artifact uploads are disabled (set artifact.enabled: true)", destination)
	}

	uploader, err := artifact.New(ctx, artifact.Config{
		Region:         cfg.Artifact.Region,
		Bucket:         cfg.Artifact.Bucket,
		Prefix:         cfg.Artifact.Prefix,
		ForcePathStyle: true,
	})
	if err != nil {
		return fmt.Errorf("init artifact uploader: %w", err)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read saved world %s: %w", localPath, err)
	}
	if err := uploader.Upload(ctx, dest, data); err != nil {
		return err
	}
	cmdutil.PrintSuccess(fmt.Sprintf("uploaded to %s", destination))
	return nil
}

var loadCmd = &cobra.Command{
	Use:   "load <PATH.wbt>",
	Short: "Load a new world, replacing the running one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cmdutil.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Engine.LoadWorld(args[0]); err != nil {
			return err
		}
		ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
		defer cancel()
		if err := s.Flush(ctx); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		cmdutil.PrintSuccess(fmt.Sprintf("world load queued: %s", args[0]))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the running simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cmdutil.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		s.Engine.ResetSimulation()
		ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
		defer cancel()
		if err := s.Flush(ctx); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		cmdutil.PrintSuccess("simulation reset")
		return nil
	},
}

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Ask the simulator to quit",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cmdutil.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		s.Engine.QuitSimulation()
		ctx, cancel := cmdutil.WithStepTimeout(cmd.Context())
		defer cancel()
		if err := s.Flush(ctx); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		cmdutil.PrintSuccess("quit requested")
		return nil
	},
}
