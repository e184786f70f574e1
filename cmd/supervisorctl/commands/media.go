package commands

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

// mediaCmd groups the one-shot recording/export commands spec.md §6
// describes as external collaborators with no state machine beyond
// "enqueue, flush, read scalar reply": image export and movie/animation
// recording. A destination naming an s3:// URL is uploaded through
// internal/artifact after the simulator confirms it wrote the local
// file, rather than sent to the simulator verbatim, since the simulator
// itself has no notion of an S3 destination.
var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Export images and record movies/animations",
}

var (
	exportQuality int32
)

var exportImageCmd = &cobra.Command{
	Use:   "export-image <PATH>",
	Short: "Export the current simulator view to an image file",
	Long: `export-image rejects any destination without a .png/.jpg/.jpeg
extension before queuing the command. An s3://bucket/key destination is
exported to a local temporary file first, then uploaded once the
simulator confirms the export and the temporary file is removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportViaArtifact(cmd.Context(), args[0], func(s *cmdutil.Session, localPath string) error {
			return s.Engine.ExportImage(localPath, exportQuality)
		})
	},
}

var movieStartCmd = &cobra.Command{
	Use:   "movie-start <PATH.mp4|PATH.avi>",
	Short: "Start recording a movie",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cmdutil.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Engine.StartMovie(args[0], movieWidth, movieHeight, movieCodec, movieQuality); err != nil {
			return err
		}
		return flushAndReport(cmd.Context(), s, fmt.Sprintf("movie recording started: %s", args[0]))
	},
}

var movieStopCmd = &cobra.Command{
	Use:   "movie-stop",
	Short: "Stop recording a movie",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cmdutil.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		s.Engine.StopMovie()
		return flushAndReport(cmd.Context(), s, "movie recording stopped")
	},
}

var animationStartCmd = &cobra.Command{
	Use:   "animation-start <PATH.html>",
	Short: "Start recording an HTML animation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cmdutil.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Engine.StartAnimation(args[0]); err != nil {
			return err
		}
		return flushAndReport(cmd.Context(), s, fmt.Sprintf("animation recording started: %s", args[0]))
	},
}

var animationStopCmd = &cobra.Command{
	Use:   "animation-stop",
	Short: "Stop recording an HTML animation",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cmdutil.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		s.Engine.StopAnimation()
		return flushAndReport(cmd.Context(), s, "animation recording stopped")
	},
}

var (
	movieWidth, movieHeight, movieCodec, movieQuality int32
)

func init() {
	exportImageCmd.Flags().Int32Var(&exportQuality, "quality", 100, "JPEG quality, 0-100 (ignored for PNG)")
	movieStartCmd.Flags().Int32Var(&movieWidth, "width", 640, "Movie width in pixels")
	movieStartCmd.Flags().Int32Var(&movieHeight, "height", 480, "Movie height in pixels")
	movieStartCmd.Flags().Int32Var(&movieCodec, "codec", 0, "Movie codec id")
	movieStartCmd.Flags().Int32Var(&movieQuality, "quality", 100, "Movie quality, 0-100")

	mediaCmd.AddCommand(exportImageCmd)
	mediaCmd.AddCommand(movieStartCmd)
	mediaCmd.AddCommand(movieStopCmd)
	mediaCmd.AddCommand(animationStartCmd)
	mediaCmd.AddCommand(animationStopCmd)
}

// flushAndReport flushes s's current step and prints a success message,
// the shape every one-shot media/world command shares.
func flushAndReport(ctx context.Context, s *cmdutil.Session, successMsg string) error {
	flushCtx, cancel := cmdutil.WithStepTimeout(ctx)
	defer cancel()
	if err := s.Flush(flushCtx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	cmdutil.PrintSuccess(successMsg)
	return nil
}

// exportViaArtifact runs queueFn against a local path: the destination
// itself when it names a plain filesystem path, or a temporary local
// file in the same directory tree when it names an s3:// URL, which is
// uploaded and removed once the simulator's reply confirms the export.
func exportViaArtifact(ctx context.Context, destination string, queueFn func(s *cmdutil.Session, localPath string) error) error {
	dest := artifact.ParseDestination(destination)

	s, err := cmdutil.Connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	localPath := dest.LocalPath
	if dest.IsS3 {
		tmp, err := os.CreateTemp("", "supervisorctl-export-*"+filepath.Ext(dest.Key))
		if err != nil {
			return fmt.Errorf("create temporary export file: %w", err)
		}
		localPath = tmp.Name()
		_ = tmp.Close()
		defer os.Remove(localPath)
	}

	if err := queueFn(s, localPath); err != nil {
		return err
	}
	if err := flushAndReport(ctx, s, fmt.Sprintf("exported to %s", localPath)); err != nil {
		return err
	}

	if !dest.IsS3 {
		return nil
	}

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
		return fmt.Errorf("read exported file %s: %w", localPath, err)
	}
	if err := uploader.Upload(ctx, dest, data); err != nil {
		return err
	}
	cmdutil.PrintSuccess(fmt.Sprintf("uploaded to %s", destination))
	return nil
}
