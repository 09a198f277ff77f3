package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/andresmejia3/veil/internal/annotate"
	"github.com/andresmejia3/veil/internal/baglog"
	"github.com/andresmejia3/veil/internal/export"
	"github.com/andresmejia3/veil/internal/region"
	"github.com/andresmejia3/veil/internal/savefile"
	"github.com/andresmejia3/veil/internal/ui"
	"github.com/spf13/cobra"
)

var annotateOpts Options

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Mark blur regions on every camera of a log in the browser",
	Long: `Loads every camera channel of the log and serves the annotation page.
Regions are read from the log's save file when one exists. Nothing is saved
unless the operator saves (w) or exports (e); quitting (q) does not save.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnnotate(cmd.Context(), annotateOpts)
	},
}

func init() {
	annotateCmd.Flags().StringVarP(&annotateOpts.InputPath, "input", "i", "", "Path to the sensor log (.mcap)")
	annotateCmd.Flags().StringVarP(&annotateOpts.SavePath, "save", "s", "", "Save file (default: <save-dir>/<log>_save.txt)")
	addRigFlags(annotateCmd)
	addUIFlags(annotateCmd)
	addBlurFlags(annotateCmd)

	annotateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(ctx context.Context, opts Options) error {
	if err := validateInputFlags(&opts); err != nil {
		return err
	}
	if opts.SavePath == "" {
		opts.SavePath = savefile.PathFor(Cfg.SaveDir, opts.InputPath)
	}

	fmt.Fprintf(os.Stderr, "📼 Loading %d camera channels from %s\n", len(Cfg.CameraChannels), opts.InputPath)
	cameras, err := baglog.LoadCameras(opts.InputPath, Cfg.CameraChannels)
	if err != nil {
		return report("Failed to load camera frames", err)
	}

	sessOpts := annotate.Options{
		DragThreshold: Cfg.DragThreshold,
		ResizeStep:    Cfg.ResizeStep,
		Shape:         Cfg.RegionShape(),
		BlurKernel:    Cfg.BlurKernel,
	}
	sessions := make([]*annotate.Session, len(cameras))
	for i, frames := range cameras {
		sessions[i] = annotate.NewSession(i, Cfg.CameraChannels[i], frames, sessOpts)
		fmt.Fprintf(os.Stderr, "   cam%d %s: %d frames\n", i, Cfg.CameraChannels[i], len(frames))
	}

	coord := annotate.NewCoordinator(sessions, opts.SavePath)
	switch err := coord.Load(); {
	case err == nil:
		fmt.Fprintf(os.Stderr, "💾 Loaded regions from %s\n", opts.SavePath)
	case errors.Is(err, savefile.ErrNotFound):
		fmt.Fprintf(os.Stderr, "🆕 No save file at %s, starting without regions\n", opts.SavePath)
	default:
		return report("Failed to load save file", err)
	}

	input := opts.InputPath
	srv := ui.New(coord, ui.Options{
		Quality: Cfg.JPEGQuality,
		Export: func(ctx context.Context, stores []*region.Store) (string, error) {
			out := export.OutputPath(Cfg.ExportDir, input)
			if _, err := exportLog(ctx, input, out, stores); err != nil {
				return "", err
			}
			return out, nil
		},
	})

	fmt.Fprintf(os.Stderr, "🚀 Annotation page at http://%s\n", Cfg.Listen)
	err = srv.Run(ctx, Cfg.Listen)
	switch {
	case errors.Is(err, ui.ErrQuit):
		fmt.Fprintf(os.Stderr, "🏁 Quit.\n")
		return nil
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(os.Stderr, "\n🛑 Interrupted. Unsaved regions were discarded.\n")
		return nil
	}
	return report("Annotation server failed", err)
}
