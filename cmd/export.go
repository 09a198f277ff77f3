package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresmejia3/veil/internal/export"
	"github.com/andresmejia3/veil/internal/region"
	"github.com/andresmejia3/veil/internal/savefile"
	"github.com/andresmejia3/veil/internal/store"
	"github.com/andresmejia3/veil/internal/utils"
	"github.com/spf13/cobra"
)

var (
	exportOpts   Options
	exportRecord bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the blurred log from an existing save file, without the browser",
	Annotations: map[string]string{
		dbAnnotation: "if:record",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), exportOpts)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOpts.InputPath, "input", "i", "", "Path to the sensor log (.mcap)")
	exportCmd.Flags().StringVarP(&exportOpts.OutputPath, "output", "o", "", "Output log (default: <export-dir>/<log>_blurred.mcap)")
	exportCmd.Flags().StringVarP(&exportOpts.SavePath, "save", "s", "", "Save file (default: <save-dir>/<log>_save.txt)")
	exportCmd.Flags().BoolVar(&exportRecord, "record", false, "Archive the regions and the export run in PostgreSQL")
	addRigFlags(exportCmd)
	addBlurFlags(exportCmd)

	exportCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(exportCmd)
}

func runExport(ctx context.Context, opts Options) error {
	if err := validateInputFlags(&opts); err != nil {
		return err
	}
	if opts.OutputPath == "" {
		opts.OutputPath = export.OutputPath(Cfg.ExportDir, opts.InputPath)
	}
	if err := validateOutputFlags(&opts); err != nil {
		return err
	}
	if opts.SavePath == "" {
		opts.SavePath = savefile.PathFor(Cfg.SaveDir, opts.InputPath)
	}

	stores, err := savefile.Read(opts.SavePath)
	if err != nil {
		if errors.Is(err, savefile.ErrNotFound) {
			return report("No save file for this log, annotate it first", err)
		}
		return report("Failed to read save file", err)
	}

	if _, err := exportLog(ctx, opts.InputPath, opts.OutputPath, stores); err != nil {
		return report("Export failed", err)
	}
	return nil
}

// exportLog writes the blurred copy of input to output and, when the archive
// is connected, records the regions and the run.
func exportLog(ctx context.Context, input, output string, stores []*region.Store) (export.Stats, error) {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return export.Stats{}, fmt.Errorf("failed to create export directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "🌫️  Exporting %s -> %s\n", input, output)
	e := export.New(export.Options{
		Input:               input,
		Output:              output,
		CameraChannels:      Cfg.CameraChannels,
		PassthroughChannels: Cfg.PassthroughChannels,
		BlurKernel:          Cfg.BlurKernel,
		Quality:             Cfg.JPEGQuality,
	})
	stats, err := e.Run(ctx, stores)
	if err != nil {
		return stats, err
	}
	fmt.Fprintf(os.Stderr, "✅ Export complete: %d blurred, %d unchanged, %d failed, %d passed through, %d dropped\n",
		stats.Blurred, stats.Untouched, stats.Failed, stats.PassedThrough, stats.Dropped)

	if DB == nil {
		return stats, nil
	}
	logID, err := utils.GenerateLogID(input)
	if err != nil {
		return stats, fmt.Errorf("failed to generate log ID: %w", err)
	}
	if err := DB.ReplaceRegions(ctx, logID, input, Cfg.CameraChannels, stores); err != nil {
		return stats, fmt.Errorf("failed to archive regions: %w", err)
	}
	id, err := DB.RecordExport(ctx, store.ExportRun{
		LogID:         logID,
		OutputPath:    output,
		Blurred:       stats.Blurred,
		PassedThrough: stats.PassedThrough,
	})
	if err != nil {
		return stats, fmt.Errorf("failed to record export: %w", err)
	}
	fmt.Fprintf(os.Stderr, "🗄️  Recorded export %s for log %s\n", id, logID[:12])
	return stats, nil
}
