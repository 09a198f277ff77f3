package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/veil/internal/savefile"
	"github.com/andresmejia3/veil/internal/utils"
	"github.com/spf13/cobra"
)

var pushOpts Options

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Archive a log's save file in PostgreSQL",
	Annotations: map[string]string{
		dbAnnotation: dbRequired,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPush(cmd.Context(), pushOpts)
	},
}

func init() {
	pushCmd.Flags().StringVarP(&pushOpts.InputPath, "input", "i", "", "Path to the sensor log (.mcap)")
	pushCmd.Flags().StringVarP(&pushOpts.SavePath, "save", "s", "", "Save file (default: <save-dir>/<log>_save.txt)")
	addRigFlags(pushCmd)

	pushCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(pushCmd)
}

func runPush(ctx context.Context, opts Options) error {
	if err := validateInputFlags(&opts); err != nil {
		return err
	}
	if opts.SavePath == "" {
		opts.SavePath = savefile.PathFor(Cfg.SaveDir, opts.InputPath)
	}
	stores, err := savefile.Read(opts.SavePath)
	if err != nil {
		return report("Failed to read save file", err)
	}
	if len(stores) != len(Cfg.CameraChannels) {
		return report("Save file does not match the camera channels",
			fmt.Errorf("save file has %d cameras, %d channels configured", len(stores), len(Cfg.CameraChannels)))
	}

	logID, err := utils.GenerateLogID(opts.InputPath)
	if err != nil {
		return report("Failed to generate log ID", err)
	}
	if err := DB.ReplaceRegions(ctx, logID, opts.InputPath, Cfg.CameraChannels, stores); err != nil {
		return report("Failed to archive regions", err)
	}

	total := 0
	for _, s := range stores {
		total += s.Count()
	}
	fmt.Fprintf(os.Stderr, "🗄️  Archived %d regions over %d cameras as log %s\n", total, len(stores), logID[:12])
	return nil
}
