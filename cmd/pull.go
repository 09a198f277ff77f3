package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/veil/internal/savefile"
	"github.com/andresmejia3/veil/internal/utils"
	"github.com/spf13/cobra"
)

var pullOpts Options

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Restore a log's save file from PostgreSQL",
	Annotations: map[string]string{
		dbAnnotation: dbRequired,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPull(cmd.Context(), pullOpts)
	},
}

func init() {
	pullCmd.Flags().StringVarP(&pullOpts.InputPath, "input", "i", "", "Path to the sensor log (.mcap)")
	pullCmd.Flags().StringVarP(&pullOpts.SavePath, "save", "s", "", "Save file to write (default: <save-dir>/<log>_save.txt)")
	pullCmd.Flags().BoolVarP(&pullOpts.Force, "force", "f", false, "Overwrite an existing save file")
	addRigFlags(pullCmd)

	pullCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(pullCmd)
}

func runPull(ctx context.Context, opts Options) error {
	if err := validateInputFlags(&opts); err != nil {
		return err
	}
	if opts.SavePath == "" {
		opts.SavePath = savefile.PathFor(Cfg.SaveDir, opts.InputPath)
	}
	opts.OutputPath = opts.SavePath
	if err := validateOutputFlags(&opts); err != nil {
		return err
	}

	logID, err := utils.GenerateLogID(opts.InputPath)
	if err != nil {
		return report("Failed to generate log ID", err)
	}
	stores, err := DB.LoadRegions(ctx, logID)
	if err != nil {
		return report("Failed to load archived regions", err)
	}
	if err := savefile.Write(opts.SavePath, stores); err != nil {
		return report("Failed to write save file", err)
	}
	fmt.Fprintf(os.Stderr, "💾 Restored %d cameras of log %s to %s\n", len(stores), logID[:12], opts.SavePath)
	return nil
}
