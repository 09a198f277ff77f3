package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	resetDB    bool
	resetFiles bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset system state (Database, Save Files, Exports)",
	Long:  "Clears all data. By default, it resets everything. Use flags to clear specific components.",
	Annotations: map[string]string{
		dbAnnotation: dbRequired,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no flags are set, default to clearing EVERYTHING
		if !resetDB && !resetFiles {
			resetDB = true
			resetFiles = true
		}

		reader := bufio.NewReader(os.Stdin)

		if resetDB {
			if confirm(reader, os.Stdout, "⚠️  Are you sure you want to DROP all database tables?") {
				fmt.Println("🗑️  Clearing Database...")
				if err := DB.Reset(cmd.Context()); err != nil {
					return report("Failed to reset database", err)
				}
			}
		}

		if resetFiles {
			if confirm(reader, os.Stdout, fmt.Sprintf("⚠️  Are you sure you want to delete all save files (%s) and exports (%s)?", Cfg.SaveDir, Cfg.ExportDir)) {
				fmt.Println("🗑️  Clearing Save Files and Exports...")
				removeDir(Cfg.SaveDir)
				removeDir(Cfg.ExportDir)
			}
		}

		fmt.Println("✨ System Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDB, "tables", false, "Clear PostgreSQL database")
	resetCmd.Flags().BoolVar(&resetFiles, "files", false, "Clear save files and exported logs")
	addRigFlags(resetCmd)
	addBlurFlags(resetCmd)
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removeDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}
