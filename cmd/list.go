package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all archived logs in the database",
	Annotations: map[string]string{
		dbAnnotation: dbRequired,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context) error {
	logs, err := DB.ListLogs(ctx)
	if err != nil {
		return report("Failed to list logs", err)
	}

	if len(logs) == 0 {
		fmt.Println("No logs found in database.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tPATH\tCAMERAS\tREGIONS\tEXPORTS\tARCHIVED")
	fmt.Fprintln(w, "--\t----\t-------\t-------\t-------\t--------")

	for _, l := range logs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n", shortID(l.ID), l.Path, l.Cameras, l.Regions, l.Exports, l.IndexedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
