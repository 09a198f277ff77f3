package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/veil/internal/baglog"
	"github.com/spf13/cobra"
)

var channelsOpts Options

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List the channels of a log and what export does with each",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChannels(channelsOpts)
	},
}

func init() {
	channelsCmd.Flags().StringVarP(&channelsOpts.InputPath, "input", "i", "", "Path to the sensor log (.mcap)")
	addRigFlags(channelsCmd)

	channelsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(channelsCmd)
}

func runChannels(opts Options) error {
	if err := validateInputFlags(&opts); err != nil {
		return err
	}
	r, err := baglog.Open(opts.InputPath)
	if err != nil {
		return report("Failed to open log", err)
	}
	defer r.Close()

	stats, err := r.Channels()
	if err != nil {
		return report("Failed to read log", err)
	}
	if len(stats) == 0 {
		fmt.Println("No channels found in log.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tENCODING\tSCHEMA\tMESSAGES\tEXPORT")
	fmt.Fprintln(w, "-------\t--------\t------\t--------\t------")
	for _, st := range stats {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", st.Topic, st.MessageEncoding, st.SchemaName, st.Messages, channelRole(st.Topic))
	}
	return w.Flush()
}

// channelRole names what an export does with a channel.
func channelRole(topic string) string {
	for i, ch := range Cfg.CameraChannels {
		if ch == topic {
			return fmt.Sprintf("blur (cam%d)", i)
		}
	}
	for _, ch := range Cfg.PassthroughChannels {
		if ch == topic {
			return "copy"
		}
	}
	return "drop"
}
