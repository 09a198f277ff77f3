package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/andresmejia3/veil/internal/config"
	"github.com/andresmejia3/veil/internal/store"
	"github.com/andresmejia3/veil/internal/utils"
	"github.com/spf13/cobra"
)

// Options holds the paths shared by the commands that work on one log.
type Options struct {
	InputPath  string
	OutputPath string
	SavePath   string
	Force      bool
}

var (
	// DB is the archive connection, opened only for commands that need it.
	DB *store.Store
	// Cfg is the configuration after file and flag overrides.
	Cfg *config.Config

	dbURL   string
	cfgPath string
	flags   flagValues
)

// Version is the application version.
const Version = "0.1.0"

// dbAnnotation marks commands that talk to the archive. The value is either
// dbRequired or "if:<bool flag>" for commands where a flag opts in.
const (
	dbAnnotation = "veil/db"
	dbRequired   = "required"
)

var rootCmd = &cobra.Command{
	Use:           "veil",
	Short:         "Manual blur annotation and export for multi-camera sensor logs",
	Version:       Version, // This enables the --version flag
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return report("Failed to load configuration", err)
		}
		applyFlags(cmd, c)
		if err := c.Validate(); err != nil {
			return report("Configuration Error", err)
		}
		Cfg = c

		if !needsDB(cmd) {
			return nil
		}
		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), utils.ResolveDBURL(dbURL))
		if err != nil {
			return report("Failed to connect to database", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Background because the command context may already be cancelled (Ctrl+C)
			// and the close still has to reach the server.
			DB.Close(context.Background())
			DB = nil
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var shown *reportedError
		if !errors.As(err, &shown) {
			utils.ShowError("Command failed", err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML configuration file (default: built-in alphasense rig)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: POSTGRES_* env or "+utils.DefaultDBURL+")")
}

// reportedError marks an error whose framed block was already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// report prints the framed error block and returns err marked as shown.
func report(what string, err error) error {
	utils.ShowError(what, err)
	return &reportedError{err: err}
}

func needsDB(cmd *cobra.Command) bool {
	v := cmd.Annotations[dbAnnotation]
	if v == dbRequired {
		return true
	}
	if name, ok := strings.CutPrefix(v, "if:"); ok {
		on, err := cmd.Flags().GetBool(name)
		return err == nil && on
	}
	return false
}

// flagValues backs the configuration overrides. A value only replaces the
// configuration when its flag was set on the command line.
type flagValues struct {
	cameras       []string
	passthrough   []string
	dragThreshold int
	resizeStep    float64
	shape         string
	blurKernel    int
	quality       int
	listen        string
	saveDir       string
	exportDir     string
}

// addRigFlags registers the channel layout and save location overrides.
func addRigFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().StringSliceVar(&flags.cameras, "cameras", d.CameraChannels, "Camera channels in camera order")
	cmd.Flags().StringSliceVar(&flags.passthrough, "passthrough", d.PassthroughChannels, "Channels copied unchanged into the export")
	cmd.Flags().StringVar(&flags.saveDir, "save-dir", d.SaveDir, "Directory holding <log>_save.txt files")
}

// addBlurFlags registers the export overrides.
func addBlurFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().IntVarP(&flags.blurKernel, "blur-kernel", "k", d.BlurKernel, "Gaussian kernel size (odd)")
	cmd.Flags().IntVarP(&flags.quality, "quality", "q", d.JPEGQuality, "JPEG quality of blurred frames (1-100)")
	cmd.Flags().StringVar(&flags.exportDir, "export-dir", d.ExportDir, "Directory for <log>_blurred.mcap files")
}

// addUIFlags registers the interaction overrides.
func addUIFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().IntVar(&flags.dragThreshold, "drag-threshold", d.DragThreshold, "Pixels a drag must cover before it creates a region")
	cmd.Flags().Float64Var(&flags.resizeStep, "resize-step", d.ResizeStep, "Fraction the template grows or shrinks per step")
	cmd.Flags().StringVar(&flags.shape, "shape", d.Shape, "Blur shape: rectangle, ellipse or both")
	cmd.Flags().StringVarP(&flags.listen, "listen", "l", d.Listen, "Address of the annotation page")
}

func applyFlags(cmd *cobra.Command, c *config.Config) {
	set := cmd.Flags().Changed
	if set("cameras") {
		c.CameraChannels = flags.cameras
	}
	if set("passthrough") {
		c.PassthroughChannels = flags.passthrough
	}
	if set("save-dir") {
		c.SaveDir = flags.saveDir
	}
	if set("blur-kernel") {
		c.BlurKernel = flags.blurKernel
	}
	if set("quality") {
		c.JPEGQuality = flags.quality
	}
	if set("export-dir") {
		c.ExportDir = flags.exportDir
	}
	if set("drag-threshold") {
		c.DragThreshold = flags.dragThreshold
	}
	if set("resize-step") {
		c.ResizeStep = flags.resizeStep
	}
	if set("shape") {
		c.Shape = flags.shape
	}
	if set("listen") {
		c.Listen = flags.listen
	}
}

// validateInputFlags checks that the log to read exists and is a file.
func validateInputFlags(opts *Options) error {
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return report("Input log does not exist", err)
		}
		return report("Unable to access input log", err)
	}
	if info.IsDir() {
		return report("Input path is a directory, expected a log file", fmt.Errorf("%s is a directory", opts.InputPath))
	}
	return nil
}

// validateOutputFlags checks that an output path is usable for opts.InputPath.
// Existing outputs are refused unless Force is set.
func validateOutputFlags(opts *Options) error {
	if opts.OutputPath == "" {
		return report("Configuration Error", errors.New("output path is empty"))
	}
	if sameFile(opts.InputPath, opts.OutputPath) {
		return report("Output would overwrite the input log", fmt.Errorf("output %s is the input", opts.OutputPath))
	}
	if _, err := os.Stat(opts.OutputPath); err == nil && !opts.Force {
		return report("Output already exists", fmt.Errorf("%s exists, choose another path", opts.OutputPath))
	}
	return nil
}

func sameFile(a, b string) bool {
	ai, errA := os.Stat(a)
	bi, errB := os.Stat(b)
	if errA == nil && errB == nil {
		return os.SameFile(ai, bi)
	}
	return cleanAbs(a) == cleanAbs(b)
}

func cleanAbs(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
