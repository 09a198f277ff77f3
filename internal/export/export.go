// Package export rewrites a sensor log with every annotated region blurred.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/veil/internal/baglog"
	"github.com/andresmejia3/veil/internal/imagecodec"
	"github.com/andresmejia3/veil/internal/region"
	"github.com/schollz/progressbar/v3"
)

// Options configures an export.
type Options struct {
	Input               string
	Output              string
	CameraChannels      []string
	PassthroughChannels []string
	BlurKernel          int
	Quality             int
}

// Stats counts what an export did with each message.
type Stats struct {
	Blurred       int // camera frames re-encoded with regions applied
	Untouched     int // camera frames copied byte for byte
	Failed        int // camera frames that could not be blurred and were copied
	PassedThrough int // pass-through channel messages
	Dropped       int // messages on other channels
}

// Exporter walks the source log once, in file order, and writes the output.
type Exporter struct {
	opts Options
}

func New(opts Options) *Exporter {
	if opts.BlurKernel == 0 {
		opts.BlurKernel = region.DefaultKernel
	}
	if opts.Quality == 0 {
		opts.Quality = imagecodec.DefaultQuality
	}
	return &Exporter{opts: opts}
}

// Run exports the log. stores holds one region store per camera channel, in
// the same order as Options.CameraChannels; frame i of a camera is the i-th
// message on its channel. Frames without regions are written unchanged.
// A frame that fails to decode or encode is written unchanged with a warning.
func (e *Exporter) Run(ctx context.Context, stores []*region.Store) (Stats, error) {
	var stats Stats
	if len(stores) != len(e.opts.CameraChannels) {
		return stats, fmt.Errorf("got regions for %d cameras, expected %d", len(stores), len(e.opts.CameraChannels))
	}

	cameras := make(map[string]int, len(e.opts.CameraChannels))
	for i, ch := range e.opts.CameraChannels {
		cameras[ch] = i
	}
	passthrough := make(map[string]bool, len(e.opts.PassthroughChannels))
	for _, ch := range e.opts.PassthroughChannels {
		passthrough[ch] = true
	}
	ordinals := make([]int, len(stores))

	if _, err := os.Stat(e.opts.Output); err == nil {
		return stats, fmt.Errorf("output log %s already exists", e.opts.Output)
	}
	r, err := baglog.Open(e.opts.Input)
	if err != nil {
		return stats, err
	}
	defer r.Close()

	var w *baglog.Writer
	defer func() {
		if w != nil {
			w.Close()
		}
	}()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("🌫️  Exporting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)

	err = r.Messages(func(rec baglog.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		cam, isCamera := cameras[rec.Channel.Topic]
		if !isCamera && !passthrough[rec.Channel.Topic] {
			stats.Dropped++
			return nil
		}
		if w == nil {
			var err error
			if w, err = baglog.Create(e.opts.Output, baglog.ProfileFor(rec.Encoding)); err != nil {
				return err
			}
		}
		defer bar.Add(1)

		if !isCamera {
			stats.PassedThrough++
			return w.Write(rec)
		}

		frame := ordinals[cam]
		ordinals[cam]++
		regions := stores[cam].At(frame)
		if len(regions) == 0 {
			stats.Untouched++
			return w.Write(rec)
		}

		data, err := e.blur(rec, regions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n⚠️  %s frame %d left unblurred: %v\n", rec.Channel.Topic, frame, err)
			stats.Failed++
			return w.Write(rec)
		}
		stats.Blurred++
		rec.Data = data
		return w.Write(rec)
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return stats, err
	}

	for i, ch := range e.opts.CameraChannels {
		if ordinals[i] != stores[i].Len() {
			fmt.Fprintf(os.Stderr, "⚠️  %s: log has %d frames, regions cover %d\n", ch, ordinals[i], stores[i].Len())
		}
	}

	if w == nil {
		return stats, errors.New("no camera or pass-through messages to export")
	}
	err = w.Close()
	w = nil
	return stats, err
}

// blur returns rec's message with every region applied to its image, in order.
func (e *Exporter) blur(rec baglog.Record, regions []region.Region) ([]byte, error) {
	msg, err := baglog.DecodeCompressedImage(rec.Encoding, rec.Data)
	if err != nil {
		return nil, err
	}
	img, err := imagecodec.Decode(msg.Data)
	if err != nil {
		return nil, err
	}
	region.ApplyAll(img, regions, e.opts.BlurKernel)

	encoded, err := imagecodec.EncodeJPEG(img, e.opts.Quality)
	if err != nil {
		return nil, err
	}
	msg.Format = "jpeg"
	msg.Data = encoded
	return baglog.EncodeCompressedImage(rec.Encoding, msg)
}

// OutputPath returns where the export of logPath is written: <dir>/<stem>_blurred<ext>.
func OutputPath(dir, logPath string) string {
	ext := filepath.Ext(logPath)
	stem := strings.TrimSuffix(filepath.Base(logPath), ext)
	return filepath.Join(dir, stem+"_blurred"+ext)
}
