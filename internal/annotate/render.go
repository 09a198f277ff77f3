package annotate

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/andresmejia3/veil/internal/imagecodec"
	"github.com/andresmejia3/veil/internal/region"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	hudText   = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	hudShadow = color.RGBA{A: 255}
)

// frameCache keeps the decoded frame under the playhead so repeated renders
// on the same frame (pointer moves) skip the decode.
type frameCache struct {
	index int
	img   *image.RGBA
}

func (s *Session) decoded() (*image.RGBA, error) {
	if s.cache.img != nil && s.cache.index == s.playhead {
		return s.cache.img, nil
	}
	f := s.frames[s.playhead]
	img, err := imagecodec.Decode(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("cam%d frame %d: %w", s.camera, s.playhead, err)
	}
	s.cache = frameCache{index: s.playhead, img: img}
	return img, nil
}

// Render composes the view of the current frame: the decoded image, the
// frame's regions (outlined or blurred), the cursor affordance, the live drag
// outline and the heads-up text.
func (s *Session) Render(mode DisplayMode) (*image.RGBA, error) {
	if len(s.frames) == 0 {
		return nil, fmt.Errorf("cam%d has no frames", s.camera)
	}
	base, err := s.decoded()
	if err != nil {
		return nil, err
	}
	img := imagecodec.Clone(base)

	regions := s.store.At(s.playhead)
	switch mode {
	case Preblur:
		for _, r := range regions {
			r.DrawBorder(img, region.BorderColor, region.BorderThickness)
		}
	case Blurred:
		region.ApplyAll(img, regions, s.opts.BlurKernel)
	default:
		panic("annotate: unknown display mode " + mode.String())
	}

	if s.inside && s.drag == nil {
		if s.hasTemplate {
			s.template.Moved(s.pointer).DrawBorderWithCrosshair(img, region.BorderColor, region.BorderThickness)
		} else {
			region.DrawCrosshair(img, s.pointer, region.BorderColor, region.BorderThickness)
		}
	}

	if s.drag != nil && s.drag.exceeded {
		if live, err := region.New(s.drag.start, s.drag.current, s.opts.Shape); err == nil {
			live.DrawBorderWithCrosshair(img, region.BorderColor, region.BorderThickness)
		}
	}

	s.drawHUD(img, mode)
	return img, nil
}

func (s *Session) drawHUD(img *image.RGBA, mode DisplayMode) {
	ts := time.Unix(0, int64(s.Timestamp())).UTC().Format("15:04:05.000")
	lines := []string{
		fmt.Sprintf("cam%d %s", s.camera, s.channel),
		fmt.Sprintf("frame %d/%d  %s  %s", s.playhead+1, len(s.frames), ts, mode),
	}
	if s.anchor != nil {
		lines = append(lines, fmt.Sprintf("key start @ %d", s.anchor.frame+1))
	}

	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	for i, line := range lines {
		y := 8 + (i+1)*lineHeight
		for _, off := range []image.Point{{1, 1}, {0, 0}} {
			c := hudShadow
			if off == (image.Point{}) {
				c = hudText
			}
			d := font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(c),
				Face: face,
				Dot:  fixed.P(8+off.X, y+off.Y),
			}
			d.DrawString(line)
		}
	}
}
