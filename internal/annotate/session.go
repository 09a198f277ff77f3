// Package annotate holds the per-camera annotation state machine and the
// coordinator that routes interaction events across cameras.
package annotate

import (
	"errors"
	"image"
	"math"

	"github.com/andresmejia3/veil/internal/region"
	"github.com/andresmejia3/veil/internal/types"
)

// ErrNoCamera is returned when an event or command names a camera that does not exist.
var ErrNoCamera = errors.New("no such camera")

// Options tune how a session interprets pointer input.
type Options struct {
	// DragThreshold is the distance in pixels a drag must cover to define a new region.
	DragThreshold int
	// ResizeStep is the magnification change per grow or shrink.
	ResizeStep float64
	// Shape is given to every region the session creates.
	Shape region.Shape
	// BlurKernel is the Gaussian kernel size used in Blurred mode.
	BlurKernel int
}

// DefaultOptions returns the interaction settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		DragThreshold: 30,
		ResizeStep:    0.05,
		Shape:         region.DefaultShape,
		BlurKernel:    region.DefaultKernel,
	}
}

type drag struct {
	start, current image.Point
	exceeded       bool
}

type keyAnchor struct {
	region region.Region
	frame  int
}

// Session is the annotation state of one camera.
type Session struct {
	camera  int
	channel string
	frames  []types.Frame
	store   *region.Store
	opts    Options

	playhead int
	pointer  image.Point
	inside   bool
	drag     *drag

	// template is the session's own draft; committed regions are copies.
	template    region.Region
	hasTemplate bool
	anchor      *keyAnchor

	cache frameCache
}

// NewSession creates a session over a camera's frames. The frame sequence is
// treated as read-only from here on.
func NewSession(camera int, channel string, frames []types.Frame, opts Options) *Session {
	if opts.Shape == 0 {
		opts.Shape = region.DefaultShape
	}
	return &Session{
		camera:  camera,
		channel: channel,
		frames:  frames,
		store:   region.NewStore(len(frames)),
		opts:    opts,
		cache:   frameCache{index: -1},
	}
}

func (s *Session) Camera() int { return s.camera }
func (s *Session) Channel() string { return s.channel }
func (s *Session) FrameCount() int { return len(s.frames) }
func (s *Session) Playhead() int { return s.playhead }
func (s *Session) Store() *region.Store { return s.store }
func (s *Session) Frames() []types.Frame { return s.frames }

// Pointer returns the last known pointer position and whether it is inside this camera's view.
func (s *Session) Pointer() (image.Point, bool) { return s.pointer, s.inside }

// Dragging reports whether a drag is in progress.
func (s *Session) Dragging() bool { return s.drag != nil }

// Template returns the live template, if any.
func (s *Session) Template() (region.Region, bool) { return s.template, s.hasTemplate }

// KeyAnchor returns the pending key-frame anchor, if any.
func (s *Session) KeyAnchor() (region.Region, int, bool) {
	if s.anchor == nil {
		return region.Region{}, 0, false
	}
	return s.anchor.region, s.anchor.frame, true
}

// Timestamp returns the log time of the frame under the playhead.
func (s *Session) Timestamp() uint64 {
	if len(s.frames) == 0 {
		return 0
	}
	return s.frames[s.playhead].Timestamp
}

// Regions returns the regions on the current frame.
func (s *Session) Regions() []region.Region { return s.store.At(s.playhead) }

func (s *Session) setInside(inside bool) { s.inside = inside }

// PointerDown starts a drag at p.
func (s *Session) PointerDown(p image.Point) {
	s.pointer = p
	s.drag = &drag{start: p, current: p}
}

// PointerMove tracks the pointer and, while dragging, the drag's far corner.
func (s *Session) PointerMove(p image.Point) {
	s.pointer = p
	if s.drag == nil {
		return
	}
	s.drag.current = p
	s.drag.exceeded = s.exceedsThreshold(s.drag.start, p)
}

// PointerUp ends a drag. A drag past the threshold becomes a new region and
// the new template; a short drag stamps a copy of the template with its
// bottom-right corner at p. It reports whether a region was added.
func (s *Session) PointerUp(p image.Point) bool {
	s.pointer = p
	d := s.drag
	if d == nil {
		return false
	}
	s.drag = nil
	d.current = p
	d.exceeded = s.exceedsThreshold(d.start, p)

	if d.exceeded {
		r, err := region.New(d.start, d.current, s.opts.Shape)
		if err != nil {
			// unreachable: the threshold requires horizontal movement
			return false
		}
		s.appendCurrent(r)
		s.template, s.hasTemplate = r, true
		return true
	}
	return s.Stamp()
}

// Stamp appends a copy of the template placed at the pointer. It does nothing
// without a template.
func (s *Session) Stamp() bool {
	if !s.hasTemplate {
		return false
	}
	s.appendCurrent(s.template.Moved(s.pointer))
	return true
}

// Erase removes the newest region on the current frame under the pointer.
func (s *Session) Erase() bool {
	if len(s.frames) == 0 {
		return false
	}
	return s.store.RemoveAt(s.playhead, s.pointer)
}

func (s *Session) appendCurrent(r region.Region) {
	if len(s.frames) == 0 {
		return
	}
	// playhead is always in range, so Append cannot fail
	_ = s.store.Append(s.playhead, r)
}

// exceedsThreshold requires movement on both axes as well as enough distance.
func (s *Session) exceedsThreshold(a, b image.Point) bool {
	dx, dy := b.X-a.X, b.Y-a.Y
	t := s.opts.DragThreshold
	return dx != 0 && dy != 0 && dx*dx+dy*dy > t*t
}

// ResizeTemplate grows or shrinks the live template by the configured step.
func (s *Session) ResizeTemplate(dir region.Direction) bool {
	if !s.hasTemplate {
		return false
	}
	s.template.Resize(s.opts.ResizeStep, dir)
	return true
}

// MarkKeyStart pins a copy of the template to the current frame.
func (s *Session) MarkKeyStart() bool {
	if !s.hasTemplate {
		return false
	}
	s.anchor = &keyAnchor{region: s.template, frame: s.playhead}
	return true
}

// MarkKeyEnd fills every frame from the anchor frame to the playhead
// inclusive: the anchor on its own frame, the current template on this frame,
// and interpolated regions in between. Regions are appended, so repeating the
// same span duplicates them. Ending before the anchor does nothing and keeps
// the anchor.
func (s *Session) MarkKeyEnd() (int, error) {
	if s.anchor == nil || s.playhead < s.anchor.frame {
		return 0, nil
	}
	a := s.anchor
	if s.playhead == a.frame {
		s.appendCurrent(a.region)
		s.anchor = nil
		return 1, nil
	}
	if !s.hasTemplate {
		return 0, nil
	}

	span, err := region.Span(a.frame, a.region, s.playhead, s.template)
	if err != nil {
		return 0, err
	}
	for _, k := range span {
		if err := s.store.Append(k.Frame, k.Region); err != nil {
			return 0, err
		}
	}
	s.anchor = nil
	return len(span), nil
}

// Advance moves the playhead forward by n frames, stopping at the last frame.
func (s *Session) Advance(n int) { s.seek(s.playhead + n) }

// Retreat moves the playhead back by n frames, stopping at the first frame.
func (s *Session) Retreat(n int) { s.seek(s.playhead - n) }

// SeekRatio jumps to max(0, floor(r*frames)-1).
func (s *Session) SeekRatio(r float64) {
	s.seek(int(math.Floor(r*float64(len(s.frames)))) - 1)
}

func (s *Session) seek(i int) {
	last := len(s.frames) - 1
	if i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	s.playhead = i
}

// ReplaceRegions swaps in a loaded store. Regions take this session's shape.
func (s *Session) ReplaceRegions(loaded *region.Store) error {
	shaped := region.NewStore(loaded.Len())
	var appendErr error
	loaded.Each(func(frame int, r region.Region) {
		if err := shaped.Append(frame, r.WithShape(s.opts.Shape)); err != nil && appendErr == nil {
			appendErr = err
		}
	})
	if appendErr != nil {
		return appendErr
	}
	return s.store.Replace(shaped)
}
