package annotate

import (
	"fmt"
	"image"

	"github.com/andresmejia3/veil/internal/region"
	"github.com/andresmejia3/veil/internal/savefile"
)

// Coordinator owns every camera's session. Events are routed to the session
// of the originating camera; compound commands apply to each session on its
// own terms, so cameras with different frame counts clamp independently.
//
// A Coordinator is not safe for concurrent use. The interaction surface
// serialises events onto a single goroutine.
type Coordinator struct {
	sessions []*Session
	mode     DisplayMode
	savePath string
}

// NewCoordinator creates a coordinator over sessions, indexed by camera.
// savePath is where Save and Load read and write regions.
func NewCoordinator(sessions []*Session, savePath string) *Coordinator {
	return &Coordinator{sessions: sessions, mode: Preblur, savePath: savePath}
}

func (c *Coordinator) Sessions() []*Session { return c.sessions }
func (c *Coordinator) Mode() DisplayMode { return c.mode }
func (c *Coordinator) SavePath() string { return c.savePath }

// Session returns the session of camera i.
func (c *Coordinator) Session(i int) (*Session, error) {
	if i < 0 || i >= len(c.sessions) {
		return nil, fmt.Errorf("%w: cam%d", ErrNoCamera, i)
	}
	return c.sessions[i], nil
}

// Stores returns every camera's region store in camera order.
func (c *Coordinator) Stores() []*region.Store {
	out := make([]*region.Store, len(c.sessions))
	for i, s := range c.sessions {
		out[i] = s.store
	}
	return out
}

// Handle applies one pointer event. Any event other than a leave gives the
// originating camera exclusive pointer focus.
func (c *Coordinator) Handle(ev Event) error {
	s, err := c.Session(ev.Camera)
	if err != nil {
		return err
	}
	p := image.Pt(ev.X, ev.Y)

	if ev.Kind == PointerLeave {
		s.setInside(false)
		return nil
	}
	c.focus(ev.Camera)

	switch ev.Kind {
	case PointerDown:
		s.PointerDown(p)
	case PointerMove:
		s.PointerMove(p)
	case PointerUp:
		s.PointerUp(p)
	case PointerErase:
		s.pointer = p
		c.EraseAtCursors()
	default:
		return fmt.Errorf("unhandled pointer event %s", ev.Kind)
	}
	return nil
}

// focus gives cam exclusive focus. A drag left unfinished on another camera
// is abandoned.
func (c *Coordinator) focus(cam int) {
	for i, s := range c.sessions {
		s.setInside(i == cam)
		if i != cam {
			s.drag = nil
		}
	}
}

// Focused returns the camera holding pointer focus, or -1.
func (c *Coordinator) Focused() int {
	for i, s := range c.sessions {
		if s.inside {
			return i
		}
	}
	return -1
}

func (c *Coordinator) AdvanceAll(n int) {
	for _, s := range c.sessions {
		s.Advance(n)
	}
}

func (c *Coordinator) RetreatAll(n int) {
	for _, s := range c.sessions {
		s.Retreat(n)
	}
}

// SeekAllRatio jumps every camera to the same fraction of its own length.
func (c *Coordinator) SeekAllRatio(r float64) {
	for _, s := range c.sessions {
		s.SeekRatio(r)
	}
}

// ConfirmTemplateAtAllCursors stamps the template at the cursor of every
// focused session that has one, then advances every camera by one frame if
// anything was stamped.
func (c *Coordinator) ConfirmTemplateAtAllCursors() bool {
	stamped := false
	for _, s := range c.sessions {
		if s.inside && s.Stamp() {
			stamped = true
		}
	}
	if stamped {
		c.AdvanceAll(1)
	}
	return stamped
}

// EraseAtCursors removes the newest region under the cursor on the focused camera.
func (c *Coordinator) EraseAtCursors() bool {
	erased := false
	for _, s := range c.sessions {
		if s.inside && s.Erase() {
			erased = true
		}
	}
	return erased
}

// ResizeTemplates grows or shrinks the template of the focused camera.
func (c *Coordinator) ResizeTemplates(dir region.Direction) bool {
	resized := false
	for _, s := range c.sessions {
		if s.inside && s.ResizeTemplate(dir) {
			resized = true
		}
	}
	return resized
}

// MarkKeyStart pins the focused camera's template to its current frame.
func (c *Coordinator) MarkKeyStart() bool {
	marked := false
	for _, s := range c.sessions {
		if s.inside && s.MarkKeyStart() {
			marked = true
		}
	}
	return marked
}

// MarkKeyEnd completes the focused camera's pending key-frame span. It
// returns the number of regions written.
func (c *Coordinator) MarkKeyEnd() (int, error) {
	total := 0
	for _, s := range c.sessions {
		if !s.inside {
			continue
		}
		n, err := s.MarkKeyEnd()
		if err != nil {
			return total, fmt.Errorf("cam%d: %w", s.camera, err)
		}
		total += n
	}
	return total, nil
}

// ToggleDisplayMode switches between outlines and blurred rendering.
func (c *Coordinator) ToggleDisplayMode() DisplayMode {
	if c.mode == Blurred {
		c.mode = Preblur
	} else {
		c.mode = Blurred
	}
	return c.mode
}

// Render draws camera i's current view.
func (c *Coordinator) Render(i int) (*image.RGBA, error) {
	s, err := c.Session(i)
	if err != nil {
		return nil, err
	}
	return s.Render(c.mode)
}

// Save writes every camera's regions to the save file.
func (c *Coordinator) Save() error {
	return savefile.Write(c.savePath, c.Stores())
}

// Load replaces every camera's regions with the save file's. A missing file
// yields an error matching savefile.ErrNotFound and leaves the sessions
// untouched, as does a file whose cameras or frame counts do not match.
func (c *Coordinator) Load() error {
	stores, err := savefile.Read(c.savePath)
	if err != nil {
		return err
	}
	return c.Apply(stores)
}

// Apply replaces every camera's regions with stores, one per camera.
func (c *Coordinator) Apply(stores []*region.Store) error {
	if len(stores) != len(c.sessions) {
		return fmt.Errorf("saved regions cover %d cameras, log has %d", len(stores), len(c.sessions))
	}
	for i, s := range c.sessions {
		if stores[i].Len() != s.FrameCount() {
			return fmt.Errorf("cam%d: saved regions cover %d frames, log has %d", i, stores[i].Len(), s.FrameCount())
		}
	}
	for i, s := range c.sessions {
		if err := s.ReplaceRegions(stores[i]); err != nil {
			return fmt.Errorf("cam%d: %w", i, err)
		}
	}
	return nil
}
