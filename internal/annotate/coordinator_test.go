package annotate

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/veil/internal/region"
	"github.com/andresmejia3/veil/internal/savefile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, frameCounts ...int) *Coordinator {
	t.Helper()
	sessions := make([]*Session, len(frameCounts))
	for i, n := range frameCounts {
		sessions[i] = NewSession(i, "/cam", grayFrames(t, n, 64, 48), DefaultOptions())
	}
	return NewCoordinator(sessions, filepath.Join(t.TempDir(), "log_save.txt"))
}

func TestHandleRoutesToCamera(t *testing.T) {
	c := newTestCoordinator(t, 5, 5, 5)

	require.NoError(t, c.Handle(Event{Camera: 1, Kind: PointerDown, X: 1, Y: 1}))
	require.NoError(t, c.Handle(Event{Camera: 1, Kind: PointerMove, X: 40, Y: 30}))
	require.NoError(t, c.Handle(Event{Camera: 1, Kind: PointerUp, X: 40, Y: 30}))

	assert.Zero(t, c.sessions[0].store.Count())
	assert.Equal(t, 1, c.sessions[1].store.Count())
	assert.Zero(t, c.sessions[2].store.Count())
}

func TestHandleUnknownCamera(t *testing.T) {
	c := newTestCoordinator(t, 3)
	err := c.Handle(Event{Camera: 3, Kind: PointerMove})
	assert.True(t, errors.Is(err, ErrNoCamera))
	_, err = c.Render(-1)
	assert.True(t, errors.Is(err, ErrNoCamera))
}

func TestPointerFocusIsExclusive(t *testing.T) {
	c := newTestCoordinator(t, 3, 3, 3)

	require.NoError(t, c.Handle(Event{Camera: 0, Kind: PointerMove, X: 5, Y: 5}))
	assert.Equal(t, 0, c.Focused())

	require.NoError(t, c.Handle(Event{Camera: 2, Kind: PointerMove, X: 5, Y: 5}))
	assert.Equal(t, 2, c.Focused())
	for i, s := range c.sessions {
		_, inside := s.Pointer()
		assert.Equal(t, i == 2, inside, "cam%d", i)
	}

	require.NoError(t, c.Handle(Event{Camera: 2, Kind: PointerLeave}))
	assert.Equal(t, -1, c.Focused())
}

func TestFocusChangeAbandonsDrag(t *testing.T) {
	c := newTestCoordinator(t, 3, 3)

	require.NoError(t, c.Handle(Event{Camera: 0, Kind: PointerDown, X: 10, Y: 10}))
	require.NoError(t, c.Handle(Event{Camera: 0, Kind: PointerMove, X: 50, Y: 40}))
	require.True(t, c.sessions[0].Dragging())

	require.NoError(t, c.Handle(Event{Camera: 1, Kind: PointerUp, X: 50, Y: 40}))
	assert.False(t, c.sessions[0].Dragging())
	assert.False(t, c.sessions[1].Dragging())

	require.NoError(t, c.Handle(Event{Camera: 0, Kind: PointerMove, X: 20, Y: 20}))
	assert.False(t, c.sessions[0].Dragging())
	assert.Zero(t, c.sessions[0].store.Count())
	assert.Zero(t, c.sessions[1].store.Count())
}

func TestShrunkTemplateSurvivesSaveLoad(t *testing.T) {
	c := newTestCoordinator(t, 3)
	require.NoError(t, c.Handle(Event{Camera: 0, Kind: PointerDown, X: 10, Y: 10}))
	require.NoError(t, c.Handle(Event{Camera: 0, Kind: PointerUp, X: 15, Y: 60}))
	for i := 0; i < 40; i++ {
		c.ResizeTemplates(region.Shrink)
	}
	require.NoError(t, c.Handle(Event{Camera: 0, Kind: PointerMove, X: 100, Y: 100}))
	require.True(t, c.ConfirmTemplateAtAllCursors())
	require.NoError(t, c.Save())

	fresh := newTestCoordinator(t, 3)
	fresh.savePath = c.SavePath()
	require.NoError(t, fresh.Load())
	assert.Equal(t, []string{"10 10 15 60", "99 90 100 100"}, regionTexts(fresh.sessions[0].store.At(0)))
}

func TestConfirmAtCursorsAdvancesAll(t *testing.T) {
	c := newTestCoordinator(t, 3, 10)
	s := c.sessions[1]
	s.template, s.hasTemplate = mustRegion(t, 0, 0, 10, 10), true
	require.NoError(t, c.Handle(Event{Camera: 1, Kind: PointerMove, X: 30, Y: 20}))

	require.True(t, c.ConfirmTemplateAtAllCursors())
	assert.Equal(t, []string{"20 10 30 20"}, regionTexts(s.store.At(0)))
	assert.Equal(t, 1, c.sessions[0].Playhead())
	assert.Equal(t, 1, s.Playhead())

	c.ConfirmTemplateAtAllCursors()
	c.ConfirmTemplateAtAllCursors()
	assert.Equal(t, 2, c.sessions[0].Playhead(), "short camera clamps on its own")
	assert.Equal(t, 3, s.Playhead())
}

func TestConfirmWithoutTemplateDoesNotAdvance(t *testing.T) {
	c := newTestCoordinator(t, 5, 5)
	require.NoError(t, c.Handle(Event{Camera: 0, Kind: PointerMove, X: 30, Y: 20}))

	assert.False(t, c.ConfirmTemplateAtAllCursors())
	assert.Equal(t, 0, c.sessions[0].Playhead())
}

func TestConfirmIgnoresUnfocusedTemplates(t *testing.T) {
	c := newTestCoordinator(t, 5, 5)
	c.sessions[0].template, c.sessions[0].hasTemplate = mustRegion(t, 0, 0, 10, 10), true
	require.NoError(t, c.Handle(Event{Camera: 1, Kind: PointerMove, X: 30, Y: 20}))

	assert.False(t, c.ConfirmTemplateAtAllCursors())
	assert.Zero(t, c.sessions[0].store.Count())
}

func TestCompoundSeekClampsPerCamera(t *testing.T) {
	c := newTestCoordinator(t, 10, 100)
	c.SeekAllRatio(0.5)
	assert.Equal(t, 4, c.sessions[0].Playhead())
	assert.Equal(t, 49, c.sessions[1].Playhead())

	c.AdvanceAll(10)
	assert.Equal(t, 9, c.sessions[0].Playhead())
	assert.Equal(t, 59, c.sessions[1].Playhead())

	c.RetreatAll(10)
	assert.Equal(t, 0, c.sessions[0].Playhead())
	assert.Equal(t, 49, c.sessions[1].Playhead())
}

func TestEraseEvent(t *testing.T) {
	c := newTestCoordinator(t, 2, 2)
	require.NoError(t, c.sessions[1].store.Append(0, mustRegion(t, 0, 0, 20, 20)))
	require.NoError(t, c.sessions[1].store.Append(0, mustRegion(t, 10, 10, 30, 30)))

	require.NoError(t, c.Handle(Event{Camera: 1, Kind: PointerErase, X: 15, Y: 15}))
	assert.Equal(t, []string{"0 0 20 20"}, regionTexts(c.sessions[1].store.At(0)))
}

func TestKeyFrameCommandsFollowFocus(t *testing.T) {
	c := newTestCoordinator(t, 10, 10)
	s := c.sessions[0]
	require.NoError(t, c.Handle(Event{Camera: 0, Kind: PointerDown, X: 0, Y: 0}))
	require.NoError(t, c.Handle(Event{Camera: 0, Kind: PointerUp, X: 40, Y: 40}))
	require.True(t, c.MarkKeyStart())

	c.AdvanceAll(4)
	s.template = s.template.Moved(image.Pt(44, 44))
	n, err := c.MarkKeyEnd()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"1 1 41 41"}, regionTexts(s.store.At(1)))
	assert.Zero(t, c.sessions[1].store.Count())
}

func TestResizeTemplatesOnlyFocused(t *testing.T) {
	c := newTestCoordinator(t, 2, 2)
	c.sessions[0].template, c.sessions[0].hasTemplate = mustRegion(t, 0, 0, 20, 10), true
	c.sessions[1].template, c.sessions[1].hasTemplate = mustRegion(t, 0, 0, 20, 10), true
	require.NoError(t, c.Handle(Event{Camera: 1, Kind: PointerMove, X: 1, Y: 1}))

	require.True(t, c.ResizeTemplates(region.Shrink))
	assert.Equal(t, 20, c.sessions[0].template.Width())
	assert.Equal(t, 19, c.sessions[1].template.Width())
}

func TestToggleDisplayMode(t *testing.T) {
	c := newTestCoordinator(t, 1)
	assert.Equal(t, Preblur, c.Mode())
	assert.Equal(t, Blurred, c.ToggleDisplayMode())
	assert.Equal(t, Preblur, c.ToggleDisplayMode())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := newTestCoordinator(t, 20, 4)
	require.NoError(t, c.sessions[0].store.Append(0, mustRegion(t, 1, 1, 9, 9)))
	require.NoError(t, c.sessions[0].store.Append(5, mustRegion(t, 2, 2, 8, 8)))
	require.NoError(t, c.sessions[0].store.Append(5, mustRegion(t, 3, 3, 7, 7)))
	require.NoError(t, c.sessions[0].store.Append(19, mustRegion(t, 4, 4, 6, 6)))
	require.NoError(t, c.Save())

	fresh := NewCoordinator([]*Session{
		NewSession(0, "/cam", grayFrames(t, 20, 8, 8), DefaultOptions()),
		NewSession(1, "/cam", grayFrames(t, 4, 8, 8), DefaultOptions()),
	}, c.SavePath())
	require.NoError(t, fresh.Load())

	for _, frame := range []int{0, 5, 19} {
		assert.Equal(t,
			regionTexts(c.sessions[0].store.At(frame)),
			regionTexts(fresh.sessions[0].store.At(frame)),
			"frame %d", frame)
	}
	assert.Equal(t, 4, fresh.sessions[0].store.Count())
	assert.Zero(t, fresh.sessions[1].store.Count())
}

func TestLoadMissingFileKeepsState(t *testing.T) {
	c := newTestCoordinator(t, 3)
	require.NoError(t, c.sessions[0].store.Append(1, mustRegion(t, 0, 0, 5, 5)))

	err := c.Load()
	assert.True(t, errors.Is(err, savefile.ErrNotFound))
	assert.Equal(t, 1, c.sessions[0].store.Count())
}

func TestLoadRejectsMismatchedFrameCounts(t *testing.T) {
	c := newTestCoordinator(t, 3, 3)
	require.NoError(t, c.sessions[1].store.Append(1, mustRegion(t, 0, 0, 5, 5)))
	require.NoError(t, c.Save())

	other := NewCoordinator([]*Session{
		NewSession(0, "/cam", grayFrames(t, 3, 8, 8), DefaultOptions()),
		NewSession(1, "/cam", grayFrames(t, 7, 8, 8), DefaultOptions()),
	}, c.SavePath())
	assert.Error(t, other.Load())
	assert.Zero(t, other.sessions[0].store.Count())
	assert.Zero(t, other.sessions[1].store.Count())
}
