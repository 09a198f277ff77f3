package annotate

import (
	"fmt"
	"strings"
)

// EventKind is the kind of a pointer event coming from the interaction surface.
type EventKind int

const (
	PointerDown EventKind = iota + 1
	PointerMove
	PointerUp
	PointerLeave
	// PointerErase is either of the two erase buttons.
	PointerErase
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerLeave:
		return "leave"
	case PointerErase:
		return "erase"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// ParseEventKind converts the wire name of an event ("down", "move", ...) to an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	switch strings.ToLower(s) {
	case "down":
		return PointerDown, nil
	case "move":
		return PointerMove, nil
	case "up":
		return PointerUp, nil
	case "leave":
		return PointerLeave, nil
	case "erase":
		return PointerErase, nil
	}
	return 0, fmt.Errorf("unknown pointer event '%s'", s)
}

// Event is one pointer event on one camera view, in image pixel coordinates.
type Event struct {
	Camera int
	Kind   EventKind
	X, Y   int
}

// DisplayMode selects whether regions are drawn as outlines or blurred.
type DisplayMode int

const (
	Preblur DisplayMode = iota + 1
	Blurred
)

func (m DisplayMode) String() string {
	switch m {
	case Preblur:
		return "preblur"
	case Blurred:
		return "blurred"
	}
	return fmt.Sprintf("DisplayMode(%d)", int(m))
}
