// Package region implements the geometric primitive used to mark faces for
// de-identification, the per-frame collection of those regions, and linear
// interpolation between two anchored regions.
package region

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// ErrZeroWidth is returned when a region would have no horizontal extent.
// The aspect ratio of such a region is undefined.
var ErrZeroWidth = errors.New("region has zero width")

// Shape selects how a region is outlined and blurred.
type Shape int

const (
	Rectangle Shape = iota + 1
	Ellipse
	Both
)

// DefaultShape is used for regions created without an explicit shape,
// including every region read back from a save file.
const DefaultShape = Ellipse

func (s Shape) String() string {
	switch s {
	case Rectangle:
		return "rectangle"
	case Ellipse:
		return "ellipse"
	case Both:
		return "both"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// ParseShape converts a config value ("rectangle", "ellipse", "both") to a Shape.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rectangle", "rect":
		return Rectangle, nil
	case "ellipse":
		return Ellipse, nil
	case "both":
		return Both, nil
	}
	return 0, fmt.Errorf("invalid shape '%s'. Must be one of: rectangle, ellipse, both", s)
}

// Direction is the sense of a Resize call.
type Direction int

const (
	Grow Direction = iota + 1
	Shrink
)

// Region is an axis-aligned box marking pixels to de-identify in one frame.
//
// Region is a plain value: copying it produces an independent region, so a
// committed region held by a Store never aliases the session's draft.
type Region struct {
	start, end image.Point
	shape      Shape

	magnification float64
	originalWidth int
	aspectRatio   float64
}

// New creates a region spanning the two corners, in any order.
func New(start, end image.Point, shape Shape) (Region, error) {
	r := Region{shape: shape}
	if err := r.Set(start, end); err != nil {
		return Region{}, err
	}
	return r, nil
}

// Set redefines the region from two corners. Corners are normalised so that
// Start is the top-left and End the bottom-right. The resize footprint is
// captured from the new size and magnification is reset to 1.
func (r *Region) Set(a, b image.Point) error {
	start := image.Pt(min(a.X, b.X), min(a.Y, b.Y))
	end := image.Pt(max(a.X, b.X), max(a.Y, b.Y))
	w, h := end.X-start.X, end.Y-start.Y
	if w == 0 {
		return ErrZeroWidth
	}
	if r.shape == 0 {
		r.shape = DefaultShape
	}
	r.start, r.end = start, end
	r.originalWidth = w
	r.aspectRatio = float64(h) / float64(w)
	r.magnification = 1.0
	return nil
}

// Start returns the top-left corner.
func (r Region) Start() image.Point { return r.start }

// End returns the bottom-right corner.
func (r Region) End() image.Point { return r.end }

func (r Region) Width() int { return r.end.X - r.start.X }
func (r Region) Height() int { return r.end.Y - r.start.Y }

// Bounds returns the region as an image.Rectangle (End is the exclusive Max).
func (r Region) Bounds() image.Rectangle { return image.Rectangle{Min: r.start, Max: r.end} }

func (r Region) Shape() Shape { return r.shape }

// Magnification is the current scale relative to the footprint captured by Set.
func (r Region) Magnification() float64 { return r.magnification }

// WithShape returns a copy of r with a different shape.
func (r Region) WithShape(s Shape) Region {
	r.shape = s
	return r
}

// Center returns the integer centre used for the ellipse and the crosshair.
func (r Region) Center() image.Point {
	return image.Pt(floorDiv(r.start.X+r.end.X, 2), floorDiv(r.start.Y+r.end.Y, 2))
}

// Equal reports whether both regions cover the same corners.
func (r Region) Equal(o Region) bool {
	return r.start == o.start && r.end == o.end
}

// Contains is an inclusive hit test against the bounding box.
func (r Region) Contains(x, y int) bool {
	return r.start.X <= x && x <= r.end.X && r.start.Y <= y && y <= r.end.Y
}

// MoveTo places the region so that (x, y) becomes its bottom-right corner.
// Width and height are unchanged.
func (r *Region) MoveTo(x, y int) {
	w, h := r.Width(), r.Height()
	r.end = image.Pt(x, y)
	r.start = image.Pt(x-w, y-h)
}

// Moved returns a copy of r with its bottom-right corner at p.
func (r Region) Moved(p image.Point) Region {
	r.MoveTo(p.X, p.Y)
	return r
}

// Resize scales the region about its top-left corner. Sizes are always
// derived from the footprint captured by Set times the magnification, never
// from the current size. Shrinking never takes the magnification below step,
// and the width never below one pixel.
func (r *Region) Resize(step float64, dir Direction) {
	switch dir {
	case Grow:
		r.magnification += step
	case Shrink:
		r.magnification = math.Max(step, r.magnification-step)
	default:
		panic(fmt.Sprintf("region: unknown resize direction %d", int(dir)))
	}
	w := max(1, int(math.Round(float64(r.originalWidth)*r.magnification)))
	h := int(math.Round(float64(w) * r.aspectRatio))
	r.end = image.Pt(r.start.X+w, r.start.Y+h)
}

// String renders the save-file form "start.x start.y end.x end.y".
func (r Region) String() string {
	return fmt.Sprintf("%d %d %d %d", r.start.X, r.start.Y, r.end.X, r.end.Y)
}

// Parse reads the form produced by String.
func Parse(s string) (Region, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return Region{}, fmt.Errorf("expected 4 coordinates, got %d in %q", len(fields), s)
	}
	var v [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Region{}, fmt.Errorf("invalid coordinate %q: %w", f, err)
		}
		v[i] = n
	}
	return New(image.Pt(v[0], v[1]), image.Pt(v[2], v[3]), DefaultShape)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
