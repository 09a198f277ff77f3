package region

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var regionComparer = cmp.Comparer(func(a, b Region) bool { return a.Equal(b) })

func mustRegion(t *testing.T, x0, y0, x1, y1 int) Region {
	t.Helper()
	r, err := New(image.Pt(x0, y0), image.Pt(x1, y1), DefaultShape)
	if err != nil {
		t.Fatalf("New(%d,%d,%d,%d): %v", x0, y0, x1, y1, err)
	}
	return r
}

func TestSetNormalizesCorners(t *testing.T) {
	tests := []struct {
		name       string
		a, b       image.Point
		start, end image.Point
		w, h       int
	}{
		{"already ordered", image.Pt(10, 10), image.Pt(100, 80), image.Pt(10, 10), image.Pt(100, 80), 90, 70},
		{"dragged up-left", image.Pt(100, 80), image.Pt(10, 10), image.Pt(10, 10), image.Pt(100, 80), 90, 70},
		{"mixed axes", image.Pt(100, 10), image.Pt(10, 80), image.Pt(10, 10), image.Pt(100, 80), 90, 70},
		{"zero height", image.Pt(0, 5), image.Pt(4, 5), image.Pt(0, 5), image.Pt(4, 5), 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.a, tt.b, Rectangle)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if r.Start() != tt.start || r.End() != tt.end {
				t.Errorf("corners = %v %v, want %v %v", r.Start(), r.End(), tt.start, tt.end)
			}
			if r.Width() != tt.w || r.Height() != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", r.Width(), r.Height(), tt.w, tt.h)
			}
			if r.Magnification() != 1.0 {
				t.Errorf("magnification = %v, want 1", r.Magnification())
			}
		})
	}
}

func TestSetRejectsZeroWidth(t *testing.T) {
	_, err := New(image.Pt(5, 0), image.Pt(5, 40), Ellipse)
	if !errors.Is(err, ErrZeroWidth) {
		t.Fatalf("expected ErrZeroWidth, got %v", err)
	}
	if _, err := Parse("7 1 7 9"); !errors.Is(err, ErrZeroWidth) {
		t.Fatalf("Parse: expected ErrZeroWidth, got %v", err)
	}
}

func TestTextRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		a := image.Pt(rng.Intn(2000)-500, rng.Intn(2000)-500)
		b := image.Pt(rng.Intn(2000)-500, rng.Intn(2000)-500)
		if a.X == b.X {
			b.X++
		}
		r, err := New(a, b, DefaultShape)
		if err != nil {
			t.Fatal(err)
		}
		back, err := Parse(r.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", r.String(), err)
		}
		if back.Start() != r.Start() || back.End() != r.End() {
			t.Fatalf("round trip %q -> %q", r.String(), back.String())
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "1 2 3", "1 2 3 4 5", "a b c d"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", s)
		}
	}
}

func TestMoveToKeepsSize(t *testing.T) {
	template := mustRegion(t, 10, 10, 100, 80)
	stamp := template.Moved(image.Pt(200, 150))

	if got, want := stamp.String(), "110 80 200 150"; got != want {
		t.Errorf("Moved() = %s, want %s", got, want)
	}
	if template.String() != "10 10 100 80" {
		t.Errorf("template mutated: %s", template)
	}
}

func TestResizeGrowThenShrink(t *testing.T) {
	tests := []struct {
		name string
		r    [4]int
		step float64
	}{
		{"square", [4]int{0, 0, 50, 50}, 0.05},
		{"wide", [4]int{10, 10, 100, 80}, 0.05},
		{"tall", [4]int{3, 4, 20, 91}, 0.1},
		{"tiny", [4]int{0, 0, 3, 2}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRegion(t, tt.r[0], tt.r[1], tt.r[2], tt.r[3])
			w, h := r.Width(), r.Height()

			r.Resize(tt.step, Grow)
			if r.Start() != image.Pt(tt.r[0], tt.r[1]) {
				t.Errorf("resize moved the anchor: %v", r.Start())
			}
			r.Resize(tt.step, Shrink)

			if abs(r.Width()-w) > 1 || abs(r.Height()-h) > 1 {
				t.Errorf("size after grow+shrink = %dx%d, want %dx%d", r.Width(), r.Height(), w, h)
			}
		})
	}
}

func TestResizeUsesOriginalFootprint(t *testing.T) {
	r := mustRegion(t, 0, 0, 100, 50)
	for i := 0; i < 4; i++ {
		r.Resize(0.05, Grow)
	}
	if r.Width() != 120 || r.Height() != 60 {
		t.Fatalf("after 4 grows got %dx%d, want 120x60", r.Width(), r.Height())
	}
}

func TestShrinkFloorsAtStep(t *testing.T) {
	r := mustRegion(t, 0, 0, 100, 40)
	for i := 0; i < 50; i++ {
		r.Resize(0.25, Shrink)
	}
	if r.Magnification() != 0.25 {
		t.Errorf("magnification = %v, want 0.25", r.Magnification())
	}
	if r.Width() != 25 || r.Height() != 10 {
		t.Errorf("size = %dx%d, want 25x10", r.Width(), r.Height())
	}
}

func TestShrinkNarrowRegionKeepsWidth(t *testing.T) {
	r := mustRegion(t, 10, 10, 15, 60)
	for i := 0; i < 40; i++ {
		r.Resize(0.05, Shrink)
	}
	if r.Width() != 1 || r.Height() != 10 {
		t.Fatalf("size = %dx%d, want 1x10", r.Width(), r.Height())
	}

	parsed, err := Parse(r.String())
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", r.String(), err)
	}
	if parsed.String() != "10 10 11 20" {
		t.Errorf("parsed = %q, want %q", parsed.String(), "10 10 11 20")
	}
}

func TestContainsIsInclusive(t *testing.T) {
	r := mustRegion(t, 10, 10, 20, 20)
	tests := []struct {
		x, y int
		want bool
	}{
		{10, 10, true},
		{20, 20, true},
		{15, 15, true},
		{9, 15, false},
		{15, 21, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestParseShape(t *testing.T) {
	for in, want := range map[string]Shape{"rectangle": Rectangle, "Ellipse": Ellipse, " both ": Both} {
		got, err := ParseShape(in)
		if err != nil || got != want {
			t.Errorf("ParseShape(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseShape("hexagon"); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestDrawBorderRectangle(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	r := mustRegion(t, 10, 10, 30, 30).WithShape(Rectangle)
	r.DrawBorder(img, BorderColor, 2)

	if img.RGBAAt(10, 10) != BorderColor || img.RGBAAt(30, 20) != BorderColor {
		t.Error("expected outline pixels on the rectangle edge")
	}
	if img.RGBAAt(20, 20) != (color.RGBA{}) {
		t.Error("interior must not be painted")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
