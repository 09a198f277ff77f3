package region

import (
	"image"
	"image/color"
)

var (
	// BorderColor is the outline colour for regions and the crosshair.
	BorderColor = color.RGBA{R: 255, A: 255}
	// BorderThickness is the outline width in pixels.
	BorderThickness = 2
)

const crosshairArm = 20

// DrawBorder outlines the region on img: a rectangle, an ellipse, or both
// depending on its shape.
func (r Region) DrawBorder(img *image.RGBA, c color.RGBA, thickness int) {
	switch r.shape {
	case Rectangle:
		drawRectOutline(img, r.start, r.end, c, thickness)
	case Ellipse:
		drawEllipseOutline(img, r.Center(), r.Width()/2, r.Height()/2, c, thickness)
	case Both:
		drawRectOutline(img, r.start, r.end, c, thickness)
		drawEllipseOutline(img, r.Center(), r.Width()/2, r.Height()/2, c, thickness)
	default:
		panic("region: unknown shape " + r.shape.String())
	}
}

// DrawBorderWithCrosshair outlines the region and marks its centre.
func (r Region) DrawBorderWithCrosshair(img *image.RGBA, c color.RGBA, thickness int) {
	r.DrawBorder(img, c, thickness)
	DrawCrosshair(img, r.Center(), c, thickness)
}

// DrawCrosshair draws a plus sign centred on p.
func DrawCrosshair(img *image.RGBA, p image.Point, c color.RGBA, thickness int) {
	lo := thickness / 2
	hi := thickness - lo
	fillRect(img, image.Rect(p.X-crosshairArm, p.Y-lo, p.X+crosshairArm+1, p.Y+hi), c)
	fillRect(img, image.Rect(p.X-lo, p.Y-crosshairArm, p.X+hi, p.Y+crosshairArm+1), c)
}

func drawRectOutline(img *image.RGBA, start, end image.Point, c color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	half := thickness / 2
	outer := image.Rect(start.X-half, start.Y-half, end.X+half+1, end.Y+half+1)
	inner := outer.Inset(thickness)

	fillRect(img, image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y), c) // top
	fillRect(img, image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y), c) // bottom
	fillRect(img, image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y), c) // left
	fillRect(img, image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y), c) // right
}

func drawEllipseOutline(img *image.RGBA, center image.Point, a, b int, c color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	half := float64(thickness) / 2
	outerA, outerB := float64(a)+half, float64(b)+half
	innerA, innerB := float64(a)-half, float64(b)-half

	box := image.Rect(center.X-a-thickness, center.Y-b-thickness, center.X+a+thickness+1, center.Y+b+thickness+1).
		Intersect(img.Rect)
	for y := box.Min.Y; y < box.Max.Y; y++ {
		dy := float64(y - center.Y)
		for x := box.Min.X; x < box.Max.X; x++ {
			dx := float64(x - center.X)
			if !insideEllipse(dx, dy, outerA, outerB) {
				continue
			}
			if innerA > 0 && innerB > 0 && insideEllipse(dx, dy, innerA, innerB) {
				continue
			}
			setPixel(img, x, y, c)
		}
	}
}

// insideEllipse tests (dx, dy) against an origin-centred ellipse with semi-axes a and b.
// A zero semi-axis degenerates to a line segment.
func insideEllipse(dx, dy, a, b float64) bool {
	switch {
	case a <= 0 && b <= 0:
		return dx == 0 && dy == 0
	case a <= 0:
		return dx == 0 && dy*dy <= b*b
	case b <= 0:
		return dy == 0 && dx*dx <= a*a
	}
	return (dx*dx)/(a*a)+(dy*dy)/(b*b) <= 1
}

func fillRect(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	rect = rect.Intersect(img.Rect)
	if rect.Empty() {
		return
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		off := img.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Pix[off] = c.R
			img.Pix[off+1] = c.G
			img.Pix[off+2] = c.B
			img.Pix[off+3] = c.A
			off += 4
		}
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	off := img.PixOffset(x, y)
	img.Pix[off] = c.R
	img.Pix[off+1] = c.G
	img.Pix[off+2] = c.B
	img.Pix[off+3] = c.A
}
