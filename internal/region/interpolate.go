package region

import (
	"fmt"
	"image"
	"math"
)

// Keyed is a region pinned to a frame index.
type Keyed struct {
	Frame  int
	Region Region
}

// Interpolate produces the region for target, strictly between frameA and
// frameB, by linear interpolation of each corner coordinate. The anchors are
// not modified and the result shares nothing with them.
func Interpolate(frameA int, a Region, frameB int, b Region, target int) (Region, error) {
	if !(frameA < target && target < frameB) {
		return Region{}, fmt.Errorf("target frame %d not strictly between %d and %d", target, frameA, frameB)
	}
	coeff := float64(target-frameA) / float64(frameB-frameA)
	lerp := func(from, to int) int {
		return int(math.Round(float64(from)*(1-coeff) + float64(to)*coeff))
	}
	start := image.Pt(lerp(a.start.X, b.start.X), lerp(a.start.Y, b.start.Y))
	end := image.Pt(lerp(a.end.X, b.end.X), lerp(a.end.Y, b.end.Y))
	return New(start, end, a.shape)
}

// Span fills frameA..frameB inclusive: the anchors themselves at the two ends
// and one interpolated region on every frame in between. frameA == frameB
// yields just a. frameB < frameA yields nothing.
func Span(frameA int, a Region, frameB int, b Region) ([]Keyed, error) {
	switch {
	case frameB < frameA:
		return nil, nil
	case frameB == frameA:
		return []Keyed{{Frame: frameA, Region: a}}, nil
	}
	out := make([]Keyed, 0, frameB-frameA+1)
	out = append(out, Keyed{Frame: frameA, Region: a})
	for f := frameA + 1; f < frameB; f++ {
		r, err := Interpolate(frameA, a, frameB, b, f)
		if err != nil {
			return nil, err
		}
		out = append(out, Keyed{Frame: f, Region: r})
	}
	out = append(out, Keyed{Frame: frameB, Region: b})
	return out, nil
}
