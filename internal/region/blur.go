package region

import (
	"image"
	"math"
	"sync"
)

// DefaultKernel is the Gaussian kernel size used for elliptical regions. It is
// fixed and independent of the region size, so small regions get the same
// heavy blur as large ones.
const DefaultKernel = 101

// rowBufferPool recycles the horizontal-pass scratch buffer of the Gaussian blur.
var rowBufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]float32, 0, 1024*1024)
		return &b
	},
}

// ApplyBlur destructively de-identifies the region's pixels in img.
//
// Rectangle regions are flat-filled with the mean colour of the box.
// Ellipse and Both regions receive the pixels of a Gaussian-blurred copy of
// the whole frame wherever the filled ellipse mask is set. kernel must be odd.
func (r Region) ApplyBlur(img *image.RGBA, kernel int) {
	switch r.shape {
	case Rectangle:
		meanFill(img, r.Bounds())
	case Ellipse, Both:
		gaussianEllipse(img, r.Center(), r.Width()/2, r.Height()/2, kernel)
	default:
		panic("region: unknown shape " + r.shape.String())
	}
}

// ApplyAll blurs every region in order. Later regions see the output of
// earlier ones where they overlap.
func ApplyAll(img *image.RGBA, regions []Region, kernel int) {
	for _, r := range regions {
		r.ApplyBlur(img, kernel)
	}
}

func meanFill(img *image.RGBA, rect image.Rectangle) {
	rect = rect.Intersect(img.Rect)
	if rect.Empty() {
		return
	}

	var rSum, gSum, bSum, aSum, count uint64
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		off := img.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			rSum += uint64(img.Pix[off])
			gSum += uint64(img.Pix[off+1])
			bSum += uint64(img.Pix[off+2])
			aSum += uint64(img.Pix[off+3])
			count++
			off += 4
		}
	}

	fr, fg, fb, fa := uint8(rSum/count), uint8(gSum/count), uint8(bSum/count), uint8(aSum/count)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		off := img.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Pix[off] = fr
			img.Pix[off+1] = fg
			img.Pix[off+2] = fb
			img.Pix[off+3] = fa
			off += 4
		}
	}
}

// gaussianEllipse replaces the pixels inside the filled ellipse with a
// Gaussian blur of the frame. Only the rows and columns that feed the masked
// pixels are convolved; borders reflect about the frame edge without
// repeating it, so the result equals blurring the whole frame first.
func gaussianEllipse(img *image.RGBA, center image.Point, a, b, kernel int) {
	mask := image.Rect(center.X-a, center.Y-b, center.X+a+1, center.Y+b+1).Intersect(img.Rect)
	if mask.Empty() {
		return
	}
	if kernel < 1 {
		kernel = 1
	}
	if kernel%2 == 0 {
		kernel++
	}
	weights := gaussianKernel(kernel)
	radius := kernel / 2
	bounds := img.Rect
	w, h := bounds.Dx(), bounds.Dy()

	rowLo := max(bounds.Min.Y, mask.Min.Y-radius)
	rowHi := min(bounds.Max.Y, mask.Max.Y+radius)
	cols := mask.Dx()
	rows := rowHi - rowLo

	// 1. Horizontal pass over every row the vertical pass can reach.
	needed := rows * cols * 4
	bufPtr := rowBufferPool.Get().(*[]float32)
	if cap(*bufPtr) < needed {
		*bufPtr = make([]float32, needed)
	}
	buf := (*bufPtr)[:needed]
	defer rowBufferPool.Put(bufPtr)

	for y := rowLo; y < rowHi; y++ {
		bufRow := (y - rowLo) * cols * 4
		for x := mask.Min.X; x < mask.Max.X; x++ {
			var acc [4]float32
			for k, wt := range weights {
				sx := bounds.Min.X + reflect101(x+k-radius-bounds.Min.X, w)
				off := img.PixOffset(sx, y)
				acc[0] += wt * float32(img.Pix[off])
				acc[1] += wt * float32(img.Pix[off+1])
				acc[2] += wt * float32(img.Pix[off+2])
				acc[3] += wt * float32(img.Pix[off+3])
			}
			copy(buf[bufRow+(x-mask.Min.X)*4:], acc[:])
		}
	}

	// 2. Vertical pass, written back only under the mask.
	fa, fb := float64(a), float64(b)
	for y := mask.Min.Y; y < mask.Max.Y; y++ {
		dy := float64(y - center.Y)
		for x := mask.Min.X; x < mask.Max.X; x++ {
			if !insideEllipse(float64(x-center.X), dy, fa, fb) {
				continue
			}
			col := (x - mask.Min.X) * 4
			var acc [4]float32
			for k, wt := range weights {
				sy := bounds.Min.Y + reflect101(y+k-radius-bounds.Min.Y, h)
				off := (sy-rowLo)*cols*4 + col
				acc[0] += wt * buf[off]
				acc[1] += wt * buf[off+1]
				acc[2] += wt * buf[off+2]
				acc[3] += wt * buf[off+3]
			}
			dst := img.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				img.Pix[dst+c] = clampUint8(acc[c])
			}
		}
	}
}

// gaussianKernel returns normalised 1-D weights. Sigma follows the usual
// derivation from the kernel size when no sigma is given.
func gaussianKernel(size int) []float32 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	weights := make([]float32, size)
	center := float64(size-1) / 2
	var sum float64
	raw := make([]float64, size)
	for i := range raw {
		d := float64(i) - center
		raw[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += raw[i]
	}
	for i := range raw {
		weights[i] = float32(raw[i] / sum)
	}
	return weights
}

// reflect101 maps an out-of-range index back into [0, n) mirroring about the
// edge pixel: -1 -> 1, n -> n-2.
func reflect101(p, n int) int {
	if n == 1 {
		return 0
	}
	for p < 0 || p >= n {
		if p < 0 {
			p = -p
		}
		if p >= n {
			p = 2*(n-1) - p
		}
	}
	return p
}

func clampUint8(v float32) uint8 {
	v = float32(math.Round(float64(v)))
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
