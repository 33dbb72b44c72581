package media

// maxYIQDelta is the largest possible squared YIQ distance between two
// colors, used to scale the per-pixel threshold.
const maxYIQDelta = 35215

// PixelDiffer counts the pixels that differ between two RGBA buffers.
type PixelDiffer interface {
	Diff(a, b []byte, width, height int, threshold float64) int
}

// YIQDiffer compares pixels by perceived color distance in YIQ space.
// Translucent pixels are blended over white before comparison.
type YIQDiffer struct{}

// NewYIQDiffer returns a YIQDiffer.
func NewYIQDiffer() YIQDiffer {
	return YIQDiffer{}
}

// Diff returns how many pixels differ by more than threshold, where 0 is
// strict and 1 accepts anything. Buffers that do not hold width×height
// RGBA pixels count as fully different.
func (YIQDiffer) Diff(a, b []byte, width, height int, threshold float64) int {
	total := width * height
	if total <= 0 {
		return 0
	}

	if len(a) != total*Channels || len(b) != total*Channels {
		return total
	}

	limit := maxYIQDelta * threshold * threshold
	diff := 0

	for k := 0; k < len(a); k += Channels {
		if colorDelta(a[k:k+Channels], b[k:k+Channels]) > limit {
			diff++
		}
	}

	return diff
}

func colorDelta(p1, p2 []byte) float64 {
	if p1[0] == p2[0] && p1[1] == p2[1] && p1[2] == p2[2] && p1[3] == p2[3] {
		return 0
	}

	r1, g1, b1 := blendWhite(p1)
	r2, g2, b2 := blendWhite(p2)

	y := rgbToY(r1, g1, b1) - rgbToY(r2, g2, b2)
	i := rgbToI(r1, g1, b1) - rgbToI(r2, g2, b2)
	q := rgbToQ(r1, g1, b1) - rgbToQ(r2, g2, b2)

	return 0.5053*y*y + 0.299*i*i + 0.1957*q*q
}

func blendWhite(p []byte) (r, g, b float64) {
	r, g, b = float64(p[0]), float64(p[1]), float64(p[2])
	if p[3] == 255 {
		return r, g, b
	}

	alpha := float64(p[3]) / 255

	return blend(r, alpha), blend(g, alpha), blend(b, alpha)
}

func blend(c, alpha float64) float64 {
	return 255 + (c-255)*alpha
}

func rgbToY(r, g, b float64) float64 {
	return r*0.29889531 + g*0.58662247 + b*0.11448223
}

func rgbToI(r, g, b float64) float64 {
	return r*0.59597799 - g*0.27417610 - b*0.32180189
}

func rgbToQ(r, g, b float64) float64 {
	return r*0.21147017 - g*0.52261711 + b*0.31114694
}
