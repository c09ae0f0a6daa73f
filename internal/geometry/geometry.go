// Package geometry defines the fixed print template every artwork is framed
// against: an outer square and the rounded inner rectangle that clips the
// photograph.
package geometry

import (
	"image"
	"math"
)

// Template constants in mask units. They encode the physical aspect ratio of
// the print and never depend on the source image.
const (
	OuterSize    = 1400
	InnerWidth   = 827
	InnerHeight  = 1197
	CornerRadius = 138
)

// Mask describes the outer frame and the inner rounded clip rectangle.
type Mask struct {
	OuterSize    float64
	InnerWidth   float64
	InnerHeight  float64
	CornerRadius float64
}

// Geometry returns the template. The result is the same on every call.
func Geometry() Mask {
	return Mask{
		OuterSize:    OuterSize,
		InnerWidth:   InnerWidth,
		InnerHeight:  InnerHeight,
		CornerRadius: CornerRadius,
	}
}

// InnerX is the left edge of the inner rectangle.
func (m Mask) InnerX() float64 { return (m.OuterSize - m.InnerWidth) / 2 }

// InnerY is the top edge of the inner rectangle.
func (m Mask) InnerY() float64 { return (m.OuterSize - m.InnerHeight) / 2 }

// InnerRect returns the inner rectangle as origin and size.
func (m Mask) InnerRect() (x, y, w, h float64) {
	return m.InnerX(), m.InnerY(), m.InnerWidth, m.InnerHeight
}

// Center returns the centre of the outer square, which is also the centre of
// the inner rectangle.
func (m Mask) Center() (x, y float64) {
	return m.OuterSize / 2, m.OuterSize / 2
}

// Distance returns the signed distance in mask units from (x, y) to the
// border of the inner rounded rectangle. Negative values are inside.
func (m Mask) Distance(x, y float64) float64 {
	cx, cy := m.Center()
	r := m.cornerRadius()
	qx := math.Abs(x-cx) - (m.InnerWidth/2 - r)
	qy := math.Abs(y-cy) - (m.InnerHeight/2 - r)
	outside := math.Hypot(math.Max(qx, 0), math.Max(qy, 0))
	inside := math.Min(math.Max(qx, qy), 0)
	return outside + inside - r
}

// Coverage reports how much of the device pixel (px, py) lies inside the
// inner rounded rectangle, in [0, 1]. scale is the number of device pixels per
// mask unit. The edge is ramped over one device pixel.
func (m Mask) Coverage(px, py int, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	x := (float64(px) + 0.5) / scale
	y := (float64(py) + 0.5) / scale
	d := m.Distance(x, y) * scale
	return math.Min(math.Max(0.5-d, 0), 1)
}

// ClipMask rasterises the inner rounded rectangle for a size x size surface
// where one mask unit spans scale device pixels.
func (m Mask) ClipMask(size int, scale float64) *image.Alpha {
	if size <= 0 {
		return image.NewAlpha(image.Rectangle{})
	}
	a := image.NewAlpha(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		row := a.Pix[y*a.Stride : y*a.Stride+size]
		for x := range row {
			row[x] = uint8(m.Coverage(x, y, scale)*255 + 0.5)
		}
	}
	return a
}

func (m Mask) cornerRadius() float64 {
	r := m.CornerRadius
	if limit := math.Min(m.InnerWidth, m.InnerHeight) / 2; r > limit {
		r = limit
	}
	if r < 0 {
		r = 0
	}
	return r
}
