// Package render rasterises the framed photo, once for the live preview at
// display resolution and once for the final export at template resolution.
// Both paths share drawPlacement, so the two agree pixel for pixel inside the
// clip region when rendered at the same scale.
package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/example/artframe/internal/geometry"
	"github.com/example/artframe/internal/transform"
)

var (
	// ErrNoImage is returned when asked to export without a decoded photo.
	ErrNoImage = errors.New("no image to render")
	// ErrSurfaceUnavailable is returned when a drawing surface cannot be
	// allocated.
	ErrSurfaceUnavailable = errors.New("drawing surface unavailable")
)

// MaxSurfacePixels bounds the size of one drawing surface.
const MaxSurfacePixels = 64 << 20

// SurfaceFunc allocates a w x h drawing surface.
type SurfaceFunc func(w, h int) (*image.RGBA, error)

// NewSurface is the default SurfaceFunc.
func NewSurface(w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 || int64(w)*int64(h) > MaxSurfacePixels {
		return nil, fmt.Errorf("%dx%d: %w", w, h, ErrSurfaceUnavailable)
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

// deviceMatrix maps source pixels of a w x h photo to device pixels at k
// pixels per mask unit.
func deviceMatrix(m geometry.Mask, k float64, s transform.State, w, h int) gg.Matrix {
	return transform.Device(k).Multiply(transform.Placement(m, s, float64(w), float64(h)))
}

// drawPlacement composites src onto dst through m, restricted to clip. m maps
// source pixels to dst pixels.
func drawPlacement(dst *image.RGBA, clip *image.Alpha, m gg.Matrix, src *image.RGBA) {
	aff := f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}
	xdraw.BiLinear.Transform(dst, aff, src, src.Bounds(), xdraw.Over, &xdraw.Options{
		DstMask:  clip,
		DstMaskP: image.Point{},
	})
}

// fill paints the whole of dst with a solid colour.
func fill(dst *image.RGBA, c image.Image) {
	xdraw.Draw(dst, dst.Bounds(), c, image.Point{}, xdraw.Src)
}
