// Package pointer turns pointer input on the preview surface into photo
// offsets in mask space.
package pointer

import (
	"math"

	"github.com/example/artframe/internal/geometry"
)

// DefaultDisplayMax caps the preview size in logical pixels.
const DefaultDisplayMax = 600

// Position is a point on the preview surface in logical pixels.
type Position struct {
	X, Y float64
}

// DisplaySize is the side of the square preview for a viewport: the smallest
// of maxSize, width and height, and never below 1. A non-positive maxSize means
// DefaultDisplayMax.
func DisplaySize(width, height, maxSize float64) float64 {
	if maxSize <= 0 || math.IsNaN(maxSize) {
		maxSize = DefaultDisplayMax
	}
	size := maxSize
	if width > 0 && width < size {
		size = width
	}
	if height > 0 && height < size {
		size = height
	}
	if size < 1 || math.IsInf(size, 0) {
		size = 1
	}
	return size
}

// Controller converts drags on the preview into mask-space offsets. The point
// under the pointer when the drag began stays under it.
type Controller struct {
	ratio    float64
	dragging bool
	offX     float64
	offY     float64
}

// NewController returns a controller for a preview of displaySize pixels.
func NewController(displaySize float64) *Controller {
	c := &Controller{}
	c.SetDisplaySize(displaySize)
	return c
}

// SetDisplaySize updates the pixel-to-mask ratio. An active drag continues
// with the new ratio.
func (c *Controller) SetDisplaySize(displaySize float64) {
	if !(displaySize > 0) || math.IsInf(displaySize, 0) {
		displaySize = 1
	}
	c.ratio = displaySize / geometry.OuterSize
}

// Ratio is display pixels per mask unit.
func (c *Controller) Ratio() float64 { return c.ratio }

// ToMask converts a preview position into mask units.
func (c *Controller) ToMask(p Position) (x, y float64) {
	return p.X / c.ratio, p.Y / c.ratio
}

// Begin starts a drag at p while the photo sits at (x, y).
func (c *Controller) Begin(p Position, x, y float64) {
	mx, my := c.ToMask(p)
	c.offX = mx - x
	c.offY = my - y
	c.dragging = true
}

// Move returns the photo offset for pointer position p. ok is false when no
// drag is active.
func (c *Controller) Move(p Position) (x, y float64, ok bool) {
	if !c.dragging {
		return 0, 0, false
	}
	mx, my := c.ToMask(p)
	return mx - c.offX, my - c.offY, true
}

// End finishes the drag. The last position is kept as is.
func (c *Controller) End() {
	c.dragging = false
}

// Dragging reports whether a drag is active.
func (c *Controller) Dragging() bool { return c.dragging }
