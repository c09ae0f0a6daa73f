package render

import (
	"image"
	"image/color"
	"image/draw"
)

// CardOptions configures the soft shadow drawn under the preview in the
// editor window.
type CardOptions struct {
	Radius  int
	Offset  image.Point
	Opacity float64
}

// DefaultCardOptions returns a subtle shadow that reads on light and dark
// window backgrounds.
func DefaultCardOptions() CardOptions {
	return CardOptions{
		Radius:  12,
		Offset:  image.Pt(0, 6),
		Opacity: 0.35,
	}
}

// Card draws a rectangular image with a blurred drop shadow. The blurred mask
// is reused while the card size stays the same.
type Card struct {
	Options CardOptions

	size image.Point
	mask *image.Gray
}

// Draw composites card onto dst with its top-left corner at at.
func (c *Card) Draw(dst draw.Image, card image.Image, at image.Point) {
	cb := card.Bounds()
	if cb.Empty() {
		return
	}
	opacity := c.Options.Opacity
	if opacity > 1 {
		opacity = 1
	}
	radius := c.Options.Radius
	if radius < 0 {
		radius = 0
	}
	if opacity > 0 {
		mask := c.shadowMask(cb.Size(), radius)
		origin := at.Add(c.Options.Offset).Sub(image.Pt(radius, radius))
		shadow := image.NewUniform(color.RGBA{0, 0, 0, uint8(opacity*255 + 0.5)})
		draw.DrawMask(dst, mask.Bounds().Add(origin), shadow, image.Point{}, mask, image.Point{}, draw.Over)
	}
	draw.Draw(dst, cb.Sub(cb.Min).Add(at), card, cb.Min, draw.Over)
}

func (c *Card) shadowMask(size image.Point, radius int) *image.Gray {
	if c.mask != nil && c.size == size && c.mask.Bounds().Dx() == size.X+2*radius {
		return c.mask
	}
	padded := image.Rect(0, 0, size.X+2*radius, size.Y+2*radius)
	solid := image.NewGray(padded)
	inner := image.Rect(radius, radius, radius+size.X, radius+size.Y)
	draw.Draw(solid, inner, image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	c.size = size
	c.mask = blurGray(solid, radius)
	return c.mask
}

// blurGray applies a separable box blur of the given radius.
func blurGray(src *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		out := image.NewGray(src.Bounds())
		copy(out.Pix, src.Pix)
		return out
	}
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	tmp := image.NewGray(bounds)
	dst := image.NewGray(bounds)

	prefix := make([]int, max(w, h)+1)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			prefix[x+1] = prefix[x] + int(row[x])
		}
		for x := 0; x < w; x++ {
			x0, x1 := max(x-radius, 0), min(x+radius, w-1)
			tmp.Pix[y*tmp.Stride+x] = uint8((prefix[x1+1] - prefix[x0]) / (x1 - x0 + 1))
		}
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			prefix[y+1] = prefix[y] + int(tmp.Pix[y*tmp.Stride+x])
		}
		for y := 0; y < h; y++ {
			y0, y1 := max(y-radius, 0), min(y+radius, h-1)
			dst.Pix[y*dst.Stride+x] = uint8((prefix[y1+1] - prefix[y0]) / (y1 - y0 + 1))
		}
	}
	return dst
}
