package render

import (
	"image"
	"math"
	"sync"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/example/artframe/internal/geometry"
	"github.com/example/artframe/internal/logging"
	"github.com/example/artframe/internal/source"
	"github.com/example/artframe/internal/theme"
	"github.com/example/artframe/internal/transform"
)

// Stroke widths in logical pixels.
const (
	frameStroke = 2
	guideStroke = 2
)

// Preview renders the interactive view: neutral background, frame and clip
// guides, and the photo clipped to the inner rounded rectangle.
type Preview struct {
	// Surface allocates the backing buffer. Nil means NewSurface.
	Surface SurfaceFunc

	mask geometry.Mask

	mu          sync.Mutex
	theme       *theme.Theme
	displaySize float64
	pixelRatio  float64

	// Rebuilt when the size, ratio or theme changes.
	cacheKey cacheKey
	clip     *image.Alpha
	under    *image.RGBA
	over     *image.NRGBA
}

type cacheKey struct {
	size  int
	scale float64
	theme *theme.Theme
}

// NewPreview returns a renderer for a displaySize x displaySize logical pixel
// preview on a display with the given device pixel ratio.
func NewPreview(th *theme.Theme, displaySize, pixelRatio float64) *Preview {
	p := &Preview{mask: geometry.Geometry()}
	p.SetTheme(th)
	p.Resize(displaySize, pixelRatio)
	return p
}

// SetTheme swaps the palette. Nil means the default theme.
func (p *Preview) SetTheme(th *theme.Theme) {
	if th == nil {
		th = theme.Default()
	}
	p.mu.Lock()
	p.theme = th
	p.mu.Unlock()
}

// Resize changes the logical size and device pixel ratio.
func (p *Preview) Resize(displaySize, pixelRatio float64) {
	if !(displaySize > 0) || math.IsInf(displaySize, 0) {
		displaySize = 1
	}
	if !(pixelRatio > 0) || math.IsInf(pixelRatio, 0) {
		pixelRatio = 1
	}
	p.mu.Lock()
	p.displaySize = displaySize
	p.pixelRatio = pixelRatio
	p.mu.Unlock()
}

// BackingSize is the side of the backing buffer in device pixels.
func (p *Preview) BackingSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backingSizeLocked()
}

func (p *Preview) backingSizeLocked() int {
	n := int(math.Round(p.displaySize * p.pixelRatio))
	if n < 1 {
		n = 1
	}
	return n
}

// Scale is device pixels per mask unit.
func (p *Preview) Scale() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scaleLocked()
}

func (p *Preview) scaleLocked() float64 {
	return p.displaySize / p.mask.OuterSize * p.pixelRatio
}

// Matrix maps source pixels of a w x h photo to preview device pixels.
func (p *Preview) Matrix(s transform.State, w, h int) gg.Matrix {
	return deviceMatrix(p.mask, p.Scale(), s, w, h)
}

// Render draws one frame. A nil or released img draws the placeholder.
func (p *Preview) Render(s transform.State, img *source.Image) (*image.RGBA, error) {
	p.mu.Lock()
	size := p.backingSizeLocked()
	k := p.scaleLocked()
	dpr := p.pixelRatio
	th := p.theme
	clip, under, over := p.layersLocked(size, k, dpr, th)
	surface := p.Surface
	p.mu.Unlock()

	if surface == nil {
		surface = NewSurface
	}
	dst, err := surface(size, size)
	if err != nil {
		return nil, err
	}
	copy(dst.Pix, under.Pix)

	if bm := img.Bitmap(); bm != nil {
		drawPlacement(dst, clip, deviceMatrix(p.mask, k, s, bm.Bounds().Dx(), bm.Bounds().Dy()), bm)
	} else {
		DrawCentered(dst, PlaceholderText, Face(placeholderSize*dpr), th.Placeholder, size/2, size/2)
	}
	xdraw.Draw(dst, dst.Bounds(), over, image.Point{}, xdraw.Over)
	return dst, nil
}

// layersLocked returns the clip mask, the background with guides, and the
// guides alone on a transparent layer for re-stroking over the photo.
func (p *Preview) layersLocked(size int, k, dpr float64, th *theme.Theme) (*image.Alpha, *image.RGBA, *image.NRGBA) {
	key := cacheKey{size: size, scale: k, theme: th}
	if p.cacheKey == key && p.clip != nil {
		return p.clip, p.under, p.over
	}
	logging.Logger().Debug("rebuild preview layers", "size", size, "scale", k)
	guides := strokeGuides(p.mask, size, k, dpr, th)
	over := &image.NRGBA{Pix: guides.Pix, Stride: guides.Stride, Rect: guides.Rect}
	under := image.NewRGBA(image.Rect(0, 0, size, size))
	fill(under, image.NewUniform(th.Background))
	xdraw.Draw(under, under.Bounds(), over, image.Point{}, xdraw.Over)

	p.cacheKey = key
	p.clip = p.mask.ClipMask(size, k)
	p.under = under
	p.over = over
	return p.clip, p.under, p.over
}

// strokeGuides draws the outer frame border and the inner rounded clip guide
// on a transparent surface.
func strokeGuides(m geometry.Mask, size int, k, dpr float64, th *theme.Theme) *image.RGBA {
	dc := gg.NewContext(size, size)
	defer dc.Close()
	dc.Clear()

	fw := frameStroke * dpr
	dc.SetColor(th.Frame)
	dc.SetLineWidth(fw)
	dc.DrawRectangle(fw/2, fw/2, float64(size)-fw, float64(size)-fw)
	if err := dc.Stroke(); err != nil {
		logging.Logger().Warn("stroke frame", "err", err)
	}

	x, y, w, h := m.InnerRect()
	dc.SetColor(th.Guide)
	dc.SetLineWidth(guideStroke * dpr)
	dc.DrawRoundedRectangle(x*k, y*k, w*k, h*k, m.CornerRadius*k)
	if err := dc.Stroke(); err != nil {
		logging.Logger().Warn("stroke guide", "err", err)
	}

	if rgba, ok := dc.Image().(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, xdraw.Src)
	return out
}
