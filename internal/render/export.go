package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"

	"github.com/example/artframe/internal/geometry"
	"github.com/example/artframe/internal/logging"
	"github.com/example/artframe/internal/source"
	"github.com/example/artframe/internal/transform"
)

// Format is the encoding of an exported image.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 90

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	default:
		return "jpeg"
	}
}

// MediaType is the MIME type of the format.
func (f Format) MediaType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Ext is the usual file extension, with the dot.
func (f Format) Ext() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// ParseFormat accepts jpeg, jpg and png in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	}
	return FormatJPEG, fmt.Errorf("unknown export format %q", s)
}

// Result is an encoded export. It is not modified after creation.
type Result struct {
	Data   []byte
	Format Format
	Width  int
	Height int
}

// Exporter renders the framed photo at template resolution on white, with no
// guides.
type Exporter struct {
	Format  Format
	Quality int
	// Surface allocates the export surface. Nil means NewSurface.
	Surface SurfaceFunc

	mask     geometry.Mask
	clipOnce sync.Once
	clip     *image.Alpha
}

// NewExporter returns a JPEG exporter at DefaultQuality.
func NewExporter() *Exporter {
	return &Exporter{Format: FormatJPEG, Quality: DefaultQuality, mask: geometry.Geometry()}
}

// Size is the side of the exported square in pixels.
func (e *Exporter) Size() int { return int(e.geometry().OuterSize) }

func (e *Exporter) geometry() geometry.Mask {
	if e.mask == (geometry.Mask{}) {
		return geometry.Geometry()
	}
	return e.mask
}

func (e *Exporter) clipMask() *image.Alpha {
	e.clipOnce.Do(func() {
		m := e.geometry()
		e.clip = m.ClipMask(int(m.OuterSize), 1)
	})
	return e.clip
}

// Render draws the export surface. It fails with ErrNoImage when img is nil
// or released and never returns a blank fallback.
func (e *Exporter) Render(s transform.State, img *source.Image) (*image.RGBA, error) {
	bm := img.Bitmap()
	if bm == nil {
		return nil, ErrNoImage
	}
	surface := e.Surface
	if surface == nil {
		surface = NewSurface
	}
	size := e.Size()
	dst, err := surface(size, size)
	if err != nil {
		return nil, err
	}
	fill(dst, image.White)
	drawPlacement(dst, e.clipMask(), deviceMatrix(e.geometry(), 1, s, bm.Bounds().Dx(), bm.Bounds().Dy()), bm)
	return dst, nil
}

// Encode encodes a rendered surface in the configured format.
func (e *Exporter) Encode(img *image.RGBA) (Result, error) {
	var buf bytes.Buffer
	switch e.Format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return Result{}, fmt.Errorf("encode png: %w", err)
		}
	default:
		q := e.Quality
		if q <= 0 || q > 100 {
			q = DefaultQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return Result{}, fmt.Errorf("encode jpeg: %w", err)
		}
	}
	b := img.Bounds()
	return Result{Data: buf.Bytes(), Format: e.Format, Width: b.Dx(), Height: b.Dy()}, nil
}

// Export renders and encodes in one step.
func (e *Exporter) Export(s transform.State, img *source.Image) (Result, error) {
	surface, err := e.Render(s, img)
	if err != nil {
		return Result{}, fmt.Errorf("export: %w", err)
	}
	res, err := e.Encode(surface)
	if err != nil {
		return Result{}, fmt.Errorf("export: %w", err)
	}
	logging.Logger().Debug("export encoded", "format", res.Format, "bytes", len(res.Data))
	return res, nil
}
