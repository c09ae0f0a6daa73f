// Package source resolves image references into decoded bitmaps.
package source

import (
	"image"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Image is a decoded photo owned by one editing session. Release drops the
// pixels; after that Bitmap returns nil.
type Image struct {
	ref    string
	width  int
	height int

	mu  sync.RWMutex
	pix *image.RGBA
}

// FromImage wraps an already decoded image. The pixels are copied into an
// RGBA bitmap anchored at the origin.
func FromImage(ref string, img image.Image) *Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return &Image{ref: ref, width: b.Dx(), height: b.Dy(), pix: dst}
}

// Ref is the reference the image was decoded from.
func (i *Image) Ref() string { return i.ref }

// Width is the natural width in pixels.
func (i *Image) Width() int { return i.width }

// Height is the natural height in pixels.
func (i *Image) Height() int { return i.height }

// Bitmap returns the pixels, or nil once released. Callers must not modify the
// returned image.
func (i *Image) Bitmap() *image.RGBA {
	if i == nil {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.pix
}

// Release drops the pixels. It is safe to call more than once.
func (i *Image) Release() {
	if i == nil {
		return
	}
	i.mu.Lock()
	i.pix = nil
	i.mu.Unlock()
}

// Released reports whether Release has been called.
func (i *Image) Released() bool {
	return i.Bitmap() == nil
}
