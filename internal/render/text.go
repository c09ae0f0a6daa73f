package render

import (
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// PlaceholderText is shown on the preview while there is no photo.
const PlaceholderText = "Upload an image to position it"

// placeholderSize is the placeholder font size in logical pixels.
const placeholderSize = 16

var regular *opentype.Font

var (
	facesMu sync.Mutex
	faces   = map[float64]font.Face{}
)

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Fatalf("parse font: %v", err)
	}
	regular = f
}

// Face returns the regular Go font at size pixels, cached per size.
func Face(size float64) font.Face {
	size = math.Round(size*4) / 4
	if size < 1 {
		size = 1
	}
	facesMu.Lock()
	defer facesMu.Unlock()
	if face, ok := faces[size]; ok {
		return face
	}
	face, err := opentype.NewFace(regular, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Fatalf("font face: %v", err)
	}
	faces[size] = face
	return face
}

// DrawCentered draws s centred on (cx, cy).
func DrawCentered(dst draw.Image, s string, face font.Face, c color.Color, cx, cy int) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	w := d.MeasureString(s)
	m := face.Metrics()
	x := fixed.I(cx) - w/2
	y := fixed.I(cy) + (m.Ascent-m.Descent)/2
	d.Dot = fixed.Point26_6{X: x, Y: y}
	d.DrawString(s)
}

// DrawText draws s with its baseline starting at (x, y).
func DrawText(dst draw.Image, s string, face font.Face, c color.Color, x, y int) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face, Dot: fixed.P(x, y)}
	d.DrawString(s)
}

// MeasureText returns the advance width of s in whole pixels.
func MeasureText(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}
