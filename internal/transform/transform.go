// Package transform holds the positioning state of a photograph inside the
// print template and composes it into the affine matrices used by both the
// live preview and the final export.
package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/example/artframe/internal/geometry"
)

const (
	MinScale = 0.1
	MaxScale = 3.0

	MinRotation = -180.0
	MaxRotation = 180.0

	// FallbackScale is used when the viewport cannot be measured.
	FallbackScale = 0.5

	// minViewport keeps small screens from producing an oversized default.
	minViewport = 800
)

// Viewport is the measured size of the host display in logical pixels.
type Viewport struct {
	Width  float64
	Height float64
}

// State is the position, scale and rotation of the photo in mask space.
// The zero value is not a sensible default; use Default.
type State struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

// DefaultScale picks a starting scale so the photo roughly fills the inner
// rectangle on the given viewport. The result is always in (0, 1].
func DefaultScale(vp *Viewport) float64 {
	if vp == nil || !measurable(vp.Width) || !measurable(vp.Height) {
		return FallbackScale
	}
	m := geometry.Geometry()
	sx := m.InnerWidth / math.Max(vp.Width, minViewport)
	sy := m.InnerHeight / math.Max(vp.Height, minViewport)
	return math.Min(math.Max(sx, sy), 1)
}

func measurable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Default returns the centred, unrotated state for the viewport.
func Default(vp *Viewport) State {
	return State{Scale: DefaultScale(vp)}
}

// Reset restores the defaults for the viewport.
func (s *State) Reset(vp *Viewport) {
	*s = Default(vp)
}

// SetScale stores v clamped to [MinScale, MaxScale]. NaN is ignored.
func (s *State) SetScale(v float64) {
	if math.IsNaN(v) {
		return
	}
	s.Scale = math.Min(math.Max(v, MinScale), MaxScale)
}

// SetRotation stores v in degrees, wrapped into [MinRotation, MaxRotation].
// In-range values are stored verbatim. NaN is ignored.
func (s *State) SetRotation(v float64) {
	switch {
	case math.IsNaN(v):
		return
	case math.IsInf(v, 1):
		s.Rotation = MaxRotation
	case math.IsInf(v, -1):
		s.Rotation = MinRotation
	default:
		s.Rotation = wrapDegrees(v)
	}
}

func wrapDegrees(v float64) float64 {
	if v >= MinRotation && v <= MaxRotation {
		return v
	}
	w := math.Mod(v-MinRotation, 360)
	if w < 0 {
		w += 360
	}
	return w + MinRotation
}

// SetPosition stores the offset. Non-finite components are ignored.
func (s *State) SetPosition(x, y float64) {
	if finite(x) {
		s.X = x
	}
	if finite(y) {
		s.Y = y
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp returns s with every component made valid. Components that cannot be
// repaired take the default value.
func (s State) Clamp() State {
	out := State{Scale: FallbackScale}
	out.SetPosition(s.X, s.Y)
	out.SetScale(s.Scale)
	out.SetRotation(s.Rotation)
	return out
}

// Valid reports whether every component is already within range.
func (s State) Valid() bool {
	return finite(s.X) && finite(s.Y) &&
		s.Scale >= MinScale && s.Scale <= MaxScale &&
		s.Rotation >= MinRotation && s.Rotation <= MaxRotation
}

// DisplayRotation is the rotation rounded to whole degrees for labels.
func (s State) DisplayRotation() int {
	return int(math.Round(s.Rotation))
}

func (s State) String() string {
	return fmt.Sprintf("x=%.1f y=%.1f scale=%.3f rotation=%d°", s.X, s.Y, s.Scale, s.DisplayRotation())
}

// Placement maps source image pixels of an imgW x imgH photo into mask space:
//
//	T(outer/2) · R(rotation) · S(scale) · T(x, y) · T(-imgW/2, -imgH/2)
func Placement(m geometry.Mask, s State, imgW, imgH float64) gg.Matrix {
	cx, cy := m.Center()
	theta := s.Rotation * math.Pi / 180
	return gg.Translate(cx, cy).
		Multiply(gg.Rotate(theta)).
		Multiply(gg.Scale(s.Scale, s.Scale)).
		Multiply(gg.Translate(s.X, s.Y)).
		Multiply(gg.Translate(-imgW/2, -imgH/2))
}

// Device maps mask units to device pixels at k pixels per unit.
func Device(k float64) gg.Matrix {
	return gg.Scale(k, k)
}

// Decode reads a persisted state and sanitises it. A missing scale keeps
// FallbackScale.
func Decode(r io.Reader) (State, error) {
	s := State{Scale: FallbackScale}
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return State{}, fmt.Errorf("decode transform: %w", err)
	}
	return s.Clamp(), nil
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode transform: %w", err)
	}
	return nil
}
