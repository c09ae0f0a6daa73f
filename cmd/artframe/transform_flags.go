package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/artframe/internal/editor"
	"github.com/example/artframe/internal/session"
	"github.com/example/artframe/internal/transform"
)

// transformFlags are the flags shared by the headless commands that take a
// starting transform.
type transformFlags struct {
	statePath string
	viewport  string
	x, y      float64
	scale     float64
	rotation  float64
}

func (t *transformFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&t.statePath, "state", "", "JSON file holding a saved transform")
	fs.StringVar(&t.viewport, "viewport", "", "viewport as WIDTHxHEIGHT, used for the default scale")
	fs.Float64Var(&t.x, "x", 0, "horizontal offset in template units")
	fs.Float64Var(&t.y, "y", 0, "vertical offset in template units")
	fs.Float64Var(&t.scale, "scale", 0, "scale factor")
	fs.Float64Var(&t.rotation, "rotation", 0, "rotation in degrees")
}

// parseViewport accepts "1280x800". An empty string means unknown.
func parseViewport(s string) (*transform.Viewport, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return nil, fmt.Errorf("invalid viewport %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid viewport width %q: %w", w, err)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid viewport height %q: %w", h, err)
	}
	return &transform.Viewport{Width: width, Height: height}, nil
}

// prior returns the saved transform with any explicit flags applied on top,
// or nil when neither was given.
func (t *transformFlags) prior(fs *flag.FlagSet, vp *transform.Viewport) (*transform.State, error) {
	st, err := editor.LoadState(t.statePath)
	if err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["x"] && !set["y"] && !set["scale"] && !set["rotation"] {
		return st, nil
	}
	if st == nil {
		d := transform.Default(vp)
		st = &d
	}
	if set["x"] || set["y"] {
		x, y := st.X, st.Y
		if set["x"] {
			x = t.x
		}
		if set["y"] {
			y = t.y
		}
		st.SetPosition(x, y)
	}
	if set["scale"] {
		st.SetScale(t.scale)
	}
	if set["rotation"] {
		st.SetRotation(t.rotation)
	}
	return st, nil
}

// openSession starts a session on ref and waits for the image.
func (r *root) openSession(opts session.Options, ref string, prior *transform.State, timeout time.Duration) (*session.Session, error) {
	s := session.New(opts)
	s.SetSource(ref, prior)
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.WaitLoaded(ctx); err != nil {
		s.Dispose()
		return nil, fmt.Errorf("load image: %w", err)
	}
	return s, nil
}
