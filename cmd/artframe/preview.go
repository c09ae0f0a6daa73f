package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"time"
)

type previewCmd struct {
	*root
	fs *flag.FlagSet

	ref           string
	output        string
	size          float64
	pixelRatio    float64
	fromClipboard bool
	timeout       time.Duration
	transform     transformFlags
}

func (p *previewCmd) FlagSet() *flag.FlagSet {
	return p.fs
}

func (p *previewCmd) Program() string {
	return p.root.Program() + " preview"
}

func parsePreviewCmd(args []string, r *root) (*previewCmd, error) {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	c := &previewCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	size, dpr := 600.0, 1.0
	if r != nil && r.config != nil {
		size = r.config.Editor.DisplayMax
		if r.config.Editor.PixelRatio > 0 {
			dpr = r.config.Editor.PixelRatio
		}
	}
	fs.StringVar(&c.output, "o", "preview.png", "output PNG file, or - for stdout")
	fs.Float64Var(&c.size, "size", size, "preview side in logical pixels")
	fs.Float64Var(&c.pixelRatio, "dpr", dpr, "device pixel ratio")
	fs.BoolVar(&c.fromClipboard, "from-clipboard", false, "load the image from the clipboard")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "how long to wait for the image to load")
	c.transform.register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, &UsageError{of: c}
	}
	c.ref = fs.Arg(0)
	if !(c.size > 0) {
		return nil, fmt.Errorf("preview: -size must be positive")
	}
	return c, nil
}

func (p *previewCmd) Run() error {
	ref, err := p.sourceRef(p.ref, p.fromClipboard)
	if err != nil {
		return err
	}
	vp, err := parseViewport(p.transform.viewport)
	if err != nil {
		return err
	}
	prior, err := p.transform.prior(p.fs, vp)
	if err != nil {
		return err
	}

	opts := p.sessionOptions()
	opts.DisplayMax = p.size
	opts.PixelRatio = p.pixelRatio
	s, err := p.openSession(opts, ref, prior, p.timeout)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	defer s.Dispose()

	frame, err := s.RenderPreview()
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}

	if p.output == "-" {
		return png.Encode(p.out(), frame)
	}
	f, err := os.Create(p.output)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := png.Encode(f, frame); err != nil {
		_ = f.Close()
		return fmt.Errorf("preview: encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	fmt.Fprintf(p.errOut(), "wrote %s (%dx%d)\n", p.output, frame.Bounds().Dx(), frame.Bounds().Dy())
	return nil
}
