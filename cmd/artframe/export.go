package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"time"

	"github.com/example/artframe/internal/clipboard"
	"github.com/example/artframe/internal/editor"
	"github.com/example/artframe/internal/logging"
	"github.com/example/artframe/internal/notify"
	"github.com/example/artframe/internal/render"
)

type exportCmd struct {
	*root
	fs *flag.FlagSet

	ref           string
	output        string
	format        string
	quality       int
	copy          bool
	fromClipboard bool
	timeout       time.Duration
	transform     transformFlags
}

func (c *exportCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *exportCmd) Program() string {
	return c.root.Program() + " export"
}

func parseExportCmd(args []string, r *root) (*exportCmd, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	c := &exportCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	format, quality := "", 0
	if r != nil && r.config != nil {
		format, quality = r.config.Export.Format, r.config.Export.Quality
	}
	fs.StringVar(&c.output, "o", "", "output file, or - for stdout (default frame.<ext> in save_dir)")
	fs.StringVar(&c.format, "format", format, "output format: jpeg or png")
	fs.IntVar(&c.quality, "quality", quality, "JPEG quality 1-100")
	fs.BoolVar(&c.copy, "copy", false, "also copy the exported image to the clipboard")
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
	if c.ref == "" && !c.fromClipboard {
		return nil, &UsageError{of: c}
	}
	if _, err := render.ParseFormat(c.format); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *exportCmd) exporter() *render.Exporter {
	e := render.NewExporter()
	e.Format, _ = render.ParseFormat(c.format)
	if c.quality > 0 {
		e.Quality = c.quality
	}
	return e
}

func (c *exportCmd) Run() error {
	ref, err := c.sourceRef(c.ref, c.fromClipboard)
	if err != nil {
		return err
	}
	vp, err := parseViewport(c.transform.viewport)
	if err != nil {
		return err
	}
	prior, err := c.transform.prior(c.fs, vp)
	if err != nil {
		return err
	}

	opts := c.sessionOptions()
	opts.Viewport = vp
	opts.Exporter = c.exporter()
	s, err := c.openSession(opts, ref, prior, c.timeout)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer s.Dispose()

	logging.Logger().Debug("exporting", "state", s.State().String())
	res, err := s.Export(context.Background())
	if err != nil {
		c.notifier.Failure(err)
		return fmt.Errorf("export: %w", err)
	}

	var decoded image.Image
	decode := func() (image.Image, error) {
		if decoded != nil {
			return decoded, nil
		}
		img, err := editor.DecodeResult(res)
		decoded = img
		return img, err
	}

	if c.output == "-" {
		if _, err := c.out().Write(res.Data); err != nil {
			return fmt.Errorf("export: write stdout: %w", err)
		}
		if c.notifier.Enabled(notify.EventExport) {
			// No file to use as the icon.
			if img, err := decode(); err != nil {
				logging.Logger().Warn("notification icon", "err", err)
			} else {
				c.notifier.Export("", img)
			}
		}
	} else {
		saveDir := ""
		if c.config != nil {
			saveDir = c.config.SaveDir
		}
		path := editor.OutputPath(c.output, saveDir, res.Format)
		if err := editor.WriteResult(path, res); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(c.errOut(), "exported %s (%dx%d %s, %d bytes)\n", path, res.Width, res.Height, res.Format, len(res.Data))
		c.notifier.Export(path, nil)
	}

	if c.copy {
		img, err := decode()
		if err != nil {
			return err
		}
		if err := clipboard.WriteImage(img); err != nil {
			return fmt.Errorf("export: copy to clipboard: %w", err)
		}
		c.notifier.Copy("exported image")
	}
	return nil
}
