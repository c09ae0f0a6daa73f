package main

import (
	"flag"
	"fmt"

	"github.com/example/artframe/internal/editor"
	"github.com/example/artframe/internal/session"
)

type editCmd struct {
	*root
	fs *flag.FlagSet

	ref           string
	statePath     string
	output        string
	copy          bool
	fromClipboard bool
	pixelRatio    float64
}

func (c *editCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *editCmd) Program() string {
	return c.root.Program() + " edit"
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	c := &editCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	dpr := 0.0
	if r != nil && r.config != nil {
		dpr = r.config.Editor.PixelRatio
	}
	fs.StringVar(&c.statePath, "state", "", "JSON file to resume the transform from and save it to")
	fs.StringVar(&c.output, "o", "", "export file (default frame.<ext> in save_dir)")
	fs.BoolVar(&c.copy, "copy", false, "also copy each export to the clipboard")
	fs.BoolVar(&c.fromClipboard, "from-clipboard", false, "load the image from the clipboard")
	fs.Float64Var(&c.pixelRatio, "dpr", dpr, "device pixel ratio (0 means 1)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, &UsageError{of: c}
	}
	c.ref = fs.Arg(0)
	return c, nil
}

func (c *editCmd) Run() error {
	ref, err := c.sourceRef(c.ref, c.fromClipboard)
	if err != nil {
		return err
	}
	prior, err := editor.LoadState(c.statePath)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}

	opts := c.sessionOptions()
	if c.pixelRatio > 0 {
		opts.PixelRatio = c.pixelRatio
	}
	s := session.New(opts)
	defer s.Dispose()
	s.SetSource(ref, prior)

	saveDir := ""
	if c.config != nil {
		saveDir = c.config.SaveDir
	}
	ed := editor.New(editor.Options{
		Session:    s,
		Theme:      c.activeTheme,
		PixelRatio: opts.PixelRatio,
		Output:     c.output,
		SaveDir:    saveDir,
		StatePath:  c.statePath,
		Copy:       c.copy,
		Notifier:   c.notifier,
	})
	ed.Run()
	return nil
}
