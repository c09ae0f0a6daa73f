package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/artframe/internal/config"
)

type configCmd struct {
	*root
	fs *flag.FlagSet
	// path overrides where save writes.
	path string
}

func (c *configCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *configCmd) Program() string {
	return c.root.Program() + " config"
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	c := &configCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.path, "file", "", "file for save (default: the loaded config or ~/.config/artframe/config.rc)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}

	subCmd := args[0]
	switch subCmd {
	case "print":
		return c.runPrint()
	case "save":
		return c.runSave()
	default:
		return fmt.Errorf("unknown config command: %s", subCmd)
	}
}

func (c *configCmd) runPrint() error {
	_, err := fmt.Fprint(c.out(), c.root.config.String())
	return err
}

func (c *configCmd) runSave() error {
	cfg := c.root.config
	path := c.path

	// Save over the file the config came from, otherwise the XDG default
	if path == "" {
		loader := config.NewLoader(version, configPathOverride)
		path = loader.GetConfigPath()
		if path == "" {
			path = loader.DefaultSavePath()
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file %s: %w", path, err)
	}
	if _, err := f.WriteString(cfg.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(c.errOut(), "Configuration saved to %s\n", path)
	return nil
}
