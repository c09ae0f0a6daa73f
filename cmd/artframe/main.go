package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/gg"

	"github.com/example/artframe/internal/clipboard"
	"github.com/example/artframe/internal/config"
	"github.com/example/artframe/internal/logging"
	"github.com/example/artframe/internal/notify"
	"github.com/example/artframe/internal/session"
	"github.com/example/artframe/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs           *flag.FlagSet
	program      string
	notifier     *notify.Notifier
	config       *config.Config
	exportAlerts bool
	copyAlerts   bool
	themeName    string
	activeTheme  *theme.Theme
	verbose      bool
	logJSON      bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// readClipboard resolves -from-clipboard. Nil means clipboard.Reference.
	readClipboard func() (string, error)
}

func (r *root) Program() string {
	return r.program
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	prefs := notify.LoadPreferences()
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}

	r := &root{
		fs:       flag.NewFlagSet("artframe", flag.ExitOnError),
		program:  "artframe",
		notifier: notify.New(prefs),
		config:   cfg,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	r.fs.BoolVar(&r.exportAlerts, "notify-export", cfg.Notify.Export, "show a desktop notification after an export is written")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying to the clipboard")
	r.fs.BoolVar(&r.verbose, "v", false, "enable debug logging")
	r.fs.BoolVar(&r.logJSON, "log-json", false, "write logs as JSON")

	// Precedence: CLI > Env > Config > Default
	r.fs.StringVar(&r.themeName, "theme", "", "preview theme name or file (light, dark, print)")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) setupLogging() {
	level := slog.LevelWarn
	if r.verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(r.errOut(), level, r.logJSON)
	logging.SetLogger(logger)
	gg.SetLogger(logger)
}

// resolveTheme picks the theme from the flag, ARTFRAME_THEME, the config
// file and finally the built-in default.
func (r *root) resolveTheme() *theme.Theme {
	themeName := r.themeName
	if themeName == "" {
		themeName = os.Getenv("ARTFRAME_THEME")
	}
	if themeName == "" && r.config != nil {
		themeName = r.config.Theme
	}
	loader := theme.NewLoader()
	if r.config != nil {
		loader.Extra = r.config.Themes
	}
	t, err := loader.Load(themeName)
	if err != nil {
		if themeName != "" && themeName != "default" {
			fmt.Fprintf(r.errOut(), "warning: failed to load theme '%s': %v. using default.\n", themeName, err)
		}
		t = theme.Default()
	}
	return t
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	r.setupLogging()
	if r.notifier != nil {
		r.notifier.Enable(notify.EventExport, r.exportAlerts)
		r.notifier.Enable(notify.EventCopy, r.copyAlerts)
		r.notifier.Enable(notify.EventFailure, r.exportAlerts)
	}
	r.activeTheme = r.resolveTheme()

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "edit":
		cmd, err = parseEditCmd(subArgs, r)
	case "export":
		cmd, err = parseExportCmd(subArgs, r)
	case "preview":
		cmd, err = parsePreviewCmd(subArgs, r)
	case "interactive":
		cmd, err = parseInteractiveCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// sessionOptions builds session options from the config and active theme.
func (r *root) sessionOptions() session.Options {
	opts := session.Options{Theme: r.activeTheme}
	if r.config != nil {
		opts.DisplayMax = r.config.Editor.DisplayMax
		opts.PixelRatio = r.config.Editor.PixelRatio
		opts.RefreshHz = r.config.Editor.RefreshHz
		opts.Settle = r.config.Settle()
		opts.Exporter = r.config.Exporter()
	}
	return opts
}

// sourceRef returns the image reference from the argument or the clipboard.
func (r *root) sourceRef(arg string, fromClipboard bool) (string, error) {
	if !fromClipboard {
		return strings.TrimSpace(arg), nil
	}
	if arg != "" {
		return "", fmt.Errorf("-from-clipboard cannot be combined with an image argument")
	}
	read := r.readClipboard
	if read == nil {
		read = clipboard.Reference
	}
	ref, err := read()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return ref, nil
}

func (r *root) out() io.Writer {
	if r.stdout == nil {
		return os.Stdout
	}
	return r.stdout
}

func (r *root) errOut() io.Writer {
	if r.stderr == nil {
		return os.Stderr
	}
	return r.stderr
}
