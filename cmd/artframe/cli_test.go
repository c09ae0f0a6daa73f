package main

import (
	"bytes"
	"errors"
	"flag"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "image/jpeg"

	"github.com/example/artframe/internal/config"
	"github.com/example/artframe/internal/notify"
	"github.com/example/artframe/internal/platform"
	"github.com/example/artframe/internal/source"
	"github.com/example/artframe/internal/theme"
	"github.com/example/artframe/internal/transform"
)

func testRoot(t *testing.T) (*root, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errb bytes.Buffer
	r := &root{
		program:     "artframe",
		config:      config.New(),
		activeTheme: theme.Default(),
		stdout:      &out,
		stderr:      &errb,
	}
	return r, &out, &errb
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeSolidPNG(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, solidPNG(t, w, h, c), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

var red = color.RGBA{220, 20, 20, 255}

func TestExportWritesFramedImage(t *testing.T) {
	r, _, errb := testRoot(t)
	src := writeSolidPNG(t, 827, 1197, red)
	out := filepath.Join(t.TempDir(), "frame.jpg")

	cmd, err := parseExportCmd([]string{"-o", out, src}, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(errb.String(), "exported "+out) {
		t.Errorf("missing summary, got %q", errb.String())
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if format != "jpeg" || img.Bounds().Dx() != 1400 || img.Bounds().Dy() != 1400 {
		t.Fatalf("got %s %v", format, img.Bounds())
	}
	cr, cg, _, _ := img.At(700, 700).RGBA()
	if cr>>8 < 190 || cg>>8 > 60 {
		t.Errorf("centre should be the photo, got r=%d g=%d", cr>>8, cg>>8)
	}
	wr, wg, wb, _ := img.At(10, 10).RGBA()
	if wr>>8 < 245 || wg>>8 < 245 || wb>>8 < 245 {
		t.Errorf("corner should be white, got %d %d %d", wr>>8, wg>>8, wb>>8)
	}
}

func TestExportToStdoutNotifiesWithThumbnail(t *testing.T) {
	r, out, _ := testRoot(t)
	var (
		sent     int
		body     string
		iconSeen bool
	)
	r.notifier = notify.New(notify.DefaultPreferences())
	r.notifier.Enable(notify.EventExport, true)
	r.notifier.Send = func(_, b string, opts platform.Options) error {
		sent++
		body = b
		if opts.IconPath != "" {
			if f, err := os.Open(opts.IconPath); err == nil {
				_, _, err = image.Decode(f)
				f.Close()
				iconSeen = err == nil
			}
		}
		return nil
	}
	src := writeSolidPNG(t, 40, 40, red)

	cmd, err := parseExportCmd([]string{"-o", "-", src}, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Len() == 0 {
		t.Fatal("nothing written to stdout")
	}
	if sent != 1 {
		t.Fatalf("sent %d notifications, want 1", sent)
	}
	if !strings.Contains(body, "image") {
		t.Errorf("body = %q", body)
	}
	if !iconSeen {
		t.Error("notification had no readable thumbnail icon")
	}
}

func TestExportRequiresImage(t *testing.T) {
	r, _, _ := testRoot(t)
	_, err := parseExportCmd(nil, r)
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(uerr.Error(), "Usage: artframe export") {
		t.Errorf("help text = %q", uerr.Error())
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	r, _, _ := testRoot(t)
	if _, err := parseExportCmd([]string{"-format", "gif", "x.png"}, r); err == nil {
		t.Fatal("expected error")
	}
}

func TestExportFromClipboard(t *testing.T) {
	r, out, _ := testRoot(t)
	r.readClipboard = func() (string, error) {
		return source.DataURI("image/png", solidPNG(t, 50, 50, red)), nil
	}

	cmd, err := parseExportCmd([]string{"-from-clipboard", "-format", "png", "-o", "-"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("stdout is not a PNG (%d bytes)", out.Len())
	}
}

func TestExportFromClipboardRejectsArgument(t *testing.T) {
	r, _, _ := testRoot(t)
	r.readClipboard = func() (string, error) { t.Fatal("clipboard should not be read"); return "", nil }
	cmd, err := parseExportCmd([]string{"-from-clipboard", "photo.png"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err == nil || !strings.Contains(err.Error(), "-from-clipboard cannot be combined") {
		t.Fatalf("expected combination error, got %v", err)
	}
}

func TestExportClipboardError(t *testing.T) {
	r, _, _ := testRoot(t)
	sentinel := errors.New("no display")
	r.readClipboard = func() (string, error) { return "", sentinel }
	cmd, err := parseExportCmd([]string{"-from-clipboard"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); !errors.Is(err, sentinel) || !strings.Contains(err.Error(), "read clipboard") {
		t.Fatalf("expected wrapped clipboard error, got %v", err)
	}
}

func TestExportDecodeFailure(t *testing.T) {
	r, _, _ := testRoot(t)
	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd, err := parseExportCmd([]string{"-o", filepath.Join(t.TempDir(), "x.jpg"), bad}, r)
	if err != nil {
		t.Fatal(err)
	}
	err = cmd.Run()
	if !errors.Is(err, source.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if !strings.Contains(err.Error(), "export: load image") {
		t.Errorf("missing context: %v", err)
	}
}

func TestTransformFlagsPrior(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(statePath, []byte(`{"x": 5, "y": 6, "scale": 0.8, "rotation": 10}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var tf transformFlags
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	tf.register(fs)
	if err := fs.Parse([]string{"-state", statePath, "-scale", "9", "-y", "-4"}); err != nil {
		t.Fatal(err)
	}
	st, err := tf.prior(fs, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := transform.State{X: 5, Y: -4, Scale: transform.MaxScale, Rotation: 10}
	if st == nil || *st != want {
		t.Fatalf("prior = %+v, want %+v", st, want)
	}

	var none transformFlags
	fs = flag.NewFlagSet("t", flag.ContinueOnError)
	none.register(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if st, err := none.prior(fs, nil); err != nil || st != nil {
		t.Fatalf("expected no prior, got %+v, %v", st, err)
	}
}

func TestParseViewport(t *testing.T) {
	vp, err := parseViewport("1280x800")
	if err != nil || vp == nil || vp.Width != 1280 || vp.Height != 800 {
		t.Fatalf("parseViewport = %+v, %v", vp, err)
	}
	if vp, err := parseViewport(""); vp != nil || err != nil {
		t.Errorf("empty viewport = %+v, %v", vp, err)
	}
	for _, bad := range []string{"1280", "ax2", "2xb"} {
		if _, err := parseViewport(bad); err == nil {
			t.Errorf("parseViewport(%q) should fail", bad)
		}
	}
}

func TestPreviewWritesBackingSizedPNG(t *testing.T) {
	r, _, _ := testRoot(t)
	out := filepath.Join(t.TempDir(), "preview.png")
	cmd, err := parsePreviewCmd([]string{"-size", "300", "-dpr", "2", "-o", out}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 600 || cfg.Height != 600 {
		t.Errorf("preview is %dx%d, want 600x600", cfg.Width, cfg.Height)
	}
}

func TestInteractiveScript(t *testing.T) {
	r, out, _ := testRoot(t)
	src := writeSolidPNG(t, 100, 100, red)
	exportPath := filepath.Join(t.TempDir(), "frame.jpg")
	cmd, err := parseInteractiveCmd([]string{
		"-e", "open " + src,
		"-e", "drag 0 0 180 0",
		"-e", "rotate 45.5",
		"-e", "state",
		"-e", "export " + exportPath,
		"-e", "exit",
		"-e", "scale 2",
	}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v\n%s", err, out.String())
	}
	got := out.String()
	for _, want := range []string{"ready", `"x": 420`, `"rotation": 45.5`, `"path": "` + exportPath + `"`} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "scale=2") {
		t.Error("commands after exit should not run")
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Errorf("export not written: %v", err)
	}
}

func TestInteractiveErrors(t *testing.T) {
	r, _, _ := testRoot(t)
	c := newInteractiveCmd(r)
	defer func() {
		if c.session != nil {
			c.session.Dispose()
		}
	}()
	tests := []struct {
		line string
		want string
	}{
		{"bogus", "unknown command"},
		{"scale", "usage: scale"},
		{"move 1 x", "invalid number"},
		{"drag 0 0 1 1", "no image loaded"},
		{"export", "export:"},
	}
	for _, tt := range tests {
		_, err := c.executeLine(tt.line)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: expected error containing %q, got %v", tt.line, tt.want, err)
		}
	}
	if done, err := c.executeLine("   "); done || err != nil {
		t.Errorf("blank line = %v, %v", done, err)
	}
}

func TestInteractivePrompt(t *testing.T) {
	r, out, errb := testRoot(t)
	r.stdin = strings.NewReader("scale 0.7\nnope\nexit\n")
	cmd, err := parseInteractiveCmd(nil, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "scale=0.700") {
		t.Errorf("stdout = %q", out.String())
	}
	if !strings.Contains(errb.String(), "unknown command") {
		t.Errorf("stderr = %q", errb.String())
	}
}

func TestConfigPrintAndSave(t *testing.T) {
	r, out, _ := testRoot(t)
	r.config.Theme = "dark"
	cmd, err := parseConfigCmd([]string{"print"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "theme = dark") || !strings.Contains(out.String(), "[export]") {
		t.Errorf("config print = %q", out.String())
	}

	path := filepath.Join(t.TempDir(), "sub", "config.rc")
	cmd, err = parseConfigCmd([]string{"-file", path, "save"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	saved, err := config.Parse(f)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Theme != "dark" {
		t.Errorf("saved theme = %q", saved.Theme)
	}
}

func TestResolveThemePrecedence(t *testing.T) {
	r, _, _ := testRoot(t)
	custom := theme.Default()
	custom.Name = "Mine"
	r.config.Themes["mine"] = custom
	r.config.Theme = "mine"

	t.Setenv("ARTFRAME_THEME", "")
	if got := r.resolveTheme(); got.Name != "Mine" {
		t.Errorf("config theme = %q", got.Name)
	}
	t.Setenv("ARTFRAME_THEME", "dark")
	if got := r.resolveTheme(); got.Name != "Dark" {
		t.Errorf("env theme = %q", got.Name)
	}
	r.themeName = "print"
	if got := r.resolveTheme(); got.Name == "Dark" || got.Name == "Mine" {
		t.Errorf("flag theme = %q", got.Name)
	}
	r.themeName = "missing-theme"
	if got := r.resolveTheme(); got.Name != "Default" {
		t.Errorf("fallback theme = %q", got.Name)
	}
}

func TestRootUsage(t *testing.T) {
	help := (&UsageError{of: &root{program: "artframe"}}).Error()
	for _, want := range []string{"Usage: artframe", "export", "interactive", "Built-in themes:"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestVersion(t *testing.T) {
	r, out, _ := testRoot(t)
	if err := (&versionCmd{r: r}).Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "artframe version "+version) {
		t.Errorf("version output = %q", out.String())
	}
}
