package theme

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseOverridesDefaults(t *testing.T) {
	in := `
# comment
Name: Custom
Background: #102030
Guide: #0F0
Frame: #11223380
Unknown: #FFFFFF
not a pair
`
	th, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if th.Name != "Custom" {
		t.Fatalf("Name = %q", th.Name)
	}
	if th.Background != (color.RGBA{0x10, 0x20, 0x30, 255}) {
		t.Fatalf("Background = %v", th.Background)
	}
	if th.Guide != (color.RGBA{0, 255, 0, 255}) {
		t.Fatalf("Guide = %v", th.Guide)
	}
	if th.Frame != (color.RGBA{0x11, 0x22, 0x33, 0x80}) {
		t.Fatalf("Frame = %v", th.Frame)
	}
	if th.Placeholder != Default().Placeholder {
		t.Fatalf("missing key lost its default: %v", th.Placeholder)
	}
}

func TestParseRejectsBadColor(t *testing.T) {
	_, err := Parse(strings.NewReader("Name: x\nGuide: red\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}
}

func TestFormatColorRoundTrip(t *testing.T) {
	for _, c := range []color.RGBA{{1, 2, 3, 255}, {255, 128, 0, 64}} {
		got, err := ParseColor(FormatColor(c))
		if err != nil || got != c {
			t.Fatalf("round trip of %v gave %v, %v", c, got, err)
		}
	}
}

func TestEmbeddedThemesLoad(t *testing.T) {
	names := Embedded()
	if len(names) == 0 {
		t.Fatal("no embedded themes")
	}
	l := &Loader{}
	for _, n := range names {
		th, err := l.Load(n)
		if err != nil {
			t.Fatalf("Load(%q): %v", n, err)
		}
		if th.Name == "" || th.Background.A != 255 {
			t.Fatalf("theme %q looks incomplete: %+v", n, th)
		}
	}
}

func TestLoaderOrder(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mine.theme"), []byte("Name: Mine\nBackground: #010203\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &Loader{ConfigDir: dir, Extra: map[string]*Theme{"fromrc": {Name: "FromRC"}}}

	th, err := l.Load("mine")
	if err != nil || th.Name != "Mine" {
		t.Fatalf("config dir theme: %+v, %v", th, err)
	}
	th, err = l.Load(filepath.Join(dir, "mine.theme"))
	if err != nil || th.Background != (color.RGBA{1, 2, 3, 255}) {
		t.Fatalf("path theme: %+v, %v", th, err)
	}
	th, err = l.Load("FromRC")
	if err != nil || th.Name != "FromRC" {
		t.Fatalf("config file theme: %+v, %v", th, err)
	}
	th.Name = "changed"
	if l.Extra["fromrc"].Name != "FromRC" {
		t.Fatal("Load returned the shared theme instead of a copy")
	}
	th, err = l.Load("")
	if err != nil || th.Name != "Default" {
		t.Fatalf("empty name: %+v, %v", th, err)
	}
	if _, err := l.Load("does-not-exist"); err == nil {
		t.Fatal("expected error for unknown theme")
	}
}

func TestApplyAndValues(t *testing.T) {
	th := Default()
	if err := th.Apply(map[string]string{"Window": "#000000", "Name": "x"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if th.Window != (color.RGBA{0, 0, 0, 255}) || th.Name != "x" {
		t.Fatalf("Apply result %+v", th)
	}
	vals := th.Values()
	if vals["Window"] != "#000000" {
		t.Fatalf("Values()[Window] = %q", vals["Window"])
	}
	if len(vals) != len(Fields()) {
		t.Fatalf("Values has %d keys, Fields %d", len(vals), len(Fields()))
	}
}
