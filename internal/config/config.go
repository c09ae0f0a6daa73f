package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/example/artframe/internal/render"
	"github.com/example/artframe/internal/theme"
)

// Editor holds the interactive preview settings.
type Editor struct {
	DisplayMax float64 // Largest preview side in logical pixels
	PixelRatio float64 // 0 means detect from the window
	SettleMS   int     // Quiet time before a transform change is reported
	RefreshHz  float64 // Redraw pacing
}

// Export holds the encoder settings.
type Export struct {
	Format  string
	Quality int
}

// Notify holds notification settings.
type Notify struct {
	Export bool
	Copy   bool
}

// Config holds the application configuration.
type Config struct {
	Theme   string
	SaveDir string
	Editor  Editor
	Export  Export
	Notify  Notify
	Themes  map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Theme: "", // Default to empty to allow fallback to Env/Default
		Editor: Editor{
			DisplayMax: 600,
			SettleMS:   200,
			RefreshHz:  60,
		},
		Export: Export{
			Format:  "jpeg",
			Quality: render.DefaultQuality,
		},
		Themes: make(map[string]*theme.Theme),
	}
}

// Validate replaces out-of-range values with defaults and reports what it
// changed.
func (c *Config) Validate() []string {
	def := New()
	var fixed []string
	if !(c.Editor.DisplayMax >= 100) || math.IsInf(c.Editor.DisplayMax, 0) {
		fixed = append(fixed, fmt.Sprintf("editor.display_max %v -> %v", c.Editor.DisplayMax, def.Editor.DisplayMax))
		c.Editor.DisplayMax = def.Editor.DisplayMax
	}
	if c.Editor.PixelRatio < 0 || c.Editor.PixelRatio > 8 || math.IsNaN(c.Editor.PixelRatio) {
		fixed = append(fixed, fmt.Sprintf("editor.device_pixel_ratio %v -> 0", c.Editor.PixelRatio))
		c.Editor.PixelRatio = 0
	}
	if c.Editor.SettleMS < 0 || c.Editor.SettleMS > 10000 {
		fixed = append(fixed, fmt.Sprintf("editor.settling_ms %d -> %d", c.Editor.SettleMS, def.Editor.SettleMS))
		c.Editor.SettleMS = def.Editor.SettleMS
	}
	if !(c.Editor.RefreshHz >= 1 && c.Editor.RefreshHz <= 480) {
		fixed = append(fixed, fmt.Sprintf("editor.refresh_hz %v -> %v", c.Editor.RefreshHz, def.Editor.RefreshHz))
		c.Editor.RefreshHz = def.Editor.RefreshHz
	}
	if _, err := render.ParseFormat(c.Export.Format); err != nil {
		fixed = append(fixed, fmt.Sprintf("export.format %q -> %q", c.Export.Format, def.Export.Format))
		c.Export.Format = def.Export.Format
	}
	if c.Export.Quality < 1 || c.Export.Quality > 100 {
		fixed = append(fixed, fmt.Sprintf("export.quality %d -> %d", c.Export.Quality, def.Export.Quality))
		c.Export.Quality = def.Export.Quality
	}
	return fixed
}

// Settle is the settling delay as a duration.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.Editor.SettleMS) * time.Millisecond
}

// Exporter builds an exporter from the export section.
func (c *Config) Exporter() *render.Exporter {
	e := render.NewExporter()
	if f, err := render.ParseFormat(c.Export.Format); err == nil {
		e.Format = f
	}
	if c.Export.Quality > 0 {
		e.Quality = c.Export.Quality
	}
	return e
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	// Root section
	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.SaveDir != "" {
		fmt.Fprintf(&sb, "save_dir = %s\n", c.SaveDir)
	}
	sb.WriteString("\n")

	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "display_max = %v\n", c.Editor.DisplayMax)
	fmt.Fprintf(&sb, "device_pixel_ratio = %v\n", c.Editor.PixelRatio)
	fmt.Fprintf(&sb, "settling_ms = %d\n", c.Editor.SettleMS)
	fmt.Fprintf(&sb, "refresh_hz = %v\n", c.Editor.RefreshHz)
	sb.WriteString("\n")

	sb.WriteString("[export]\n")
	fmt.Fprintf(&sb, "format = %s\n", c.Export.Format)
	fmt.Fprintf(&sb, "quality = %d\n", c.Export.Quality)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "export = %v\n", c.Notify.Export)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	sb.WriteString("\n")

	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		values := t.Values()
		for _, key := range theme.Fields() {
			fmt.Fprintf(&sb, "%s: %s\n", key, values[key])
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
