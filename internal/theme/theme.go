package theme

import (
	"image/color"
)

// Theme is the colour palette of the preview surface and the editor window.
// The export is never themed.
type Theme struct {
	Name string

	// Preview surface
	Background  color.RGBA // Neutral fill behind the template
	Frame       color.RGBA // Outer square border
	Guide       color.RGBA // Inner rounded clip guide
	Placeholder color.RGBA // "no image" prompt

	// Editor window
	Window color.RGBA // Area around the preview
	Status color.RGBA // Status line text
	Error  color.RGBA // Failure messages
}

// Default returns the built-in light theme.
func Default() *Theme {
	return &Theme{
		Name:        "Default",
		Background:  color.RGBA{240, 240, 240, 255},
		Frame:       color.RGBA{51, 51, 51, 255},
		Guide:       color.RGBA{0, 120, 215, 255},
		Placeholder: color.RGBA{110, 110, 110, 255},
		Window:      color.RGBA{220, 220, 220, 255},
		Status:      color.RGBA{0, 0, 0, 255},
		Error:       color.RGBA{190, 30, 30, 255},
	}
}
