// Package theme holds the palette of the tracker window and applies it to
// the Tk root.
package theme

import (
	tk "modernc.org/tk9.0"
)

// Palette holds resolved colors for one mode.
type Palette struct {
	AppBg   string
	Surface string
	Primary string
	Danger  string
	Accent  string
	Text    string
}

var (
	light = Palette{
		AppBg:   "#f7f9fb",
		Surface: "#ffffff",
		Primary: "#2563eb",
		Danger:  "#dc2626",
		Accent:  "#10b981",
		Text:    "#1e293b",
	}
	dark = Palette{
		AppBg:   "#0f172a",
		Surface: "#1e293b",
		Primary: "#3b82f6",
		Danger:  "#ef4444",
		Accent:  "#10b981",
		Text:    "#f1f5f9",
	}
	darkMode bool
)

// CurrentPalette returns colors for the current mode.
func CurrentPalette() Palette {
	if darkMode {
		return dark
	}
	return light
}

// Init selects the mode and applies its background to the root window. Call
// it before building views; widgets read CurrentPalette when created.
func Init(darkTheme bool) {
	darkMode = darkTheme
	_ = tk.ActivateTheme("azure light")
	tk.App.Configure(tk.Background(CurrentPalette().AppBg))
}
