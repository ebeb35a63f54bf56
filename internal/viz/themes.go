package viz

import "github.com/charmbracelet/lipgloss"

// Theme is a colour scheme for terminal output. Beads are coloured from
// Palette by type index.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Frame   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Palette []lipgloss.Color
}

var (
	ThemeOcean = Theme{
		Name:    "ocean",
		Primary: lipgloss.Color("#00a8cc"),
		Accent:  lipgloss.Color("#ffd700"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#4488aa"),
		Frame:   lipgloss.Color("#335577"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffcc00"),
		Error:   lipgloss.Color("#ff4444"),
		Palette: []lipgloss.Color{"#4fc3f7", "#ff8a65", "#aed581", "#ba68c8", "#fff176", "#e57373"},
	}

	ThemeCyberpunk = Theme{
		Name:    "cyberpunk",
		Primary: lipgloss.Color("#ff00ff"),
		Accent:  lipgloss.Color("#ffff00"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666666"),
		Frame:   lipgloss.Color("#444466"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ff8800"),
		Error:   lipgloss.Color("#ff0000"),
		Palette: []lipgloss.Color{"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff8800"},
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Frame:   lipgloss.Color("#555555"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
		Palette: []lipgloss.Color{"#cccccc", "#0088ff", "#ffaa00"},
	}

	CurrentTheme = ThemeOcean

	Themes = []Theme{ThemeOcean, ThemeCyberpunk, ThemeMinimal}
)

// GetTheme returns a theme by name, falling back to the first theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// TypeColor returns the colour of bead type t, wrapping around the palette.
func (t Theme) TypeColor(typ int) lipgloss.Color {
	if len(t.Palette) == 0 || typ < 0 {
		return t.Text
	}
	return t.Palette[typ%len(t.Palette)]
}

// Paint colours a canvas cell by its layer: bead types from the palette,
// the box outline in Frame, untouched cells unstyled.
func (t Theme) Paint(layer int, s string) string {
	switch {
	case layer < 0:
		return s
	case layer == BoxLayer:
		return lipgloss.NewStyle().Foreground(t.Frame).Render(s)
	default:
		return lipgloss.NewStyle().Foreground(t.TypeColor(layer)).Render(s)
	}
}
