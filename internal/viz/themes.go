package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/verlet/internal/geom"
	"golang.org/x/image/colornames"
)

// Theme colors the chrome around the simulation. Bodies keep their own
// colors.
type Theme struct {
	Name     string
	Primary  lipgloss.Color
	Success  lipgloss.Color
	Warning  lipgloss.Color
	Boundary geom.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:     "cyberpunk",
		Primary:  lipgloss.Color("#ff00ff"),
		Success:  lipgloss.Color("#00ff00"),
		Warning:  lipgloss.Color("#ff8800"),
		Boundary: geom.FromRGBA(colornames.Cyan),
	}

	ThemeRetroGreen = Theme{
		Name:     "retro",
		Primary:  lipgloss.Color("#00ff00"),
		Success:  lipgloss.Color("#88ff88"),
		Warning:  lipgloss.Color("#ffff00"),
		Boundary: geom.FromRGBA(colornames.Limegreen),
	}

	ThemeMinimal = Theme{
		Name:     "minimal",
		Primary:  lipgloss.Color("#ffffff"),
		Success:  lipgloss.Color("#00ff00"),
		Warning:  lipgloss.Color("#ffaa00"),
		Boundary: geom.FromRGBA(colornames.Gray),
	}

	CurrentTheme = ThemeCyberpunk

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
	}
)

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

// NextTheme switches to the theme after the current one.
func NextTheme() {
	for i, t := range Themes {
		if t.Name == CurrentTheme.Name {
			CurrentTheme = Themes[(i+1)%len(Themes)]
			return
		}
	}
	CurrentTheme = Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
