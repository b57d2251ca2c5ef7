package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#01cdfe")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#120924")).
			Background(lipgloss.Color("#05ffa1")).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9ca3d8")).
			Padding(0, 1)

	playerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#05ffa1")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#01cdfe"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff71ce")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)

var rosterColors = map[string]lipgloss.Color{
	"blue":   lipgloss.Color("33"),
	"green":  lipgloss.Color("42"),
	"red":    lipgloss.Color("196"),
	"purple": lipgloss.Color("135"),
	"cyan":   lipgloss.Color("51"),
}

// agentStyle colours a character name with its roster colour.
func agentStyle(color string) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	if c, ok := rosterColors[color]; ok {
		style = style.Foreground(c)
	}
	return style
}
