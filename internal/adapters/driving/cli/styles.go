package cli

import "github.com/charmbracelet/lipgloss"

// Colour palette shared by all commands.
var (
	colourPrimary = lipgloss.Color("#7C3AED") // Purple
	colourMuted   = lipgloss.Color("#6C7086") // Medium gray
	colourSuccess = lipgloss.Color("#A6E3A1") // Green
	colourWarning = lipgloss.Color("#F9E2AF") // Yellow
	colourError   = lipgloss.Color("#F38BA8") // Red
)

// Pre-configured styles for command output.
var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	styleMuted   = lipgloss.NewStyle().Foreground(colourMuted)
	styleSuccess = lipgloss.NewStyle().Foreground(colourSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(colourWarning)
	styleError   = lipgloss.NewStyle().Foreground(colourError)
)

// statusStyle picks a style for a pipeline status string.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "embedded":
		return styleSuccess
	case "partial", "chunked", "parsed":
		return styleWarning
	case "failed":
		return styleError
	default:
		return styleMuted
	}
}
