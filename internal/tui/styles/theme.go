package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serial-loopback/internal/probe"
)

// Catppuccin Mocha colors used across the CLI and TUI
var (
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8")
	Text     = lipgloss.Color("#cdd6f4")

	Blue   = lipgloss.Color("#89b4fa")
	Sky    = lipgloss.Color("#89dceb")
	Green  = lipgloss.Color("#a6e3a1")
	Yellow = lipgloss.Color("#f9e2af")
	Peach  = lipgloss.Color("#fab387")
	Red    = lipgloss.Color("#f38ba8")
	Mauve  = lipgloss.Color("#cba6f7")
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(Surface1)

	// Port listing
	PortStyle = lipgloss.NewStyle().
			Foreground(Sky).
			Bold(true)

	DescriptionStyle = lipgloss.NewStyle().
				Foreground(Subtext0)

	// Outcome styles
	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	TimeoutStyle = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)

	IOErrorStyle = lipgloss.NewStyle().
			Foreground(Peach).
			Bold(true)

	OpenFailedStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	PendingStyle = lipgloss.NewStyle().
			Foreground(Blue)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Red)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Overlay0)
)

// OutcomeStyle returns the style used to render an outcome of kind k
func OutcomeStyle(k probe.Kind) lipgloss.Style {
	switch k {
	case probe.KindSuccess:
		return SuccessStyle
	case probe.KindTimeout:
		return TimeoutStyle
	case probe.KindIOError:
		return IOErrorStyle
	case probe.KindOpenFailed:
		return OpenFailedStyle
	default:
		return MutedStyle
	}
}

// OutcomeSymbol returns a short status marker for k
func OutcomeSymbol(k probe.Kind) string {
	switch k {
	case probe.KindSuccess:
		return "✓"
	case probe.KindTimeout:
		return "○"
	case probe.KindIOError:
		return "!"
	case probe.KindOpenFailed:
		return "✗"
	default:
		return "?"
	}
}
