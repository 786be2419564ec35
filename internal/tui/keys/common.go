package keys

import "github.com/charmbracelet/bubbles/key"

// Common key bindings used across TUI commands
type CommonKeys struct {
	Quit key.Binding
	Help key.Binding
}

func NewCommonKeys() CommonKeys {
	return CommonKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// ProbeKeys are the bindings of the live probe view
type ProbeKeys struct {
	CommonKeys
	Up         key.Binding
	Down       key.Binding
	ToggleData key.Binding
}

func NewProbeKeys() ProbeKeys {
	return ProbeKeys{
		CommonKeys: NewCommonKeys(),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		ToggleData: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "toggle hex/ascii"),
		),
	}
}

func (k ProbeKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.ToggleData, k.Quit}
}

func (k ProbeKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.ToggleData},
		{k.Help, k.Quit},
	}
}
