package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	serial "github.com/allbin/serial-loopback"
	"github.com/allbin/serial-loopback/internal/probe"
	"github.com/allbin/serial-loopback/internal/tui/styles"
)

// RunState is the phase of a loopback run shown in the status bar
type RunState int

const (
	RunEnumerating RunState = iota
	RunProbing
	RunDone
	RunAborted
	RunFailed
)

func (s RunState) String() string {
	switch s {
	case RunEnumerating:
		return "ENUMERATING"
	case RunProbing:
		return "PROBING"
	case RunDone:
		return "DONE"
	case RunAborted:
		return "ABORTED"
	case RunFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

type StatusBar struct {
	config  serial.Config
	state   RunState
	probed  int
	total   int
	summary probe.Summary
	err     error
	width   int
}

func NewStatusBar(config serial.Config) *StatusBar {
	return &StatusBar{config: config}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetState(state RunState, err error) {
	sb.state = state
	sb.err = err
}

func (sb *StatusBar) State() RunState {
	return sb.state
}

func (sb *StatusBar) SetProgress(probed, total int) {
	sb.probed = probed
	sb.total = total
}

func (sb *StatusBar) SetSummary(summary probe.Summary) {
	sb.summary = summary
	sb.probed = summary.Probed
	sb.total = summary.Found
}

// View renders the bar, prefixed with spinner while the run is active
func (sb *StatusBar) View(spinner string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	var stateBackground lipgloss.Color
	switch sb.state {
	case RunDone:
		stateBackground = styles.Green
	case RunAborted, RunFailed:
		stateBackground = styles.Red
	default:
		stateBackground = styles.Blue
	}
	state := lipgloss.NewStyle().
		Foreground(styles.Surface0).
		Background(stateBackground).
		Bold(true).
		Padding(0, 1).
		Render(sb.state.String())

	var activity string
	if sb.state == RunEnumerating || sb.state == RunProbing {
		activity = lipgloss.NewStyle().Padding(0, 1).Render(spinner)
	}

	progress := lipgloss.NewStyle().
		Foreground(styles.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(fmt.Sprintf("%d/%d ports", sb.probed, sb.total))

	var detail string
	switch {
	case sb.err != nil:
		detail = styles.ErrorStyle.Render(sb.err.Error())
	case sb.state == RunDone || sb.state == RunAborted:
		detail = fmt.Sprintf("%s %s %s %s",
			styles.SuccessStyle.Render(fmt.Sprintf("✓%d", sb.summary.Successes)),
			styles.TimeoutStyle.Render(fmt.Sprintf("○%d", sb.summary.Timeouts)),
			styles.IOErrorStyle.Render(fmt.Sprintf("!%d", sb.summary.IOErrors)),
			styles.OpenFailedStyle.Render(fmt.Sprintf("✗%d", sb.summary.OpenFailed)))
	}
	detail = lipgloss.NewStyle().Padding(0, 1).Render(detail)

	connInfo := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Padding(0, 1).
		Render("⚡ " + sb.config.String())

	divider := lipgloss.NewStyle().
		Foreground(styles.Overlay0).
		Render("│")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, state, activity, progress, divider, detail)
	rightSide := connInfo

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
