package models

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	serial "github.com/allbin/serial-loopback"
	"github.com/allbin/serial-loopback/internal/probe"
	"github.com/allbin/serial-loopback/internal/tui/components"
	"github.com/allbin/serial-loopback/internal/tui/keys"
	"github.com/allbin/serial-loopback/internal/tui/styles"
)

// Messages sent from the goroutine driving a probe.Runner

type PortsFoundMsg struct {
	Ports []serial.DeviceDescriptor
}

type ProbeStartedMsg struct {
	Index int
	Port  serial.DeviceDescriptor
}

type ProbeFinishedMsg struct {
	Index   int
	Port    serial.DeviceDescriptor
	Outcome probe.Outcome
}

type RunFinishedMsg struct {
	Summary probe.Summary
	Err     error
}

// Reporter forwards runner progress to a running tea.Program
type Reporter struct {
	send func(tea.Msg)
}

var _ probe.Reporter = (*Reporter)(nil)

// NewReporter creates a reporter that delivers messages through send,
// usually (*tea.Program).Send
func NewReporter(send func(tea.Msg)) *Reporter {
	return &Reporter{send: send}
}

func (r *Reporter) PortsFound(ports []serial.DeviceDescriptor) {
	r.send(PortsFoundMsg{Ports: ports})
}

func (r *Reporter) ProbeStarted(index int, desc serial.DeviceDescriptor) {
	r.send(ProbeStartedMsg{Index: index, Port: desc})
}

func (r *Reporter) ProbeFinished(index int, desc serial.DeviceDescriptor, outcome probe.Outcome) {
	r.send(ProbeFinishedMsg{Index: index, Port: desc, Outcome: outcome})
}

// ProbeModel is the live view of one loopback run
type ProbeModel struct {
	table     *components.ResultsTable
	statusBar *components.StatusBar
	spinner   spinner.Model
	help      help.Model
	keys      keys.ProbeKeys

	cancel context.CancelFunc
	probed int
}

// NewProbeModel creates the view. cancel, if set, is called when the user
// quits so the run stops before its next port.
func NewProbeModel(config serial.Config, cancel context.CancelFunc) *ProbeModel {
	return &ProbeModel{
		table:     components.NewResultsTable(80, 20),
		statusBar: components.NewStatusBar(config),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(styles.PendingStyle),
		),
		help:   help.New(),
		keys:   keys.NewProbeKeys(),
		cancel: cancel,
	}
}

func (m *ProbeModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *ProbeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// status bar and help line
		m.table.SetSize(msg.Width, msg.Height-2)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width

	case spinner.TickMsg:
		if m.Running() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case PortsFoundMsg:
		m.table.SetPorts(msg.Ports)
		m.statusBar.SetState(components.RunProbing, nil)
		m.statusBar.SetProgress(0, len(msg.Ports))

	case ProbeStartedMsg:
		m.table.SetProbing(msg.Index)

	case ProbeFinishedMsg:
		m.table.SetOutcome(msg.Index, msg.Outcome)
		m.probed++
		m.statusBar.SetProgress(m.probed, len(m.table.Rows()))

	case RunFinishedMsg:
		m.statusBar.SetSummary(msg.Summary)
		var enumErr *serial.EnumerationError
		switch {
		case errors.Is(msg.Err, probe.ErrRunAborted):
			m.statusBar.SetState(components.RunAborted, msg.Err)
		case errors.As(msg.Err, &enumErr):
			m.statusBar.SetState(components.RunFailed, msg.Err)
		case errors.Is(msg.Err, context.Canceled):
			m.statusBar.SetState(components.RunAborted, nil)
		case msg.Err != nil:
			m.statusBar.SetState(components.RunFailed, msg.Err)
		default:
			m.statusBar.SetState(components.RunDone, nil)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.ToggleData):
			m.table.ToggleData()

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			cmds = append(cmds, m.table.Update(msg))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *ProbeModel) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.table.View(),
		m.statusBar.View(m.spinner.View()),
		m.help.View(m.keys),
	)
}

// Running reports whether the run has not finished yet
func (m *ProbeModel) Running() bool {
	state := m.statusBar.State()
	return state == components.RunEnumerating || state == components.RunProbing
}

// Rows returns the rows of the results table
func (m *ProbeModel) Rows() []components.ResultRow {
	return m.table.Rows()
}

// State returns the current phase of the run
func (m *ProbeModel) State() components.RunState {
	return m.statusBar.State()
}
