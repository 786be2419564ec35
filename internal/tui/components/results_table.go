package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/evertras/bubble-table/table"

	serial "github.com/allbin/serial-loopback"
	"github.com/allbin/serial-loopback/internal/probe"
	"github.com/allbin/serial-loopback/internal/report"
	"github.com/allbin/serial-loopback/internal/tui/styles"
)

const (
	columnKeyIndex  = "index"
	columnKeyPort   = "port"
	columnKeyStatus = "status"
	columnKeyDetail = "detail"
	columnKeyData   = "data"
)

// ProbeState is the progress of one row
type ProbeState int

const (
	StateQueued ProbeState = iota
	StateProbing
	StateDone
)

// ResultRow is one port and, once probed, its outcome
type ResultRow struct {
	Port    serial.DeviceDescriptor
	State   ProbeState
	Outcome probe.Outcome
}

// ResultsTable lists every port of a run with its outcome
type ResultsTable struct {
	table     table.Model
	rows      []ResultRow
	showASCII bool
	width     int
	height    int
}

func NewResultsTable(width, height int) *ResultsTable {
	rt := &ResultsTable{}
	rt.SetSize(width, height)
	return rt
}

// SetPorts replaces the rows with one queued row per port
func (rt *ResultsTable) SetPorts(ports []serial.DeviceDescriptor) {
	rt.rows = make([]ResultRow, len(ports))
	for i, p := range ports {
		rt.rows[i] = ResultRow{Port: p, State: StateQueued}
	}
	rt.refresh()
}

// SetProbing marks row index as in progress
func (rt *ResultsTable) SetProbing(index int) {
	if index < 0 || index >= len(rt.rows) {
		return
	}
	rt.rows[index].State = StateProbing
	rt.refresh()
}

// SetOutcome records the outcome of row index
func (rt *ResultsTable) SetOutcome(index int, outcome probe.Outcome) {
	if index < 0 || index >= len(rt.rows) {
		return
	}
	rt.rows[index].State = StateDone
	rt.rows[index].Outcome = outcome
	rt.refresh()
}

// Rows returns the current rows
func (rt *ResultsTable) Rows() []ResultRow {
	return rt.rows
}

// ToggleData switches the data column between hex and ASCII
func (rt *ResultsTable) ToggleData() {
	rt.showASCII = !rt.showASCII
	rt.refresh()
}

// ShowingASCII reports whether the data column renders ASCII
func (rt *ResultsTable) ShowingASCII() bool {
	return rt.showASCII
}

func (rt *ResultsTable) SetSize(width, height int) {
	if width < 60 {
		width = 60
	}
	if height < 3 {
		height = 3
	}
	rt.width = width
	rt.height = height
	rt.refresh()
}

func (rt *ResultsTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	rt.table, cmd = rt.table.Update(msg)
	return cmd
}

func (rt *ResultsTable) View() string {
	return rt.table.View()
}

func (rt *ResultsTable) columns() []table.Column {
	dataTitle := "Hex"
	if rt.showASCII {
		dataTitle = "ASCII"
	}
	return []table.Column{
		table.NewColumn(columnKeyIndex, "#", 4),
		table.NewFlexColumn(columnKeyPort, "Port", 2),
		table.NewColumn(columnKeyStatus, "Status", 14),
		table.NewFlexColumn(columnKeyDetail, "Detail", 2),
		table.NewColumn(columnKeyData, dataTitle, 24),
	}
}

func (rt *ResultsTable) refresh() {
	highlighted := 0
	if len(rt.rows) > 0 {
		highlighted = rt.table.GetHighlightedRowIndex()
	}

	rows := make([]table.Row, len(rt.rows))
	for i, r := range rt.rows {
		rows[i] = table.NewRow(rt.rowData(i, r))
	}

	// header and border take four lines
	pageSize := rt.height - 4
	if pageSize < 1 {
		pageSize = 1
	}

	rt.table = table.New(rt.columns()).
		WithRows(rows).
		WithTargetWidth(rt.width).
		WithPageSize(pageSize).
		WithBaseStyle(lipgloss.NewStyle().Foreground(styles.Text).Align(lipgloss.Left)).
		HeaderStyle(lipgloss.NewStyle().Foreground(styles.Mauve).Bold(true)).
		HighlightStyle(lipgloss.NewStyle().Background(styles.Surface1)).
		WithHighlightedRow(highlighted).
		Focused(true)
}

func (rt *ResultsTable) rowData(i int, r ResultRow) table.RowData {
	data := table.RowData{
		columnKeyIndex: fmt.Sprintf("%d", i+1),
		columnKeyPort:  report.DescribePort(r.Port),
	}

	switch r.State {
	case StateQueued:
		data[columnKeyStatus] = table.NewStyledCell("queued", styles.MutedStyle)
		data[columnKeyDetail] = ""
		data[columnKeyData] = ""
	case StateProbing:
		data[columnKeyStatus] = table.NewStyledCell("probing", styles.PendingStyle)
		data[columnKeyDetail] = ""
		data[columnKeyData] = ""
	case StateDone:
		kind := r.Outcome.Kind
		data[columnKeyStatus] = table.NewStyledCell(
			styles.OutcomeSymbol(kind)+" "+kind.String(),
			styles.OutcomeStyle(kind),
		)
		data[columnKeyDetail] = r.Outcome.Message()
		data[columnKeyData] = rt.formatData(r.Outcome.Data)
	}
	return data
}

func (rt *ResultsTable) formatData(data []byte) string {
	if rt.showASCII {
		return report.ASCIIString(data)
	}
	return report.HexString(data)
}
