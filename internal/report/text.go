// Package report renders loopback runs for a terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	serial "github.com/allbin/serial-loopback"
	"github.com/allbin/serial-loopback/internal/probe"
	"github.com/allbin/serial-loopback/internal/tui/styles"
)

// Text writes a line oriented, styled report of a run to w.
// It implements probe.Reporter.
type Text struct {
	w     io.Writer
	total int
}

var _ probe.Reporter = (*Text)(nil)

// NewText creates a text reporter writing to w
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Header prints the configuration every port is probed with
func (t *Text) Header(config serial.Config, timeout fmt.Stringer) {
	fmt.Fprintln(t.w, styles.TitleStyle.Render("Serial loopback"))
	fmt.Fprintf(t.w, "%s %s, read timeout %s\n\n",
		styles.MutedStyle.Render("config:"), config, timeout)
}

func (t *Text) PortsFound(ports []serial.DeviceDescriptor) {
	t.total = len(ports)

	if len(ports) == 0 {
		fmt.Fprintln(t.w, "No serial ports found")
		return
	}

	fmt.Fprintf(t.w, "Found %d serial port(s):\n", len(ports))
	for _, p := range ports {
		fmt.Fprintf(t.w, "  %s\n", DescribePort(p))
	}
	fmt.Fprintln(t.w)
}

func (t *Text) ProbeStarted(index int, desc serial.DeviceDescriptor) {
	counter := styles.MutedStyle.Render(fmt.Sprintf("[%d/%d]", index+1, t.total))
	fmt.Fprintf(t.w, "%s %s\n", counter, styles.PortStyle.Render(DescribePort(desc)))
}

func (t *Text) ProbeFinished(_ int, _ serial.DeviceDescriptor, outcome probe.Outcome) {
	status := styles.OutcomeStyle(outcome.Kind).
		Render(styles.OutcomeSymbol(outcome.Kind) + " " + outcome.Kind.String())
	fmt.Fprintf(t.w, "  %s: %s\n", status, outcome.Message())

	if outcome.Kind == probe.KindSuccess {
		fmt.Fprintf(t.w, "    %s\n", FormatBytes(outcome.Data))
	}
}

// Summary prints the outcome counts of a finished run
func (t *Text) Summary(s probe.Summary) {
	if s.Found == 0 {
		return
	}

	parts := []string{
		styles.SuccessStyle.Render(fmt.Sprintf("%d success", s.Successes)),
		styles.TimeoutStyle.Render(fmt.Sprintf("%d timeout", s.Timeouts)),
		styles.IOErrorStyle.Render(fmt.Sprintf("%d i/o error", s.IOErrors)),
		styles.OpenFailedStyle.Render(fmt.Sprintf("%d open failed", s.OpenFailed)),
	}
	fmt.Fprintf(t.w, "\nProbed %d of %d port(s): %s\n", s.Probed, s.Found, strings.Join(parts, ", "))
	if s.Aborted {
		fmt.Fprintln(t.w, styles.ErrorStyle.Render("Run aborted after an open failure"))
	}
}

// EnumerationFailed prints the diagnostic for a host that could not list
// its ports
func (t *Text) EnumerationFailed(err error) {
	fmt.Fprintf(t.w, "No ports attached to the system: %v\n", err)
}
