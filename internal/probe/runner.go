package probe

import (
	"context"
	"errors"
	"fmt"

	serial "github.com/allbin/serial-loopback"
	"go.uber.org/zap"
)

// ErrRunAborted is returned by Run when a port could not be opened and the
// policy is AbortRun.
var ErrRunAborted = errors.New("probe run aborted")

// OpenFailurePolicy decides what a run does after a port fails to open.
type OpenFailurePolicy int

const (
	// SkipPort reports the failure and moves on to the next port.
	SkipPort OpenFailurePolicy = iota
	// AbortRun reports the failure and stops; remaining ports are not probed.
	AbortRun
)

func (p OpenFailurePolicy) String() string {
	switch p {
	case SkipPort:
		return "skip"
	case AbortRun:
		return "abort"
	default:
		return "unknown"
	}
}

// ParseOpenFailurePolicy accepts "skip" or "abort".
func ParseOpenFailurePolicy(s string) (OpenFailurePolicy, error) {
	switch s {
	case "skip", "":
		return SkipPort, nil
	case "abort":
		return AbortRun, nil
	default:
		return SkipPort, fmt.Errorf("invalid open failure policy %q (want skip or abort)", s)
	}
}

// PortProber probes a single port. *Prober is the production implementation.
type PortProber interface {
	Probe(ctx context.Context, desc serial.DeviceDescriptor) Outcome
}

// PortProberFunc adapts a function to PortProber
type PortProberFunc func(ctx context.Context, desc serial.DeviceDescriptor) Outcome

func (f PortProberFunc) Probe(ctx context.Context, desc serial.DeviceDescriptor) Outcome {
	return f(ctx, desc)
}

// Reporter receives progress from a run. Calls are made from the goroutine
// running Run, in order.
type Reporter interface {
	PortsFound(ports []serial.DeviceDescriptor)
	ProbeStarted(index int, desc serial.DeviceDescriptor)
	ProbeFinished(index int, desc serial.DeviceDescriptor, outcome Outcome)
}

// Summary counts the outcomes of a run.
type Summary struct {
	Found      int
	Probed     int
	Successes  int
	IOErrors   int
	Timeouts   int
	OpenFailed int
	Aborted    bool
}

func (s *Summary) add(o Outcome) {
	s.Probed++
	switch o.Kind {
	case KindSuccess:
		s.Successes++
	case KindIOError:
		s.IOErrors++
	case KindTimeout:
		s.Timeouts++
	case KindOpenFailed:
		s.OpenFailed++
	}
}

// Runner enumerates ports and probes each one exactly once, in the order
// the enumerator returned them. A probe finishes, including releasing its
// port, before the next one starts.
type Runner struct {
	Enumerator    serial.Enumerator
	Prober        PortProber
	Reporter      Reporter
	OnOpenFailure OpenFailurePolicy
	Logger        *zap.Logger
}

// Run performs one pass over the host's ports.
//
// An enumeration failure is returned as is and nothing is probed. With
// AbortRun the first open failure ends the run with an error wrapping
// ErrRunAborted. I/O errors and timeouts never stop a run. Cancelling ctx
// stops the run before the next port and makes Run return ctx.Err(), even
// when the cancel arrives during the last probe.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "runner"))

	var summary Summary

	ports, err := r.Enumerator.ListPorts()
	if err != nil {
		logger.Warn("Port enumeration failed", zap.Error(err))
		return summary, err
	}
	summary.Found = len(ports)
	logger.Info("Found serial ports", zap.Int("count", len(ports)))

	if r.Reporter != nil {
		r.Reporter.PortsFound(ports)
	}

	for i, desc := range ports {
		if err := ctx.Err(); err != nil {
			logger.Info("Probe run cancelled", zap.Int("remaining", len(ports)-i))
			return summary, err
		}

		if r.Reporter != nil {
			r.Reporter.ProbeStarted(i, desc)
		}

		outcome := r.Prober.Probe(ctx, desc)
		summary.add(outcome)

		logger.Info("Probe finished",
			zap.String("port", desc.Name),
			zap.Stringer("outcome", outcome.Kind),
			zap.String("detail", outcome.Message()),
		)

		if r.Reporter != nil {
			r.Reporter.ProbeFinished(i, desc, outcome)
		}

		if outcome.Kind == KindOpenFailed && r.OnOpenFailure == AbortRun {
			summary.Aborted = true
			return summary, fmt.Errorf("%w: %s: %v", ErrRunAborted, desc.Name, outcome.Err)
		}
	}

	// A cancel that lands during the last probe still ends the run as
	// cancelled rather than finished.
	if err := ctx.Err(); err != nil {
		logger.Info("Probe run cancelled", zap.Int("remaining", 0))
		return summary, err
	}

	return summary, nil
}
