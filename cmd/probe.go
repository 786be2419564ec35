/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	serial "github.com/allbin/serial-loopback"
	"github.com/allbin/serial-loopback/internal/config"
	"github.com/allbin/serial-loopback/internal/logging"
	"github.com/allbin/serial-loopback/internal/probe"
	"github.com/allbin/serial-loopback/internal/report"
	"github.com/allbin/serial-loopback/internal/tui/models"
)

// Exit statuses of a probe run
const (
	exitAborted   = 255
	exitCancelled = 130
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Loopback test every serial port",
	Long: `Enumerate the serial ports on this host and loopback test each one in turn.

Ports are probed one at a time, in the order the host reports them. A port that
cannot be opened is skipped by default; with --on-open-failure=abort the run
stops there and the process exits with status 255. Timeouts and I/O errors are
reported and never stop the run.

Example usage:
  serial-loopback probe
  serial-loopback probe --timeout 1s --strict-write
  serial-loopback probe --source dev --backend native
  serial-loopback probe --tui`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	addProbeFlags(probeCmd)
}

func addProbeFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", probe.DefaultTimeout, "How long to wait for a reply after writing")
	cmd.Flags().Bool("strict-write", false, "Treat a failed or short write as an I/O error")
	cmd.Flags().String("on-open-failure", "skip", "What to do when a port cannot be opened: skip, abort")
	cmd.Flags().String("backend", serial.BackendAuto, "Serial backend: auto, native, bugst")
	cmd.Flags().String("source", config.SourceSystem, "Port discovery: system (host registry), dev (scan device directory)")
	cmd.Flags().String("dev-dir", "/dev", "Directory scanned when --source=dev")
	cmd.Flags().Bool("tui", false, "Show results in an interactive table")
}

func runProbe(cmd *cobra.Command, args []string) error {
	useTUI, _ := cmd.Flags().GetBool("tui")

	opener, err := serial.OpenerFor(appConfig.Backend)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	run, err := newProbeRun(appConfig, enumeratorFor(appConfig.Ports), opener, logger)
	if err != nil {
		return err
	}

	var summary probe.Summary
	if useTUI {
		summary, err = run.tui(ctx, cancel)
	} else {
		summary, err = run.text(ctx, cmd.OutOrStdout())
	}
	return run.exitStatus(summary, err, cmd.OutOrStdout())
}

// enumeratorFor returns the port source selected by cfg
func enumeratorFor(cfg config.PortsConfig) serial.Enumerator {
	if cfg.Source == config.SourceDev {
		return serial.DevEnumerator{Dir: cfg.DevDir}
	}
	return serial.SystemEnumerator{}
}

// newProber builds the prober every command describes or runs, so the
// framing and timing shown by info are the ones probe applies.
func newProber(cfg config.ProbeConfig, opener serial.Opener, logger *zap.Logger) *probe.Prober {
	return probe.NewProber(opener,
		probe.WithTimeout(cfg.Timeout),
		probe.WithPayload([]byte(cfg.Payload)),
		probe.WithReadSize(cfg.ReadSize),
		probe.WithStrictWrite(cfg.StrictWrite),
		probe.WithLogger(logger),
	)
}

// probeRun is one invocation of the loopback test
type probeRun struct {
	runner *probe.Runner
	prober *probe.Prober
	logger *zap.Logger
}

func newProbeRun(cfg *config.Config, enumerator serial.Enumerator, opener serial.Opener, logger *zap.Logger) (*probeRun, error) {
	policy, err := probe.ParseOpenFailurePolicy(cfg.Probe.OnOpenFailure)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := logging.WithRunID(logger, runID)

	prober := newProber(cfg.Probe, opener, log)

	log.Info("Starting loopback run",
		zap.Stringer("config", prober.Config()),
		zap.Duration("timeout", prober.Timeout()),
		zap.Stringer("on_open_failure", policy),
		zap.String("backend", cfg.Backend),
		zap.String("source", cfg.Ports.Source),
	)

	return &probeRun{
		runner: &probe.Runner{
			Enumerator:    enumerator,
			Prober:        prober,
			OnOpenFailure: policy,
			Logger:        log,
		},
		prober: prober,
		logger: log,
	}, nil
}

func (r *probeRun) text(ctx context.Context, out io.Writer) (probe.Summary, error) {
	rep := report.NewText(out)
	rep.Header(r.prober.Config(), r.prober.Timeout())
	r.runner.Reporter = rep

	summary, err := r.runner.Run(ctx)
	var enumErr *serial.EnumerationError
	if !errors.As(err, &enumErr) {
		rep.Summary(summary)
	}
	return summary, err
}

func (r *probeRun) tui(ctx context.Context, cancel context.CancelFunc) (probe.Summary, error) {
	m := models.NewProbeModel(r.prober.Config(), cancel)
	p := tea.NewProgram(m, tea.WithAltScreen())
	r.runner.Reporter = models.NewReporter(p.Send)

	type result struct {
		summary probe.Summary
		err     error
	}
	done := make(chan result, 1)

	go func() {
		summary, err := r.runner.Run(ctx)
		p.Send(models.RunFinishedMsg{Summary: summary, Err: err})
		done <- result{summary: summary, err: err}
	}()

	_, err := p.Run()
	// Quitting the view stops the run before its next port
	cancel()
	res := <-done
	if err != nil {
		return res.summary, fmt.Errorf("error running interface: %w", err)
	}
	return res.summary, res.err
}

// exitStatus maps the result of a run to the error returned from the
// command. A host that cannot enumerate its ports is not a failure.
func (r *probeRun) exitStatus(summary probe.Summary, err error, out io.Writer) error {
	var enumErr *serial.EnumerationError
	switch {
	case err == nil:
		r.logger.Info("Loopback run finished",
			zap.Int("found", summary.Found),
			zap.Int("successes", summary.Successes),
			zap.Int("timeouts", summary.Timeouts),
			zap.Int("io_errors", summary.IOErrors),
			zap.Int("open_failed", summary.OpenFailed),
		)
		return nil
	case errors.As(err, &enumErr):
		report.NewText(out).EnumerationFailed(err)
		return nil
	case errors.Is(err, probe.ErrRunAborted):
		r.logger.Warn("Loopback run aborted", zap.Error(err))
		return &exitError{code: exitAborted}
	case errors.Is(err, context.Canceled):
		r.logger.Info("Loopback run cancelled")
		return &exitError{code: exitCancelled}
	default:
		return err
	}
}
