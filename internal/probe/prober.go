// Package probe runs loopback checks against serial ports: open with a
// fixed configuration, write a payload, and wait a bounded time for a reply.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	serial "github.com/allbin/serial-loopback"
	"go.uber.org/zap"
)

// Defaults used by NewProber.
const (
	DefaultTimeout  = 500 * time.Millisecond
	DefaultReadSize = 8
)

// DefaultPayload is written to every port.
var DefaultPayload = []byte("01234567")

// Prober checks one port at a time. Its configuration is fixed when it is
// built; a Prober is safe to reuse for any number of sequential probes.
type Prober struct {
	opener      serial.Opener
	config      serial.Config
	payload     []byte
	readSize    int
	timeout     time.Duration
	strictWrite bool
	logger      *zap.Logger
}

// Option configures a Prober
type Option func(*Prober)

// WithConfig replaces the port configuration
func WithConfig(config serial.Config) Option {
	return func(p *Prober) {
		p.config = config
	}
}

// WithPayload sets the bytes written to each port
func WithPayload(payload []byte) Option {
	return func(p *Prober) {
		p.payload = append([]byte(nil), payload...)
	}
}

// WithReadSize sets the size of the read buffer
func WithReadSize(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.readSize = n
		}
	}
}

// WithTimeout sets how long to wait for a reply after the write
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithStrictWrite makes a failed or short write end the probe with
// KindIOError. By default write problems are logged and the read still runs.
func WithStrictWrite(strict bool) Option {
	return func(p *Prober) {
		p.strictWrite = strict
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProber creates a prober that opens ports through opener
func NewProber(opener serial.Opener, opts ...Option) *Prober {
	p := &Prober{
		opener:   opener,
		config:   serial.DefaultConfig(),
		payload:  append([]byte(nil), DefaultPayload...),
		readSize: DefaultReadSize,
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "prober"))
	return p
}

// Config returns the port configuration every probe applies
func (p *Prober) Config() serial.Config {
	return p.config
}

// Payload returns a copy of the bytes written to each port
func (p *Prober) Payload() []byte {
	return append([]byte(nil), p.payload...)
}

// ReadSize returns the size of the read buffer
func (p *Prober) ReadSize() int {
	return p.readSize
}

// StrictWrite reports whether write failures end a probe
func (p *Prober) StrictWrite() bool {
	return p.strictWrite
}

// Timeout returns the read deadline
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Probe opens desc, writes the payload, and waits for a reply.
//
// The port is closed before Probe returns on every path. A read that loses
// the race against the deadline is abandoned; whatever it returns later is
// discarded.
func (p *Prober) Probe(ctx context.Context, desc serial.DeviceDescriptor) Outcome {
	log := p.logger.With(zap.String("port", desc.Name))

	port, err := p.opener.Open(desc.Name, p.config)
	if err != nil {
		log.Warn("Failed to open serial port", zap.Error(err))
		return OpenFailed(err)
	}
	defer func() {
		if err := port.Close(); err != nil && !errors.Is(err, serial.ErrPortClosed) {
			log.Warn("Failed to close serial port", zap.Error(err))
		}
		log.Debug("Serial port released")
	}()

	log.Debug("Serial port opened", zap.Stringer("config", p.config))

	if port.SupportsExclusivityControl() {
		if err := port.SetExclusive(p.config.Exclusive); err != nil {
			log.Warn("Failed to set port exclusivity", zap.Bool("exclusive", p.config.Exclusive), zap.Error(err))
			return OpenFailed(fmt.Errorf("set exclusive=%v: %w", p.config.Exclusive, err))
		}
	}

	n, err := port.Write(p.payload)
	if err == nil && n < len(p.payload) {
		err = io.ErrShortWrite
	}
	if err != nil {
		if p.strictWrite {
			log.Warn("Serial write failed", zap.Int("bytes_written", n), zap.Error(err))
			return IOError(fmt.Errorf("write: %w", err))
		}
		log.Debug("Ignoring serial write failure", zap.Int("bytes_written", n), zap.Error(err))
	} else {
		log.Debug("Payload written", zap.Int("bytes_written", n))
	}

	buf := make([]byte, p.readSize)
	start := time.Now()
	n, err = firstOf(ctx, p.timeout, func() (int, error) {
		return port.Read(buf)
	})
	switch {
	case errors.Is(err, errDeadline):
		elapsed := time.Since(start)
		log.Debug("Read timed out", zap.Duration("elapsed", elapsed))
		return Timeout(elapsed)
	case err != nil:
		log.Debug("Read failed", zap.Error(err))
		return IOError(fmt.Errorf("read: %w", err))
	}

	data := make([]byte, n)
	copy(data, buf[:n])
	log.Debug("Data read from serial port", zap.Int("bytes_read", n), zap.Binary("data", data))
	return Success(data)
}
