package serial

import (
	"errors"
	"fmt"
	"sync/atomic"

	bugst "go.bug.st/serial"
)

// BugstOpener opens ports with go.bug.st/serial. It works on every platform
// that library supports but cannot do hardware flow control. On Unix the
// library locks every device with TIOCEXCL and offers no way to release it,
// so its ports report exclusivity control and refuse SetExclusive(false).
type BugstOpener struct{}

type bugstPort struct {
	port   bugst.Port
	path   string
	config Config
	closed atomic.Bool
}

var _ Port = (*bugstPort)(nil)

// Open opens and configures device. The library applies the mode before
// returning and closes the device itself if that fails.
func (BugstOpener) Open(device string, config Config) (Port, error) {
	mode, err := modeFor(config)
	if err != nil {
		return nil, &PortError{Op: "configure", Path: device, Kind: err}
	}

	p, err := bugst.Open(device, mode)
	if err != nil {
		return nil, &PortError{Op: "open", Path: device, Kind: bugstErrorKind(err), Err: err}
	}

	// Block in Read until data arrives; the caller bounds the wait.
	if err := p.SetReadTimeout(bugst.NoTimeout); err != nil {
		p.Close()
		return nil, &PortError{Op: "configure", Path: device, Kind: ErrInvalidConfig, Err: err}
	}

	return &bugstPort{port: p, path: device, config: config}, nil
}

// modeFor translates a Config into the library's Mode
func modeFor(config Config) (*bugst.Mode, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.FlowControl != FlowControlNone {
		return nil, ErrInvalidConfig
	}

	mode := &bugst.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
	}

	switch config.StopBits {
	case 2:
		mode.StopBits = bugst.TwoStopBits
	default:
		mode.StopBits = bugst.OneStopBit
	}

	switch config.Parity {
	case ParityOdd:
		mode.Parity = bugst.OddParity
	case ParityEven:
		mode.Parity = bugst.EvenParity
	case ParityMark:
		mode.Parity = bugst.MarkParity
	case ParitySpace:
		mode.Parity = bugst.SpaceParity
	default:
		mode.Parity = bugst.NoParity
	}

	return mode, nil
}

// bugstErrorKind maps library error codes to the package sentinels
func bugstErrorKind(err error) error {
	var portErr *bugst.PortError
	if !errors.As(err, &portErr) {
		return nil
	}
	switch portErr.Code() {
	case bugst.PortNotFound:
		return ErrDeviceNotFound
	case bugst.PortBusy:
		return ErrDeviceInUse
	case bugst.PermissionDenied:
		return ErrPermissionDenied
	case bugst.InvalidSpeed:
		return ErrInvalidBaudRate
	case bugst.InvalidDataBits, bugst.InvalidParity, bugst.InvalidStopBits, bugst.InvalidSerialPort:
		return ErrInvalidConfig
	case bugst.PortClosed:
		return ErrPortClosed
	default:
		return nil
	}
}

func (p *bugstPort) Read(buf []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrPortClosed
	}
	n, err := p.port.Read(buf)
	if err != nil && bugstErrorKind(err) == ErrPortClosed {
		return 0, ErrPortClosed
	}
	return n, err
}

func (p *bugstPort) Write(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrPortClosed
	}
	return p.port.Write(data)
}

// Close closes the port and unblocks any pending Read
func (p *bugstPort) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPortClosed
	}
	return p.port.Close()
}

// SupportsExclusivityControl is true where the library takes an exclusive
// lock on open, which is every Unix platform.
func (p *bugstPort) SupportsExclusivityControl() bool {
	return bugstLocksDevice
}

// SetExclusive accepts only the state the library left the device in.
// Releasing the lock fails with ErrExclusiveLockHeld.
func (p *bugstPort) SetExclusive(exclusive bool) error {
	if p.closed.Load() {
		return ErrPortClosed
	}
	if !bugstLocksDevice {
		return ErrExclusivityUnsupported
	}
	if !exclusive {
		return fmt.Errorf("release exclusive lock on %s: %w", p.path, ErrExclusiveLockHeld)
	}
	return nil
}

// AppliedConfig returns the mode set at open. The library locks the device
// on Unix and Windows ports are exclusive by nature, so Exclusive is true.
func (p *bugstPort) AppliedConfig() (Config, error) {
	if p.closed.Load() {
		return Config{}, ErrPortClosed
	}
	config := p.config
	config.Exclusive = true
	return config, nil
}
