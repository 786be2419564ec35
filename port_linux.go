//go:build linux

package serial

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// NativeOpener opens ports through raw termios ioctls.
//
// The device is opened non-blocking and locked with TIOCEXCL before the
// framing is applied with a single TCSETS, so no other process can open it
// while it still carries the previous configuration. The returned port keeps
// the lock until SetExclusive(false) is called.
type NativeOpener struct{}

// DefaultOpener returns the native termios backend.
func DefaultOpener() Opener {
	return NativeOpener{}
}

func nativeOpener() (Opener, error) {
	return NativeOpener{}, nil
}

// nativePort is the termios implementation of Port
type nativePort struct {
	mu        sync.RWMutex
	fd        int
	path      string
	closed    atomic.Bool
	exclusive atomic.Bool
}

// Ensure nativePort implements Port interface at compile time
var _ Port = (*nativePort)(nil)

// readSliceTenths is the VTIME used for reads. A blocked Read wakes up this
// often to notice that the port has been closed.
const readSliceTenths = 1

// Open opens and configures device
func (NativeOpener) Open(device string, config Config) (Port, error) {
	if err := config.Validate(); err != nil {
		return nil, &PortError{Op: "configure", Path: device, Kind: err}
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &PortError{Op: "open", Path: device, Kind: classifyErrno(err, ErrDeviceNotFound), Err: err}
	}

	fail := func(op string, err error) (Port, error) {
		unix.Close(fd)
		return nil, &PortError{Op: op, Path: device, Kind: classifyErrno(err, ErrInvalidConfig), Err: err}
	}

	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		return fail("lock", err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fail("get termios", err)
	}
	if err := applyConfig(termios, config); err != nil {
		unix.Close(fd)
		return nil, &PortError{Op: "configure", Path: device, Kind: err}
	}
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fail("set termios", err)
	}

	// Reads block from here on; VTIME bounds each wait.
	if err := unix.SetNonblock(fd, false); err != nil {
		return fail("set blocking", err)
	}

	p := &nativePort{fd: fd, path: device}
	p.exclusive.Store(true)
	return p, nil
}

// applyConfig rewrites termios for raw I/O with the given framing
func applyConfig(termios *unix.Termios, config Config) error {
	baudRate, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0 // No input processing
	termios.Oflag = 0 // No output processing
	termios.Lflag = 0 // No line processing (raw mode)

	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = readSliceTenths

	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	// Data bits
	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	case 8:
		termios.Cflag |= unix.CS8
	default:
		return ErrInvalidConfig
	}

	// Stop bits
	switch config.StopBits {
	case 1:
	case 2:
		termios.Cflag |= unix.CSTOPB
	default:
		return ErrInvalidConfig
	}

	// Parity
	switch config.Parity {
	case ParityNone:
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.CMSPAR | unix.PARODD
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	default:
		return ErrInvalidConfig
	}

	// Flow control
	switch config.FlowControl {
	case FlowControlNone:
	case FlowControlRTSCTS:
		termios.Cflag |= unix.CRTSCTS
	default:
		return ErrInvalidConfig
	}

	return nil
}

// decodeTermios is the inverse of applyConfig. Exclusive is not stored in
// termios and is always false in the result.
func decodeTermios(termios *unix.Termios) Config {
	var config Config

	config.BaudRate = baudFromCflag(termios.Cflag & unix.CBAUD)

	switch termios.Cflag & unix.CSIZE {
	case unix.CS5:
		config.DataBits = 5
	case unix.CS6:
		config.DataBits = 6
	case unix.CS7:
		config.DataBits = 7
	default:
		config.DataBits = 8
	}

	config.StopBits = 1
	if termios.Cflag&unix.CSTOPB != 0 {
		config.StopBits = 2
	}

	odd := termios.Cflag&unix.PARODD != 0
	switch {
	case termios.Cflag&unix.PARENB == 0:
		config.Parity = ParityNone
	case termios.Cflag&unix.CMSPAR != 0 && odd:
		config.Parity = ParityMark
	case termios.Cflag&unix.CMSPAR != 0:
		config.Parity = ParitySpace
	case odd:
		config.Parity = ParityOdd
	default:
		config.Parity = ParityEven
	}

	if termios.Cflag&unix.CRTSCTS != 0 {
		config.FlowControl = FlowControlRTSCTS
	}

	return config
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	case 2500000:
		return unix.B2500000, nil
	case 3000000:
		return unix.B3000000, nil
	case 3500000:
		return unix.B3500000, nil
	case 4000000:
		return unix.B4000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// baudFromCflag maps a CBAUD value back to its rate, or 0 if unknown
func baudFromCflag(speed uint32) int {
	for _, rate := range standardBaudRates {
		if b, err := getBaudRate(rate); err == nil && b == speed {
			return rate
		}
	}
	return 0
}

// classifyErrno maps an errno to one of the package sentinels
func classifyErrno(err error, fallback error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return ErrDeviceNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	case errors.Is(err, unix.EBUSY):
		return ErrDeviceInUse
	default:
		return fallback
	}
}

// Close closes the serial port. It waits for a Read that is inside a
// VTIME slice so the descriptor is never reused under a pending read.
func (p *nativePort) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPortClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return unix.Close(p.fd)
}

// Read blocks until data arrives, the port fails, or it is closed
func (p *nativePort) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	for {
		n, err := p.readSlice(buf)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return n, nil
		}
	}
}

// readSlice performs one read bounded by VTIME
func (p *nativePort) readSlice(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return 0, ErrPortClosed
	}

	n, err := unix.Read(p.fd, buf)
	if errors.Is(err, unix.EINTR) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", p.path, err)
	}
	return n, nil
}

// Write writes data to the serial port
func (p *nativePort) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return 0, ErrPortClosed
	}

	n, err := unix.Write(p.fd, data)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", p.path, err)
	}
	return n, nil
}

func (p *nativePort) SupportsExclusivityControl() bool {
	return true
}

// SetExclusive toggles TIOCEXCL on the open descriptor
func (p *nativePort) SetExclusive(exclusive bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrPortClosed
	}

	var req uint = unix.TIOCNXCL
	if exclusive {
		req = unix.TIOCEXCL
	}
	if err := unix.IoctlSetInt(p.fd, req, 0); err != nil {
		return fmt.Errorf("set exclusive=%v on %s: %w", exclusive, p.path, err)
	}
	p.exclusive.Store(exclusive)
	return nil
}

// AppliedConfig reads the live termios back from the device
func (p *nativePort) AppliedConfig() (Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return Config{}, ErrPortClosed
	}

	termios, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return Config{}, fmt.Errorf("get termios %s: %w", p.path, err)
	}
	config := decodeTermios(termios)
	config.Exclusive = p.exclusive.Load()
	return config, nil
}
