//go:build linux

package serial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// openPTY returns the master side of a fresh pseudo-terminal and the path of
// its slave, which behaves like a serial device for termios purposes.
func openPTY(t *testing.T) (*os.File, string) {
	t.Helper()

	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("pseudo-terminals unavailable: %v", err)
	}
	t.Cleanup(func() { master.Close() })

	fd := int(master.Fd())
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		t.Skipf("cannot unlock pty: %v", err)
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		t.Skipf("cannot get pty number: %v", err)
	}
	return master, fmt.Sprintf("/dev/pts/%d", n)
}

func TestApplyDecodeTermios(t *testing.T) {
	tests := []Config{
		DefaultConfig(),
		{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: ParityNone},
		{BaudRate: 115200, DataBits: 7, StopBits: 1, Parity: ParityEven},
		{BaudRate: 4800, DataBits: 7, StopBits: 2, Parity: ParityOdd},
		{BaudRate: 57600, DataBits: 6, StopBits: 1, Parity: ParityMark},
		{BaudRate: 300, DataBits: 5, StopBits: 2, Parity: ParitySpace},
		{BaudRate: 921600, DataBits: 8, StopBits: 1, Parity: ParityNone, FlowControl: FlowControlRTSCTS},
	}

	for _, want := range tests {
		t.Run(want.String(), func(t *testing.T) {
			termios := &unix.Termios{Iflag: unix.ICRNL, Lflag: unix.ICANON | unix.ECHO, Oflag: unix.OPOST}
			if err := applyConfig(termios, want); err != nil {
				t.Fatalf("applyConfig() error = %v", err)
			}

			if termios.Lflag != 0 || termios.Iflag != 0 || termios.Oflag != 0 {
				t.Errorf("termios not raw: iflag=%#x oflag=%#x lflag=%#x", termios.Iflag, termios.Oflag, termios.Lflag)
			}
			if termios.Cflag&(unix.CREAD|unix.CLOCAL) != unix.CREAD|unix.CLOCAL {
				t.Errorf("CREAD|CLOCAL not set in cflag %#x", termios.Cflag)
			}
			if termios.Cc[unix.VMIN] != 0 || termios.Cc[unix.VTIME] != readSliceTenths {
				t.Errorf("VMIN=%d VTIME=%d", termios.Cc[unix.VMIN], termios.Cc[unix.VTIME])
			}

			if got := decodeTermios(termios); got != want {
				t.Errorf("decodeTermios() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestApplyConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"baud", Config{BaudRate: 12345, DataBits: 8, StopBits: 1}, ErrInvalidBaudRate},
		{"data bits", Config{BaudRate: 9600, DataBits: 9, StopBits: 1}, ErrInvalidConfig},
		{"stop bits", Config{BaudRate: 9600, DataBits: 8, StopBits: 3}, ErrInvalidConfig},
		{"parity", Config{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: Parity(9)}, ErrInvalidConfig},
		{"flow control", Config{BaudRate: 9600, DataBits: 8, StopBits: 1, FlowControl: FlowControl(9)}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := applyConfig(&unix.Termios{}, tt.config); !errors.Is(err, tt.wantErr) {
				t.Errorf("applyConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBaudRate(t *testing.T) {
	for _, rate := range standardBaudRates {
		b, err := getBaudRate(rate)
		if err != nil {
			t.Errorf("getBaudRate(%d) error = %v", rate, err)
			continue
		}
		if got := baudFromCflag(b); got != rate {
			t.Errorf("baudFromCflag(getBaudRate(%d)) = %d", rate, got)
		}
	}

	for _, rate := range []int{0, -1, 12345, 250000} {
		if _, err := getBaudRate(rate); !errors.Is(err, ErrInvalidBaudRate) {
			t.Errorf("getBaudRate(%d) error = %v, want ErrInvalidBaudRate", rate, err)
		}
	}

	if got := baudFromCflag(0); got != 0 {
		t.Errorf("baudFromCflag(B0) = %d, want 0", got)
	}
}

func TestClassifyErrno(t *testing.T) {
	fallback := errors.New("fallback")
	tests := []struct {
		errno error
		want  error
	}{
		{unix.ENOENT, ErrDeviceNotFound},
		{unix.ENXIO, ErrDeviceNotFound},
		{unix.ENODEV, ErrDeviceNotFound},
		{unix.EACCES, ErrPermissionDenied},
		{unix.EPERM, ErrPermissionDenied},
		{unix.EBUSY, ErrDeviceInUse},
		{unix.EIO, fallback},
		{fmt.Errorf("wrapped: %w", unix.EBUSY), ErrDeviceInUse},
	}

	for _, tt := range tests {
		t.Run(tt.errno.Error(), func(t *testing.T) {
			if got := classifyErrno(tt.errno, fallback); got != tt.want {
				t.Errorf("classifyErrno(%v) = %v, want %v", tt.errno, got, tt.want)
			}
		})
	}
}

func TestNativeOpenErrors(t *testing.T) {
	regular := filepath.Join(t.TempDir(), "ttyFAKE0")
	if err := os.WriteFile(regular, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		config  Config
		wantErr error
		wantOp  string
	}{
		{"missing device", "/dev/ttyDOESNOTEXIST99", DefaultConfig(), ErrDeviceNotFound, "open"},
		{"invalid baud", "/dev/ttyDOESNOTEXIST99", Config{BaudRate: 1, DataBits: 8, StopBits: 1}, ErrInvalidBaudRate, "configure"},
		{"not a tty", regular, DefaultConfig(), ErrInvalidConfig, "lock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, err := NativeOpener{}.Open(tt.path, tt.config)
			if err == nil {
				port.Close()
				t.Fatal("Open() succeeded, want error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}

			var portErr *PortError
			if !errors.As(err, &portErr) {
				t.Fatalf("Open() error is %T, want *PortError", err)
			}
			if portErr.Op != tt.wantOp || portErr.Path != tt.path {
				t.Errorf("PortError op=%q path=%q, want op=%q path=%q", portErr.Op, portErr.Path, tt.wantOp, tt.path)
			}
		})
	}
}

func TestNativePortOverPTY(t *testing.T) {
	master, slave := openPTY(t)

	port, err := NativeOpener{}.Open(slave, DefaultConfig())
	if err != nil {
		t.Fatalf("Open(%s) error = %v", slave, err)
	}
	defer port.Close()

	applied, err := port.AppliedConfig()
	if err != nil {
		t.Fatalf("AppliedConfig() error = %v", err)
	}
	want := DefaultConfig()
	want.Exclusive = true
	if applied != want {
		t.Errorf("AppliedConfig() = %+v, want %+v", applied, want)
	}

	if !port.SupportsExclusivityControl() {
		t.Error("native port does not report exclusivity control")
	}
	if err := port.SetExclusive(false); err != nil {
		t.Fatalf("SetExclusive(false) error = %v", err)
	}
	if applied, _ := port.AppliedConfig(); applied.Exclusive {
		t.Error("Exclusive still true after SetExclusive(false)")
	}

	payload := []byte("01234567")
	if n, err := port.Write(payload); err != nil || n != len(payload) {
		t.Fatalf("Write() = %d, %v", n, err)
	}

	got := make([]byte, len(payload))
	if _, err := io.ReadFull(master, got); err != nil {
		t.Fatalf("reading from pty master: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("master received %q, want %q", got, payload)
	}

	if _, err := master.Write(payload); err != nil {
		t.Fatalf("writing to pty master: %v", err)
	}
	buf := make([]byte, 8)
	n, err := port.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(buf[:n], payload[:n]) || n == 0 {
		t.Errorf("Read() = %q, want prefix of %q", buf[:n], payload)
	}
}

func TestNativePortCloseUnblocksRead(t *testing.T) {
	_, slave := openPTY(t)

	port, err := NativeOpener{}.Open(slave, DefaultConfig())
	if err != nil {
		t.Fatalf("Open(%s) error = %v", slave, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := port.Read(make([]byte, 8))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := port.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrPortClosed) {
			t.Errorf("Read() after Close error = %v, want ErrPortClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read() still blocked after Close")
	}

	if err := port.Close(); !errors.Is(err, ErrPortClosed) {
		t.Errorf("second Close() error = %v, want ErrPortClosed", err)
	}
	if _, err := port.Write([]byte("x")); !errors.Is(err, ErrPortClosed) {
		t.Errorf("Write() after Close error = %v, want ErrPortClosed", err)
	}
	if _, err := port.AppliedConfig(); !errors.Is(err, ErrPortClosed) {
		t.Errorf("AppliedConfig() after Close error = %v, want ErrPortClosed", err)
	}
}

func TestOpenWithOptions(t *testing.T) {
	_, slave := openPTY(t)

	port, err := Open(slave, WithBaudRate(9600), WithStopBits(1))
	if err != nil {
		t.Fatalf("Open(%s) error = %v", slave, err)
	}
	defer port.Close()

	applied, err := port.AppliedConfig()
	if err != nil {
		t.Fatalf("AppliedConfig() error = %v", err)
	}
	want := Config{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: ParityNone, Exclusive: true}
	if applied != want {
		t.Errorf("AppliedConfig() = %+v, want %+v", applied, want)
	}

	if _, err := Open(slave, WithBaudRate(12345)); !errors.Is(err, ErrInvalidBaudRate) {
		t.Errorf("Open() with bad baud error = %v, want ErrInvalidBaudRate", err)
	}
}

func TestBugstPortExclusivityOverPTY(t *testing.T) {
	_, slave := openPTY(t)

	port, err := BugstOpener{}.Open(slave, DefaultConfig())
	if err != nil {
		t.Skipf("go.bug.st/serial cannot open %s: %v", slave, err)
	}
	defer port.Close()

	if !port.SupportsExclusivityControl() {
		t.Fatal("bugst port on linux does not report exclusivity control")
	}
	if err := port.SetExclusive(false); !errors.Is(err, ErrExclusiveLockHeld) {
		t.Errorf("SetExclusive(false) error = %v, want ErrExclusiveLockHeld", err)
	}
	if err := port.SetExclusive(true); err != nil {
		t.Errorf("SetExclusive(true) error = %v", err)
	}

	applied, err := port.AppliedConfig()
	if err != nil {
		t.Fatalf("AppliedConfig() error = %v", err)
	}
	if !applied.Exclusive {
		t.Error("AppliedConfig().Exclusive = false for a locked bugst port")
	}

	port.Close()
	if err := port.SetExclusive(true); !errors.Is(err, ErrPortClosed) {
		t.Errorf("SetExclusive() after Close error = %v, want ErrPortClosed", err)
	}
}
