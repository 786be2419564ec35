//go:build linux

package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	serial "github.com/allbin/serial-loopback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// ptyDevice opens a pseudo-terminal pair and returns the master together
// with a descriptor for the slave side.
func ptyDevice(t *testing.T) (*os.File, serial.DeviceDescriptor) {
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
	return master, device(fmt.Sprintf("/dev/pts/%d", n))
}

func TestProbeNativeLoopback(t *testing.T) {
	master, desc := ptyDevice(t)

	go func() {
		buf := make([]byte, len(DefaultPayload))
		if _, err := io.ReadFull(master, buf); err != nil {
			return
		}
		master.Write(buf)
	}()

	prober := NewProber(serial.NativeOpener{})
	outcome := prober.Probe(context.Background(), desc)

	require.Equal(t, KindSuccess, outcome.Kind, outcome.Message())
	assert.NotZero(t, outcome.BytesRead)
	assert.Equal(t, DefaultPayload[:outcome.BytesRead], outcome.Data)
}

func TestProbeNativeSilentPort(t *testing.T) {
	_, desc := ptyDevice(t)

	prober := NewProber(serial.NativeOpener{}, WithTimeout(150*time.Millisecond))

	start := time.Now()
	outcome := prober.Probe(context.Background(), desc)

	assert.Equal(t, KindTimeout, outcome.Kind, outcome.Message())
	assert.GreaterOrEqual(t, outcome.Elapsed, 150*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)

	// The port was released, so it can be opened again straight away.
	port, err := serial.NativeOpener{}.Open(desc.Name, serial.DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, port.Close())
}

// exclusiveFlag reports whether the tty at path currently has TIOCEXCL set
func exclusiveFlag(t *testing.T, path string) int {
	t.Helper()

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	require.NoError(t, err, "second open of %s", path)
	defer unix.Close(fd)

	excl, err := unix.IoctlGetInt(fd, unix.TIOCGEXCL)
	require.NoError(t, err)
	return excl
}

func TestProbeNativeReleasesExclusiveLock(t *testing.T) {
	_, desc := ptyDevice(t)

	prober := NewProber(serial.NativeOpener{}, WithTimeout(400*time.Millisecond))
	require.False(t, prober.Config().Exclusive)

	done := make(chan Outcome, 1)
	go func() {
		done <- prober.Probe(context.Background(), desc)
	}()

	// The read is pending by now.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, exclusiveFlag(t, desc.Name))

	outcome := <-done
	assert.Equal(t, KindTimeout, outcome.Kind, outcome.Message())
}

func TestProbeBugstCannotReleaseExclusiveLock(t *testing.T) {
	_, desc := ptyDevice(t)

	port, err := serial.BugstOpener{}.Open(desc.Name, serial.DefaultConfig())
	if err != nil {
		t.Skipf("go.bug.st/serial cannot open %s: %v", desc.Name, err)
	}
	require.NoError(t, port.Close())

	outcome := NewProber(serial.BugstOpener{}).Probe(context.Background(), desc)

	assert.Equal(t, KindOpenFailed, outcome.Kind, outcome.Message())
	assert.ErrorIs(t, outcome.Err, serial.ErrExclusiveLockHeld)

	// Released despite the failure.
	port, err = serial.NativeOpener{}.Open(desc.Name, serial.DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, port.Close())
}
