package serial

import (
	"fmt"
	"io"
)

// Port is an open, configured serial device.
//
// A Port is owned by whoever opened it. Read blocks until at least one byte
// arrives, an error occurs, or the port is closed; closing a port unblocks a
// pending Read with ErrPortClosed.
type Port interface {
	io.ReadWriteCloser

	// SupportsExclusivityControl reports whether SetExclusive has any effect
	// on this platform and backend.
	SupportsExclusivityControl() bool

	// SetExclusive takes or releases the OS-level lock that stops other
	// processes from opening the same device.
	SetExclusive(exclusive bool) error

	// AppliedConfig reports the configuration currently in effect.
	AppliedConfig() (Config, error)
}

// Opener opens a device path with a complete configuration. Either the
// whole configuration is applied or Open fails and nothing is left open.
type Opener interface {
	Open(path string, config Config) (Port, error)
}

// OpenerFunc adapts a plain function to the Opener interface.
type OpenerFunc func(path string, config Config) (Port, error)

func (f OpenerFunc) Open(path string, config Config) (Port, error) {
	return f(path, config)
}

// Open opens device with DefaultConfig modified by opts using the
// platform's default backend.
func Open(device string, opts ...Option) (Port, error) {
	config, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return DefaultOpener().Open(device, config)
}

// Backend names accepted by OpenerFor.
const (
	BackendAuto   = "auto"
	BackendNative = "native"
	BackendBugst  = "bugst"
)

// OpenerFor returns the opener registered under name.
func OpenerFor(name string) (Opener, error) {
	switch name {
	case "", BackendAuto:
		return DefaultOpener(), nil
	case BackendNative:
		return nativeOpener()
	case BackendBugst:
		return BugstOpener{}, nil
	default:
		return nil, fmt.Errorf("unknown serial backend %q", name)
	}
}
