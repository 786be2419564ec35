//go:build !linux

package serial

import "errors"

// DefaultOpener returns the go.bug.st/serial backend, the only one
// available outside Linux.
func DefaultOpener() Opener {
	return BugstOpener{}
}

func nativeOpener() (Opener, error) {
	return nil, errors.New("native serial backend is only available on linux")
}
