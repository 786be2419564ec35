package serial

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")

	// Exclusivity errors
	ErrExclusivityUnsupported = errors.New("exclusive access control not supported on this port")
	ErrExclusiveLockHeld      = errors.New("exclusive lock cannot be released on this port")
)

// PortError reports a failure while opening or configuring a device.
// Kind is one of the sentinel errors above, so callers can use errors.Is
// without caring which backend produced the failure.
type PortError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *PortError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PortError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// EnumerationError is returned when the host cannot list its serial ports.
// An empty port list is not an error.
type EnumerationError struct {
	Err error
}

func (e *EnumerationError) Error() string {
	reason := "error while enumerating serial ports"
	if e.Err != nil {
		reason += ": " + e.Err.Error()
	}
	return reason
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}
