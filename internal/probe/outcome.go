package probe

import (
	"fmt"
	"time"
)

// Kind tags which of the four probe results an Outcome holds.
type Kind int

const (
	KindSuccess Kind = iota
	KindIOError
	KindTimeout
	KindOpenFailed
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindIOError:
		return "io-error"
	case KindTimeout:
		return "timeout"
	case KindOpenFailed:
		return "open-failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the classified result of one probe.
//
// Only the fields of the active Kind are set: BytesRead and Data for
// KindSuccess, Err for KindIOError and KindOpenFailed, Elapsed for
// KindTimeout.
type Outcome struct {
	Kind      Kind
	BytesRead int
	Data      []byte
	Err       error
	Elapsed   time.Duration
}

// Success wraps the bytes returned by a read that beat the deadline. data
// may be empty.
func Success(data []byte) Outcome {
	return Outcome{Kind: KindSuccess, BytesRead: len(data), Data: data}
}

func IOError(err error) Outcome {
	return Outcome{Kind: KindIOError, Err: err}
}

func Timeout(elapsed time.Duration) Outcome {
	return Outcome{Kind: KindTimeout, Elapsed: elapsed}
}

func OpenFailed(err error) Outcome {
	return Outcome{Kind: KindOpenFailed, Err: err}
}

// Message returns a one-line diagnostic for the outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindSuccess:
		return fmt.Sprintf("received %d bytes", o.BytesRead)
	case KindTimeout:
		return fmt.Sprintf("timeout after %s", o.Elapsed.Round(time.Millisecond))
	case KindIOError:
		return fmt.Sprintf("i/o error: %v", o.Err)
	case KindOpenFailed:
		return fmt.Sprintf("open failed: %v", o.Err)
	default:
		return o.Kind.String()
	}
}

func (o Outcome) String() string {
	return o.Message()
}
