package probe

import (
	"context"
	"errors"
	"time"
)

// errDeadline is returned by firstOf when the timer wins.
var errDeadline = errors.New("deadline elapsed")

type result[T any] struct {
	val T
	err error
}

// firstOf runs op in its own goroutine and returns the earlier of its
// result, the deadline d, or ctx being done.
//
// When op loses, its result is sent to a buffered channel that nobody reads
// and is dropped. op must therefore own everything it writes to, and the
// caller must arrange for op to return eventually (for a port read, by
// closing the port).
func firstOf[T any](ctx context.Context, d time.Duration, op func() (T, error)) (T, error) {
	ch := make(chan result[T], 1)
	go func() {
		v, err := op()
		ch <- result[T]{val: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case r := <-ch:
		return r.val, r.err
	case <-timer.C:
		return zero, errDeadline
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
