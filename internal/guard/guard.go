// Package guard bounds a single asynchronous operation with a deadline.
package guard

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the deadline fires before the operation settles.
var ErrTimeout = errors.New("operation timed out")

// Operation is one cancellable unit of work. It must release any resource it
// opened (response bodies, connections) before returning.
type Operation[T any] func(ctx context.Context) (T, error)

type outcome[T any] struct {
	value T
	err   error
}

// Run starts op with its own cancellation signal and races it against a timer.
//
// If the timer fires first the op context is cancelled and ErrTimeout is
// returned immediately; the op's late result is discarded, not awaited. If op
// settles first its value and error are forwarded unchanged. A cancelled
// parent context returns the parent's error. There are no retries. A
// non-positive timeout disables the timer.
func Run[T any](ctx context.Context, timeout time.Duration, op Operation[T]) (T, error) {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the goroutine never blocks after Run has returned.
	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(opCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var zero T
	select {
	case res := <-done:
		return res.value, res.err
	case <-expired:
		cancel()
		return zero, ErrTimeout
	case <-ctx.Done():
		cancel()
		return zero, ctx.Err()
	}
}
