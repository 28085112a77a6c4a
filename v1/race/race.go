package race

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type result[T any] struct {
	value T
	err   error
}

// Run executes op in its own goroutine and races it against a timer of the
// given duration. The first to finish decides the outcome and the loser is
// cancelled through op's context. A timeout <= 0 disables the timer.
//
// Run returns ErrTimeout when the timer wins and ErrCancelled (wrapping the
// context cause) when ctx is cancelled first. Otherwise it returns whatever
// op returned. The result of an abandoned op is dropped.
func Run[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so an abandoned op can always deliver and exit
	done := make(chan result[T], 1)
	go func() {
		v, err := op(opCtx)
		done <- result[T]{value: v, err: err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case r := <-done:
		return r.value, r.err
	case <-expired:
		return zero, ErrTimeout
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
	}
}

// Do is Run for operations without a result value.
func Do(ctx context.Context, timeout time.Duration, op func(ctx context.Context) error) error {
	_, err := Run(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// RunOwned is Run for operations that produce a resource the caller must
// release, such as a connection handle. If op succeeds after the race was
// decided against it, release is called with the value so nothing leaks.
func RunOwned[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error), release func(T)) (T, error) {
	var (
		mu        sync.Mutex
		settled   bool
		delivered *T
	)

	v, err := Run(ctx, timeout, func(ctx context.Context) (T, error) {
		v, err := op(ctx)
		if err != nil {
			return v, err
		}
		mu.Lock()
		defer mu.Unlock()
		if settled {
			release(v)
			var zero T
			return zero, ErrCancelled
		}
		delivered = &v
		return v, nil
	})

	mu.Lock()
	settled = true
	orphan := delivered
	mu.Unlock()

	if err != nil && orphan != nil {
		release(*orphan)
	}
	return v, err
}
