package decorate

import (
	"context"
	"errors"
	"fmt"
	"time"

	perrors "github.com/vnykmshr/pace/pkg/common/errors"
)

// Func is a call that can be decorated.
type Func[T any] func(ctx context.Context) (T, error)

// Decorator returns a Func that augments next.
type Decorator[T any] func(next Func[T]) Func[T]

// Chain applies decorators to fn. The first decorator is the outermost, so
// it runs first on the way in and last on the way out.
func Chain[T any](fn Func[T], decorators ...Decorator[T]) Func[T] {
	for i := len(decorators) - 1; i >= 0; i-- {
		fn = decorators[i](fn)
	}
	return fn
}

// Action adapts a function that only reports an error.
func Action(fn func(ctx context.Context) error) Func[struct{}] {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}
}

// Acquirer hands out one permit per call, blocking until it is available.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// WithRateLimit takes a permit from a before every call. A failed call
// does not give its permit back.
func WithRateLimit[T any](a Acquirer) Decorator[T] {
	return func(next Func[T]) Func[T] {
		return func(ctx context.Context) (T, error) {
			if err := a.Acquire(ctx); err != nil {
				var zero T
				return zero, err
			}
			return next(ctx)
		}
	}
}

// WithTimeout bounds every call to d. The wrapped function must honor its
// context for the bound to take effect. A call cut short by this bound fails
// with an error matching both ErrTimeout and context.DeadlineExceeded.
func WithTimeout[T any](d time.Duration) Decorator[T] {
	return func(next Func[T]) Func[T] {
		return func(parent context.Context) (T, error) {
			ctx, cancel := context.WithTimeout(parent, d)
			defer cancel()

			v, err := next(ctx)
			if err != nil && errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
				err = fmt.Errorf("%w after %v: %w", perrors.ErrTimeout, d, err)
			}
			return v, err
		}
	}
}

// Semaphore bounds concurrent calls.
type Semaphore interface {
	Acquire(ctx context.Context) error
	Release()
}

// WithConcurrencyLimit holds a permit from s for the duration of each call.
func WithConcurrencyLimit[T any](s Semaphore) Decorator[T] {
	return func(next Func[T]) Func[T] {
		return func(ctx context.Context) (T, error) {
			if err := s.Acquire(ctx); err != nil {
				var zero T
				return zero, err
			}
			defer s.Release()
			return next(ctx)
		}
	}
}
