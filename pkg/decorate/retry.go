package decorate

import (
	"context"
	"time"

	"github.com/vnykmshr/pace/pkg/metrics"
)

// RetryPolicy controls Retry.
type RetryPolicy struct {
	// Attempts is the total number of calls, including the first.
	// Values below 1 mean a single call.
	Attempts int

	// Delay is the fixed pause between attempts.
	Delay time.Duration

	// Retryable reports whether a failure is worth another attempt.
	// Nil retries every failure.
	Retryable func(error) bool

	// OnRetry is called before each pause with the number of the attempt
	// that just failed.
	OnRetry func(attempt int, err error)
}

// Retry re-invokes a failing call up to p.Attempts times, pausing p.Delay
// between attempts. Once attempts are exhausted the last failure is returned
// unchanged. Cancelling ctx during a pause returns the context's error.
func Retry[T any](p RetryPolicy) Decorator[T] {
	attempts := max(p.Attempts, 1)

	return func(next Func[T]) Func[T] {
		return func(ctx context.Context) (T, error) {
			var (
				v   T
				err error
			)
			for attempt := 1; ; attempt++ {
				v, err = next(ctx)
				if err == nil || attempt >= attempts {
					return v, err
				}
				if p.Retryable != nil && !p.Retryable(err) {
					return v, err
				}
				if p.OnRetry != nil {
					p.OnRetry(attempt, err)
				}
				if err := pause(ctx, p.Delay); err != nil {
					var zero T
					return zero, err
				}
			}
		}
	}
}

// RetryWithMetrics is Retry that also counts every repeated attempt in
// reg under name.
func RetryWithMetrics[T any](p RetryPolicy, reg *metrics.Registry, name string) Decorator[T] {
	counter := reg.RetryAttempts.WithLabelValues(name)
	onRetry := p.OnRetry
	p.OnRetry = func(attempt int, err error) {
		counter.Inc()
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}
	return Retry[T](p)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
