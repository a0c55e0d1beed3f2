package decorate

import (
	"context"
	"time"

	"github.com/vnykmshr/pace/pkg/metrics"
)

// Observer receives the wall time and outcome of a call.
type Observer func(name string, elapsed time.Duration, err error)

// WithTiming reports the wall time of every call to observe.
func WithTiming[T any](name string, observe Observer) Decorator[T] {
	return func(next Func[T]) Func[T] {
		return func(ctx context.Context) (T, error) {
			start := time.Now()
			v, err := next(ctx)
			observe(name, time.Since(start), err)
			return v, err
		}
	}
}

// WithMetrics records call counts by outcome and call durations in reg.
func WithMetrics[T any](reg *metrics.Registry, name string) Decorator[T] {
	return WithTiming[T](name, func(name string, elapsed time.Duration, err error) {
		reg.CallsTotal.WithLabelValues(name, metrics.Outcome(err)).Inc()
		reg.CallDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	})
}
