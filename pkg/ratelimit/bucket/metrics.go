package bucket

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/pace/pkg/metrics"
)

const limiterType = "token_bucket"

// kindOf returns the limiter_type label for l. Limiters that are not token
// buckets name themselves with a Kind method.
func kindOf(l Limiter) string {
	if k, ok := l.(interface{ Kind() string }); ok {
		return k.Kind()
	}
	return limiterType
}

// MetricsLimiter wraps a Limiter with Prometheus metrics collection.
type MetricsLimiter struct {
	limiter  Limiter
	kind     string
	name     string
	registry *metrics.Registry
	enabled  bool
}

var (
	_ Limiter                = (*MetricsLimiter)(nil)
	_ metrics.Instrumentable = (*MetricsLimiter)(nil)
)

// NewWithMetrics creates a token bucket with the given rate (capacity equal
// to rate) and metrics collection configured by metricsConfig.
func NewWithMetrics(rate float64, name string, metricsConfig metrics.Config) (Limiter, error) {
	return NewWithConfigAndMetrics(Config{
		Rate:          rate,
		InitialTokens: -1,
	}, name, metricsConfig)
}

// NewWithConfigAndMetrics creates a token bucket with custom config and metrics.
// When metricsConfig.Registry is nil a private registry is used so that
// several instrumented limiters never collide.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) (Limiter, error) {
	base, err := NewWithConfig(config)
	if err != nil {
		return nil, err
	}

	if !metricsConfig.Enabled {
		return base, nil
	}

	return Instrument(base, name, metricsConfig), nil
}

// Instrument wraps an existing limiter with metrics.
func Instrument(l Limiter, name string, metricsConfig metrics.Config) *MetricsLimiter {
	if metricsConfig.Registry == nil {
		metricsConfig.Registry = prometheus.NewRegistry()
	}

	return &MetricsLimiter{
		limiter:  l,
		kind:     kindOf(l),
		name:     name,
		registry: metrics.NewRegistryFromConfig(metricsConfig),
		enabled:  metricsConfig.Enabled,
	}
}

// InstrumentWith wraps l, recording into an existing registry. Use it when
// several limiters report to one Prometheus registry.
func InstrumentWith(l Limiter, name string, reg *metrics.Registry) *MetricsLimiter {
	return &MetricsLimiter{
		limiter:  l,
		kind:     kindOf(l),
		name:     name,
		registry: reg,
		enabled:  true,
	}
}

// Acquire blocks until a token is available, recording the wait.
func (ml *MetricsLimiter) Acquire(ctx context.Context) error {
	start := time.Now()

	if ml.enabled {
		ml.registry.RateLimitRequests.WithLabelValues(ml.kind, ml.name).Inc()
	}

	err := ml.limiter.Acquire(ctx)

	if ml.enabled {
		ml.registry.RateLimitWaitTime.WithLabelValues(ml.kind, ml.name).Observe(time.Since(start).Seconds())
		ml.record(err == nil)
	}

	return err
}

// TryAcquire consumes a token if one is available without waiting.
func (ml *MetricsLimiter) TryAcquire() bool {
	if ml.enabled {
		ml.registry.RateLimitRequests.WithLabelValues(ml.kind, ml.name).Inc()
	}

	ok := ml.limiter.TryAcquire()

	if ml.enabled {
		ml.record(ok)
	}

	return ok
}

// Tokens returns the number of tokens currently available.
func (ml *MetricsLimiter) Tokens() float64 {
	tokens := ml.limiter.Tokens()

	if ml.enabled {
		ml.registry.RateLimitTokens.WithLabelValues(ml.kind, ml.name).Set(tokens)
	}

	return tokens
}

// Capacity returns the wrapped limiter's capacity.
func (ml *MetricsLimiter) Capacity() float64 {
	return ml.limiter.Capacity()
}

// Rate returns the wrapped limiter's rate.
func (ml *MetricsLimiter) Rate() float64 {
	return ml.limiter.Rate()
}

// Registry exposes the metric instances this limiter writes to.
func (ml *MetricsLimiter) Registry() *metrics.Registry {
	return ml.registry
}

// EnableMetrics enables metrics collection.
func (ml *MetricsLimiter) EnableMetrics(config metrics.Config) error {
	ml.enabled = config.Enabled

	if config.Registry != nil {
		ml.registry = metrics.NewRegistryFromConfig(config)
	}

	return nil
}

// DisableMetrics disables metrics collection.
func (ml *MetricsLimiter) DisableMetrics() {
	ml.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (ml *MetricsLimiter) MetricsEnabled() bool {
	return ml.enabled
}

func (ml *MetricsLimiter) record(allowed bool) {
	if allowed {
		ml.registry.RateLimitAllowed.WithLabelValues(ml.kind, ml.name).Inc()
	} else {
		ml.registry.RateLimitDenied.WithLabelValues(ml.kind, ml.name).Inc()
	}

	// Update current token count
	ml.registry.RateLimitTokens.WithLabelValues(ml.kind, ml.name).Set(ml.limiter.Tokens())
}
