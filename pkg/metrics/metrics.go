// Package metrics provides Prometheus instrumentation for pace components.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for pace components.
type Registry struct {
	// Rate Limiting Metrics
	RateLimitRequests *prometheus.CounterVec
	RateLimitAllowed  *prometheus.CounterVec
	RateLimitDenied   *prometheus.CounterVec
	RateLimitWaitTime *prometheus.HistogramVec
	RateLimitTokens   *prometheus.GaugeVec

	// Decorated Call Metrics
	CallsTotal    *prometheus.CounterVec
	CallDuration  *prometheus.HistogramVec
	RetryAttempts *prometheus.CounterVec

	// Scheduler Metrics
	JobRuns *prometheus.CounterVec
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry bound to prometheus.DefaultRegisterer,
// creating it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryFromConfig(Config{Registry: reg})
}

// NewRegistryFromConfig creates a registry honoring the namespace and
// constant labels of config.
func NewRegistryFromConfig(config Config) *Registry {
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)
	labels := config.Labels

	return &Registry{
		RateLimitRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "ratelimit",
				Name:        "requests_total",
				Help:        "Total number of permit requests",
				ConstLabels: labels,
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitAllowed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "ratelimit",
				Name:        "allowed_total",
				Help:        "Total number of granted permits",
				ConstLabels: labels,
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "ratelimit",
				Name:        "denied_total",
				Help:        "Total number of refused or abandoned permit requests",
				ConstLabels: labels,
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitWaitTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "ratelimit",
				Name:        "wait_duration_seconds",
				Help:        "Time spent blocked waiting for a permit",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitTokens: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "ratelimit",
				Name:        "tokens_available",
				Help:        "Number of tokens currently available",
				ConstLabels: labels,
			},
			[]string{"limiter_type", "limiter_name"},
		),

		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "call",
				Name:        "total",
				Help:        "Total number of decorated calls by outcome",
				ConstLabels: labels,
			},
			[]string{"call", "outcome"},
		),

		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "call",
				Name:        "duration_seconds",
				Help:        "Wall time of decorated calls",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"call"},
		),

		RetryAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "call",
				Name:        "retries_total",
				Help:        "Total number of retried attempts",
				ConstLabels: labels,
			},
			[]string{"call"},
		),

		JobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "job_runs_total",
				Help:        "Total number of scheduled job runs by outcome",
				ConstLabels: labels,
			},
			[]string{"job", "outcome"},
		),
	}
}

// Outcome maps a call error to the "outcome" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
