// Package metrics provides Prometheus instrumentation for pace components.
//
// # Quick Start
//
// Use the metrics-enabled constructors and decorators:
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//	limiter, _ := bucket.NewWithMetrics(5, "api_requests", metrics.Config{Enabled: true})
//	call := decorate.Chain(fetch, decorate.WithMetrics[string](reg, "fetch"))
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
//   - pace_ratelimit_requests_total: permit requests
//   - pace_ratelimit_allowed_total: granted permits
//   - pace_ratelimit_denied_total: refused or abandoned permit requests
//   - pace_ratelimit_wait_duration_seconds: time blocked waiting for a permit
//   - pace_ratelimit_tokens_available: tokens currently in the bucket
//   - pace_call_total: decorated calls by outcome ("success", "error")
//   - pace_call_duration_seconds: wall time of decorated calls
//   - pace_call_retries_total: retried attempts
//   - pace_scheduler_job_runs_total: scheduled job runs by outcome
//
// The namespace defaults to "pace" and can be overridden with
// Config.Namespace; Config.Labels become constant labels on every metric.
package metrics
