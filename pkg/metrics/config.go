package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name unless Config.Namespace is set.
const DefaultNamespace = "pace"

// Config selects where pace series are registered and how they are named.
// The paced runner fills it from the metrics section of its YAML file.
type Config struct {
	Enabled bool

	// Registry receives the collectors. Nil means prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace prefixes every series; empty means DefaultNamespace.
	Namespace string

	// Labels are constant labels, e.g. the deployment or region.
	Labels prometheus.Labels
}

// DefaultConfig enables collection on the default registerer.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
	}
}

// Instrumentable is implemented by limiters whose instrumentation can be
// switched on and off at runtime.
type Instrumentable interface {
	EnableMetrics(config Config) error
	DisableMetrics()
	MetricsEnabled() bool
}
