// Package config loads the YAML file that drives the paced runner.
package config

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/pace/pkg/common/errors"
	"github.com/vnykmshr/pace/pkg/common/validation"
)

// Limiter backends.
const (
	BackendLocal = "local"
	BackendRedis = "redis"
	BackendXRate = "xrate"
)

// Config is the root of the configuration file.
type Config struct {
	Log             LogConfig       `yaml:"log"`
	Metrics         MetricsConfig   `yaml:"metrics"`
	Redis           RedisConfig     `yaml:"redis"`
	Scheduler       SchedulerConfig `yaml:"scheduler"`
	Limiters        []LimiterConfig `yaml:"limiters"`
	Groups          []GroupConfig   `yaml:"groups"`
	Jobs            []JobConfig     `yaml:"jobs"`
	ShutdownTimeout Duration        `yaml:"shutdown_timeout"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Listen    string            `yaml:"listen"`
	Path      string            `yaml:"path"`
	Namespace string            `yaml:"namespace"`
	Labels    map[string]string `yaml:"labels,omitempty"`
}

// RedisConfig configures the client shared by redis-backed limiters.
type RedisConfig struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password,omitempty"`
	DB       int      `yaml:"db"`
	Timeout  Duration `yaml:"timeout"`
}

// SchedulerConfig configures the job scheduler.
type SchedulerConfig struct {
	Workers      int      `yaml:"workers"`
	TickInterval Duration `yaml:"tick_interval"`
}

// LimiterConfig describes one named limiter.
type LimiterConfig struct {
	Name string `yaml:"name"`

	// Rate is the sustained number of calls per second.
	Rate float64 `yaml:"rate"`

	// Capacity is the burst size. Zero means Rate.
	Capacity float64 `yaml:"capacity,omitempty"`

	// Backend is local, redis or xrate. Default: local.
	Backend string `yaml:"backend"`

	// Key is the Redis key prefix for the redis backend. Default: pace:<name>.
	Key string `yaml:"key,omitempty"`

	// Fallback makes a redis limiter fall back to a local bucket while
	// Redis is unreachable.
	Fallback bool `yaml:"fallback,omitempty"`
}

// GroupConfig bounds how many runs of the jobs in a group are in progress
// at once, e.g. jobs sharing one downstream connection pool.
type GroupConfig struct {
	Name          string `yaml:"name"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// JobConfig describes one scheduled job.
type JobConfig struct {
	Name string `yaml:"name"`

	// Schedule is a cron expression or descriptor such as "@every 5s".
	Schedule string `yaml:"schedule"`

	// Limiter names the limiter each run acquires from. Optional.
	Limiter string `yaml:"limiter,omitempty"`

	// Group names the concurrency group each run holds a slot in. Optional.
	Group string `yaml:"group,omitempty"`

	// Message is logged by each run.
	Message string `yaml:"message,omitempty"`

	// Timeout bounds a single run. Zero means no bound.
	Timeout Duration `yaml:"timeout,omitempty"`

	Retry RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig configures retries for a job.
type RetryConfig struct {
	Attempts int      `yaml:"attempts"`
	Delay    Duration `yaml:"delay"`
}

// Default returns a configuration with every default applied and no
// limiters or jobs.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, parses and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", errors.ErrInvalidConfiguration, err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document decodes to io.EOF and leaves every default in place.
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", errors.ErrInvalidConfiguration, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Timeout == 0 {
		c.Redis.Timeout = Duration(500 * time.Millisecond)
	}
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = 4
	}
	if c.Scheduler.TickInterval == 0 {
		c.Scheduler.TickInterval = Duration(50 * time.Millisecond)
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = Duration(10 * time.Second)
	}

	for i := range c.Limiters {
		l := &c.Limiters[i]
		if l.Backend == "" {
			l.Backend = BackendLocal
		}
		if l.Capacity == 0 {
			l.Capacity = l.Rate
			if l.Backend == BackendXRate {
				// rate.Limiter bursts are whole tokens.
				l.Capacity = math.Max(1, math.Ceil(l.Rate))
			}
		}
		if l.Backend == BackendRedis && l.Key == "" {
			l.Key = "pace:" + l.Name
		}
	}

	for i := range c.Jobs {
		if c.Jobs[i].Retry.Attempts == 0 {
			c.Jobs[i].Retry.Attempts = 1
		}
	}
}

// Validate checks the configuration, returning the first problem found as
// a *errors.ValidationError.
func (c *Config) Validate() error {
	if err := validation.ValidateOneOf("config", "log.level", c.Log.Level, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "scheduler.workers", c.Scheduler.Workers); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration("config", "scheduler.tick_interval", c.Scheduler.TickInterval.Std()); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration("config", "shutdown_timeout", c.ShutdownTimeout.Std()); err != nil {
		return err
	}

	limiters := make(map[string]bool, len(c.Limiters))
	for _, l := range c.Limiters {
		if err := l.validate(); err != nil {
			return err
		}
		if limiters[l.Name] {
			return errors.NewValidationError("config", "limiters.name", l.Name, "duplicate limiter name")
		}
		limiters[l.Name] = true
	}

	groups := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if err := g.validate(); err != nil {
			return err
		}
		if groups[g.Name] {
			return errors.NewValidationError("config", "groups.name", g.Name, "duplicate group name")
		}
		groups[g.Name] = true
	}

	jobs := make(map[string]bool, len(c.Jobs))
	for _, j := range c.Jobs {
		if err := j.validate(); err != nil {
			return err
		}
		if jobs[j.Name] {
			return errors.NewValidationError("config", "jobs.name", j.Name, "duplicate job name")
		}
		jobs[j.Name] = true
		if j.Limiter != "" && !limiters[j.Limiter] {
			return errors.NewValidationError("config", "jobs.limiter", j.Limiter, "unknown limiter").
				WithHint(fmt.Sprintf("declare it under limiters or remove it from job %q", j.Name))
		}
		if j.Group != "" && !groups[j.Group] {
			return errors.NewValidationError("config", "jobs.group", j.Group, "unknown group").
				WithHint(fmt.Sprintf("declare it under groups or remove it from job %q", j.Name))
		}
	}

	return nil
}

func (l LimiterConfig) validate() error {
	if err := validation.ValidateNotEmpty("config", "limiters.name", l.Name); err != nil {
		return err
	}
	if err := validation.ValidatePositiveFloat("config", "limiters."+l.Name+".rate", l.Rate); err != nil {
		return err
	}
	if err := validation.ValidatePositiveFloat("config", "limiters."+l.Name+".capacity", l.Capacity); err != nil {
		return err
	}
	if l.Backend == BackendXRate && l.Capacity != math.Trunc(l.Capacity) {
		return errors.NewValidationError("config", "limiters."+l.Name+".capacity", l.Capacity, "must be a whole number for the xrate backend").
			WithHint("use a local limiter for fractional capacities")
	}
	return validation.ValidateOneOf("config", "limiters."+l.Name+".backend", l.Backend,
		BackendLocal, BackendRedis, BackendXRate)
}

func (g GroupConfig) validate() error {
	if err := validation.ValidateNotEmpty("config", "groups.name", g.Name); err != nil {
		return err
	}
	return validation.ValidatePositive("config", "groups."+g.Name+".max_concurrent", g.MaxConcurrent)
}

func (j JobConfig) validate() error {
	if err := validation.ValidateNotEmpty("config", "jobs.name", j.Name); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("config", "jobs."+j.Name+".schedule", j.Schedule); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "jobs."+j.Name+".retry.attempts", j.Retry.Attempts); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration("config", "jobs."+j.Name+".retry.delay", j.Retry.Delay.Std()); err != nil {
		return err
	}
	return validation.ValidateNonNegativeDuration("config", "jobs."+j.Name+".timeout", j.Timeout.Std())
}
