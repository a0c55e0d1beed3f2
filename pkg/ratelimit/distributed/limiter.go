package distributed

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/pace/pkg/common/validation"
	"github.com/vnykmshr/pace/pkg/ratelimit/bucket"
)

// Stats holds distributed rate limiter statistics.
type Stats struct {
	Rate            float64
	Capacity        float64
	Tokens          float64
	LastRefill      time.Time
	Granted         int64
	Deferred        int64
	ActiveInstances []string
}

// Config holds configuration for distributed rate limiters.
type Config struct {
	// Redis client for coordination
	Redis redis.UniversalClient

	// Key is the Redis key prefix for this limiter
	Key string

	// Rate is the number of tokens added per second
	Rate float64

	// Capacity is the maximum number of tokens that can be stored.
	// If zero, it equals Rate.
	Capacity float64

	// InstanceID uniquely identifies this application instance
	InstanceID string

	// Fallback is used when Redis is unavailable. If nil, Redis errors
	// are returned to the caller.
	Fallback bucket.Limiter

	// RedisTimeout is the timeout for each Redis round trip
	RedisTimeout time.Duration

	// KeyTTL is how long idle Redis keys should live (defaults to 1 hour)
	KeyTTL time.Duration

	// Clock provides timers for the wait between attempts. If nil, the
	// system clock is used.
	Clock bucket.Clock
}

// DefaultConfig returns a default distributed rate limiter configuration.
func DefaultConfig() Config {
	return Config{
		InstanceID:   generateInstanceID(),
		RedisTimeout: 500 * time.Millisecond,
		KeyTTL:       time.Hour,
	}
}

// validateConfig validates the limiter configuration.
func validateConfig(config Config) error {
	if config.Redis == nil {
		return &ConfigError{Message: "redis client is required"}
	}
	if config.Key == "" {
		return &ConfigError{Message: "key is required"}
	}
	if err := validation.ValidatePositiveFloat("distributed", "rate", config.Rate); err != nil {
		return &ConfigError{Message: "rate must be positive and finite", Err: err}
	}
	if config.Capacity != 0 {
		if err := validation.ValidatePositiveFloat("distributed", "capacity", config.Capacity); err != nil {
			return &ConfigError{Message: "capacity must be positive and finite", Err: err}
		}
	}
	return nil
}

// applyConfigDefaults sets default values for unspecified config fields.
func applyConfigDefaults(config Config) Config {
	if config.InstanceID == "" {
		config.InstanceID = generateInstanceID()
	}
	if config.Capacity == 0 {
		config.Capacity = config.Rate
	}
	if config.RedisTimeout == 0 {
		config.RedisTimeout = 500 * time.Millisecond
	}
	if config.KeyTTL == 0 {
		config.KeyTTL = time.Hour
	}
	if config.Clock == nil {
		config.Clock = bucket.SystemClock{}
	}
	return config
}

// ConfigError represents a configuration error. Err, when set, is the
// underlying *errors.ValidationError.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	return "distributed rate limiter config error: " + e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RedisError represents a Redis operation error.
type RedisError struct {
	Operation string
	Err       error
}

func (e *RedisError) Error() string {
	return "redis error in " + e.Operation + ": " + e.Err.Error()
}

func (e *RedisError) Unwrap() error {
	return e.Err
}

var _ interface {
	Acquire(ctx context.Context) error
} = (*TokenBucket)(nil)
