package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/vnykmshr/pace/pkg/common/errors"
	"github.com/vnykmshr/pace/pkg/common/validation"
)

// Limiter paces callers so that the long-run rate of granted permits does
// not exceed Rate, while allowing bursts of up to Capacity permits.
type Limiter interface {
	// Acquire blocks until one token is available and consumes it.
	// It returns the context's error if ctx is done first; in that case
	// no token is consumed.
	Acquire(ctx context.Context) error

	// TryAcquire consumes one token if one is available right now.
	// It never blocks, and reports false while another caller is
	// waiting inside Acquire.
	TryAcquire() bool

	// Tokens returns the number of tokens currently available.
	Tokens() float64

	// Capacity returns the maximum number of tokens the bucket holds.
	Capacity() float64

	// Rate returns the number of tokens added per second.
	Rate() float64
}

// Clock provides the current time and timers. It can be mocked for testing.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// After waits for d on a real timer.
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Config holds configuration options for creating a new TokenBucket.
type Config struct {
	// Rate is the number of tokens added per second, i.e. the maximum
	// sustained number of calls per second.
	Rate float64

	// Capacity is the maximum number of tokens that can be stored.
	// If zero, it equals Rate. Values below one are allowed; such a bucket
	// still fills to a single token so that it can grant calls.
	Capacity float64

	// InitialTokens is the number of tokens to start with.
	// If negative, starts with full capacity.
	InitialTokens float64

	// Clock provides the current time. If nil, SystemClock is used.
	Clock Clock
}

// State is a point-in-time view of the bucket. Tokens stays within
// [0, max(Capacity, 1)].
type State struct {
	Tokens     float64
	Capacity   float64
	Rate       float64
	LastRefill time.Time
}

// TokenBucket is a Limiter that serializes waiting callers: a caller that
// finds the bucket empty sleeps while holding the acquire gate, so the
// others queue behind it rather than waiting concurrently. Queue order among
// blocked callers is unspecified.
type TokenBucket struct {
	// gate is held for the whole of Acquire, including the refill sleep.
	gate chan struct{}

	// mu guards the fields below.
	mu         sync.Mutex
	rate       float64
	capacity   float64
	ceiling    float64
	tokens     float64
	lastRefill time.Time
	clock      Clock
}

var _ Limiter = (*TokenBucket)(nil)

// New creates a token bucket whose capacity equals its rate: up to rate
// calls may burst, and the sustained rate is rate calls per second.
// The bucket starts full.
func New(rate float64) (*TokenBucket, error) {
	return NewWithConfig(Config{
		Rate:          rate,
		InitialTokens: -1, // Start with full capacity
	})
}

// NewWithConfig creates a token bucket from config, returning a
// *errors.ValidationError for unusable values.
func NewWithConfig(config Config) (*TokenBucket, error) {
	if err := validation.ValidatePositiveFloat("bucket", "rate", config.Rate); err != nil {
		return nil, err
	}
	if config.Capacity == 0 {
		config.Capacity = config.Rate
	}
	if err := validation.ValidatePositiveFloat("bucket", "capacity", config.Capacity); err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	initialTokens := config.InitialTokens
	if initialTokens < 0 {
		initialTokens = config.Capacity
	}
	if initialTokens > config.Capacity {
		return nil, errors.NewValidationError("bucket", "initial_tokens", initialTokens, "exceeds capacity").
			WithHint("use a value between 0 and capacity, or -1 for a full bucket")
	}

	return &TokenBucket{
		gate:     make(chan struct{}, 1),
		rate:     config.Rate,
		capacity: config.Capacity,
		// A bucket smaller than one token could never grant a call;
		// it is allowed to fill up to exactly one.
		ceiling:    math.Max(config.Capacity, 1),
		tokens:     initialTokens,
		lastRefill: config.Clock.Now(),
		clock:      config.Clock,
	}, nil
}

// Do acquires a permit from l and then invokes fn outside the limiter's
// critical section. A failed fn does not return its token.
func Do[T any](ctx context.Context, l Limiter, fn func(context.Context) (T, error)) (T, error) {
	if err := l.Acquire(ctx); err != nil {
		var zero T
		return zero, err
	}
	return fn(ctx)
}
