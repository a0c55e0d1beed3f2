// Package xrate adapts golang.org/x/time/rate limiters to the Acquire
// contract used across pace.
//
// Unlike bucket.TokenBucket, a rate.Limiter hands out reservations, so
// blocked callers wait concurrently instead of queueing behind one sleeper.
package xrate

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/vnykmshr/pace/pkg/common/validation"
)

// Limiter wraps a *rate.Limiter.
type Limiter struct {
	lim *rate.Limiter
}

// New creates a limiter refilling at perSecond tokens per second with room
// for burst tokens. A zero burst defaults to ceil(perSecond), at least one.
func New(perSecond float64, burst int) (*Limiter, error) {
	if err := validation.ValidatePositiveFloat("xrate", "rate", perSecond); err != nil {
		return nil, err
	}
	if burst == 0 {
		burst = int(perSecond)
		if float64(burst) < perSecond {
			burst++
		}
	}
	if err := validation.ValidatePositive("xrate", "burst", burst); err != nil {
		return nil, err
	}
	return Wrap(rate.NewLimiter(rate.Limit(perSecond), burst)), nil
}

// Wrap adapts an existing *rate.Limiter.
func Wrap(lim *rate.Limiter) *Limiter {
	return &Limiter{lim: lim}
}

// Acquire blocks until one event is permitted. When the wait would outlast
// ctx's deadline, rate.Limiter refuses without waiting; that refusal is
// reported as context.DeadlineExceeded, like a wait cut short.
func (l *Limiter) Acquire(ctx context.Context) error {
	err := l.lim.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

// Kind names the limiter in metric labels.
func (l *Limiter) Kind() string {
	return "xrate"
}

// TryAcquire reports whether one event may happen now, consuming it if so.
func (l *Limiter) TryAcquire() bool {
	return l.lim.Allow()
}

// Tokens returns the number of tokens currently available.
func (l *Limiter) Tokens() float64 {
	return l.lim.Tokens()
}

// Capacity returns the burst size.
func (l *Limiter) Capacity() float64 {
	return float64(l.lim.Burst())
}

// Rate returns the refill rate in tokens per second.
func (l *Limiter) Rate() float64 {
	return float64(l.lim.Limit())
}

// Unwrap returns the underlying *rate.Limiter.
func (l *Limiter) Unwrap() *rate.Limiter {
	return l.lim
}
