package bucket

import (
	"context"
	"math"
	"time"
)

// Acquire blocks until a token is available, then consumes it.
func (tb *TokenBucket) Acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Check if context is already canceled
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case tb.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-tb.gate }()

	for {
		wait, ok := tb.take(tb.clock.Now())
		if ok {
			return nil
		}

		// Sleep with the gate held; every other acquirer queues behind us.
		select {
		case <-tb.clock.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TryAcquire consumes a token if one is available without waiting.
func (tb *TokenBucket) TryAcquire() bool {
	select {
	case tb.gate <- struct{}{}:
	default:
		return false
	}
	defer func() { <-tb.gate }()

	_, ok := tb.take(tb.clock.Now())
	return ok
}

// Tokens returns the number of tokens currently available.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(tb.clock.Now())
	return tb.tokens
}

// Capacity returns the configured bucket capacity. A capacity below one
// still lets the bucket fill to one token, so Tokens can exceed Capacity
// for such buckets.
func (tb *TokenBucket) Capacity() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.capacity
}

// Rate returns the refill rate in tokens per second.
func (tb *TokenBucket) Rate() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.rate
}

// Snapshot returns the bucket state without refilling it. Tokens never
// exceeds max(Capacity, 1).
func (tb *TokenBucket) Snapshot() State {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	return State{
		Tokens:     tb.tokens,
		Capacity:   tb.capacity,
		Rate:       tb.rate,
		LastRefill: tb.lastRefill,
	}
}

// take refills the bucket and consumes one token if possible. Otherwise it
// returns how long until the deficit is covered.
func (tb *TokenBucket) take(now time.Time) (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(now)
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}

	// Rounded up so that the refill after the sleep reaches a whole token.
	deficit := (1 - tb.tokens) / tb.rate
	return waitFor(deficit), false
}

// waitFor converts seconds to a duration, rounding up and saturating at
// the longest representable duration.
func waitFor(seconds float64) time.Duration {
	ns := math.Ceil(seconds * float64(time.Second))
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// refill adds tokens for the time elapsed since the last refill.
// Must be called with tb.mu held.
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		// lastRefill never moves backwards
		return
	}

	tb.tokens = math.Min(tb.ceiling, tb.tokens+elapsed.Seconds()*tb.rate)
	tb.lastRefill = now
}
