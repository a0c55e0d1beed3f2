package concurrency

import (
	"sync"

	"github.com/vnykmshr/pace/pkg/common/errors"
)

// Limiter bounds the number of operations in progress at once. Blocked
// callers are admitted in arrival order.
type Limiter struct {
	mu        sync.Mutex
	capacity  int
	available int
	inUse     int
	waiters   []*waiter
}

// waiter represents a goroutine waiting for a permit.
type waiter struct {
	ready   chan struct{} // closed once a permit is handed over
	granted bool
}

// New creates a limiter allowing capacity concurrent operations.
func New(capacity int) (*Limiter, error) {
	if capacity <= 0 {
		return nil, errors.NewValidationError("concurrency", "capacity", capacity, "must be positive").
			WithHint("capacity determines how many concurrent operations are allowed")
	}
	return &Limiter{
		capacity:  capacity,
		available: capacity,
	}, nil
}
