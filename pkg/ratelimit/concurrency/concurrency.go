package concurrency

import (
	"context"
)

// TryAcquire takes a permit if one is free, without blocking.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.available > 0 && len(l.waiters) == 0 {
		l.available--
		l.inUse++
		return true
	}
	return false
}

// Acquire blocks until a permit is free or ctx is done. A caller that gives
// up never holds a permit.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()

	// Fast path: permit available and nobody queued ahead
	if l.available > 0 && len(l.waiters) == 0 {
		l.available--
		l.inUse++
		l.mu.Unlock()
		return nil
	}

	w := &waiter{ready: make(chan struct{})}
	l.waiters = append(l.waiters, w)
	l.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		if w.granted {
			// The permit arrived as we gave up; pass it on.
			l.inUse--
			l.available++
			l.handOff()
		} else {
			l.remove(w)
		}
		l.mu.Unlock()
		return ctx.Err()
	}
}

// Release returns a permit. It panics if no permit is held.
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inUse == 0 {
		panic("concurrency: released more permits than acquired")
	}
	l.inUse--
	l.available++
	l.handOff()
}

// Capacity returns the maximum number of concurrent operations.
func (l *Limiter) Capacity() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capacity
}

// Available returns the number of free permits.
func (l *Limiter) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

// InUse returns the number of permits currently held.
func (l *Limiter) InUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}

// handOff gives free permits to queued waiters in order.
// Must be called with l.mu held.
func (l *Limiter) handOff() {
	for l.available > 0 && len(l.waiters) > 0 {
		w := l.waiters[0]
		l.waiters = l.waiters[1:]
		l.available--
		l.inUse++
		w.granted = true
		close(w.ready)
	}
}

// remove drops w from the queue. Must be called with l.mu held.
func (l *Limiter) remove(w *waiter) {
	for i, q := range l.waiters {
		if q == w {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}
