package decorate

import (
	"context"
	"fmt"
	"sync"
)

// KeyedFunc is a call whose result depends only on key.
type KeyedFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Memo caches the successful results of a KeyedFunc.
type Memo[K comparable, V any] struct {
	fn KeyedFunc[K, V]

	mu       sync.Mutex
	values   map[K]V
	inflight map[K]*memoCall[V]
}

type memoCall[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Memoize returns a Memo over fn. Failures are never cached, and concurrent
// misses on the same key share a single call to fn.
func Memoize[K comparable, V any](fn KeyedFunc[K, V]) *Memo[K, V] {
	return &Memo[K, V]{
		fn:       fn,
		values:   make(map[K]V),
		inflight: make(map[K]*memoCall[V]),
	}
}

// Get returns the cached value for key, calling fn on a miss. A caller
// waiting on another caller's miss stops waiting when ctx is done.
func (m *Memo[K, V]) Get(ctx context.Context, key K) (V, error) {
	m.mu.Lock()
	if v, ok := m.values[key]; ok {
		m.mu.Unlock()
		return v, nil
	}
	if c, ok := m.inflight[key]; ok {
		m.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
	c := &memoCall[V]{done: make(chan struct{})}
	m.inflight[key] = c
	m.mu.Unlock()

	m.call(ctx, key, c)
	return c.val, c.err
}

// call runs fn for key and releases waiters on c, even when fn panics. A
// panic reaches waiters as an error and is re-raised in the calling
// goroutine; nothing is cached for the key.
func (m *Memo[K, V]) call(ctx context.Context, key K, c *memoCall[V]) {
	completed := false
	defer func() {
		var r interface{}
		if !completed {
			r = recover()
			c.err = fmt.Errorf("memoized call for key %v panicked: %v", key, r)
		}

		m.mu.Lock()
		if c.err == nil {
			m.values[key] = c.val
		}
		delete(m.inflight, key)
		m.mu.Unlock()
		close(c.done)

		if r != nil {
			panic(r)
		}
	}()

	c.val, c.err = m.fn(ctx, key)
	completed = true
}

// Func returns Get as a KeyedFunc.
func (m *Memo[K, V]) Func() KeyedFunc[K, V] {
	return m.Get
}

// Bind returns a Func that looks up key.
func (m *Memo[K, V]) Bind(key K) Func[V] {
	return func(ctx context.Context) (V, error) {
		return m.Get(ctx, key)
	}
}

// Forget drops the cached value for key.
func (m *Memo[K, V]) Forget(key K) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}

// Len returns the number of cached values.
func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
