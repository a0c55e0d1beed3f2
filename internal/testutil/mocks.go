package testutil

import (
	"sync"
	"time"
)

// MockClock implements the limiter Clock interface with controllable time.
//
// In auto mode (NewMockClock) After advances the clock by the requested
// duration and fires immediately, so blocking code runs without real delays
// while elapsed time is still accounted for. In manual mode (NewManualClock)
// After only fires once Advance moves the clock past its deadline.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	auto    bool
	sleeps  []time.Duration
	waiters []mockWaiter
}

type mockWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewMockClock creates an auto-advancing MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start, auto: true}
}

// NewManualClock creates a MockClock whose timers fire only on Advance.
func NewManualClock(start time.Time) *MockClock {
	c := NewMockClock(start)
	c.auto = false
	return c
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After returns a channel that receives the mock time once d has elapsed.
func (m *MockClock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sleeps = append(m.sleeps, d)
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- m.now
		return ch
	}
	if m.auto {
		m.now = m.now.Add(d)
		ch <- m.now
		return ch
	}
	m.waiters = append(m.waiters, mockWaiter{deadline: m.now.Add(d), ch: ch})
	return ch
}

// Advance moves the mock clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	m.fireLocked()
}

// Set sets the mock clock to a specific time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
	m.fireLocked()
}

// Sleeps returns every duration passed to After, in call order.
func (m *MockClock) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.sleeps...)
}

// Waiters returns the number of pending timers in manual mode.
func (m *MockClock) Waiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

func (m *MockClock) fireLocked() {
	pending := m.waiters[:0]
	for _, w := range m.waiters {
		if !w.deadline.After(m.now) {
			w.ch <- m.now
			continue
		}
		pending = append(pending, w)
	}
	m.waiters = pending
}
