package testutil

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		called := false
		Eventually(t, func() bool {
			called = true
			return true
		}, 100*time.Millisecond, 10*time.Millisecond)

		if !called {
			t.Error("condition function should be called")
		}
	})

	t.Run("condition met after delay", func(t *testing.T) {
		var counter int32
		go func() {
			time.Sleep(50 * time.Millisecond)
			atomic.StoreInt32(&counter, 1)
		}()

		Eventually(t, func() bool {
			return atomic.LoadInt32(&counter) == 1
		}, 500*time.Millisecond, 10*time.Millisecond)
	})
}

func TestWaitForInt32(t *testing.T) {
	var value int32

	go func() {
		time.Sleep(30 * time.Millisecond)
		atomic.StoreInt32(&value, 42)
	}()

	WaitForInt32(t, &value, 42, 500*time.Millisecond)
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(t)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("context should have a deadline")
	}
	if time.Until(deadline) > TestTimeout {
		t.Errorf("deadline too far in the future: %v", deadline)
	}
}

func TestMockClockAuto(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewMockClock(start)

	got := <-c.After(250 * time.Millisecond)
	AssertEqual(t, got, start.Add(250*time.Millisecond))
	AssertEqual(t, c.Now(), start.Add(250*time.Millisecond))

	<-c.After(0)
	AssertEqual(t, c.Now(), start.Add(250*time.Millisecond))
	AssertEqual(t, len(c.Sleeps()), 2)
}

func TestMockClockManual(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewManualClock(start)

	ch := c.After(time.Second)
	AssertEqual(t, c.Waiters(), 1)

	c.Advance(500 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("timer fired early")
	default:
	}

	c.Advance(500 * time.Millisecond)
	select {
	case got := <-ch:
		AssertEqual(t, got, start.Add(time.Second))
	default:
		t.Fatal("timer should have fired")
	}
	AssertEqual(t, c.Waiters(), 0)
}

func TestAssertInDelta(t *testing.T) {
	AssertInDelta(t, 1.0005, 1.0, 0.001)
}
