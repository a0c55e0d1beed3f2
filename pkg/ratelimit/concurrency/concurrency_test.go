package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/pace/internal/testutil"
	"github.com/vnykmshr/pace/pkg/common/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		expectErr bool
	}{
		{"valid", 3, false},
		{"single", 1, false},
		{"zero", 0, true},
		{"negative", -2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.capacity)
			if tt.expectErr {
				testutil.AssertEqual(t, errors.IsValidationError(err), true)
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, l.Capacity(), tt.capacity)
			testutil.AssertEqual(t, l.Available(), tt.capacity)
			testutil.AssertEqual(t, l.InUse(), 0)
		})
	}
}

func TestTryAcquireRelease(t *testing.T) {
	l, err := New(2)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, l.TryAcquire(), true)
	testutil.AssertEqual(t, l.TryAcquire(), true)
	testutil.AssertEqual(t, l.TryAcquire(), false)
	testutil.AssertEqual(t, l.InUse(), 2)

	l.Release()
	testutil.AssertEqual(t, l.Available(), 1)
	testutil.AssertEqual(t, l.TryAcquire(), true)
}

func TestReleaseWithoutAcquirePanics(t *testing.T) {
	l, err := New(1)
	testutil.AssertNoError(t, err)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	l.Release()
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	l, err := New(1)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, l.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		if err := l.Acquire(context.Background()); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("acquired while the only permit was held")
	case <-time.After(20 * time.Millisecond):
	}

	l.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter not admitted after release")
	}
	testutil.AssertEqual(t, l.InUse(), 1)
}

func TestAcquireContextCanceled(t *testing.T) {
	l, err := New(1)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err = l.Acquire(ctx)
	testutil.AssertEqual(t, err, context.DeadlineExceeded)

	// The abandoned waiter left no trace.
	l.Release()
	testutil.AssertEqual(t, l.Available(), 1)
	testutil.AssertEqual(t, l.TryAcquire(), true)
}

func TestTryAcquireDoesNotJumpQueue(t *testing.T) {
	l, err := New(1)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, l.Acquire(context.Background()))

	done := make(chan struct{})
	go func() {
		_ = l.Acquire(context.Background())
		close(done)
	}()
	testutil.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.waiters) == 1
	}, time.Second, time.Millisecond)

	l.Release()
	<-done
	testutil.AssertEqual(t, l.TryAcquire(), false)
}

func TestPermitsNeverLeakUnderCancellation(t *testing.T) {
	l, err := New(3)
	testutil.AssertNoError(t, err)

	var wg sync.WaitGroup
	var peak, current int32
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(i%5)*time.Millisecond)
			defer cancel()
			if err := l.Acquire(ctx); err != nil {
				return
			}
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&current, -1)
			l.Release()
		}()
	}
	wg.Wait()

	testutil.AssertEqual(t, atomic.LoadInt32(&peak) <= 3, true)
	testutil.AssertEqual(t, l.InUse(), 0)
	testutil.AssertEqual(t, l.Available(), 3)
}
