// Package integration contains integration tests that verify cross-package functionality.
// These tests ensure that different components work together correctly in realistic scenarios.
package integration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/pace/internal/testutil"
	perrors "github.com/vnykmshr/pace/pkg/common/errors"
	"github.com/vnykmshr/pace/pkg/decorate"
	"github.com/vnykmshr/pace/pkg/ratelimit/bucket"
	"github.com/vnykmshr/pace/pkg/ratelimit/xrate"
	"github.com/vnykmshr/pace/pkg/scheduling/scheduler"
	"github.com/vnykmshr/pace/pkg/scheduling/workerpool"
)

func newBucket(t *testing.T, rate, capacity float64) *bucket.TokenBucket {
	t.Helper()
	tb, err := bucket.NewWithConfig(bucket.Config{Rate: rate, Capacity: capacity, InitialTokens: -1})
	testutil.AssertNoError(t, err)
	return tb
}

// TestWorkerPoolSharedBucket verifies that workers sharing one bucket are
// paced as a group: after the burst, calls arrive at the bucket's rate.
func TestWorkerPoolSharedBucket(t *testing.T) {
	if testing.Short() {
		t.Skip("wall-clock pacing test")
	}

	limiter := newBucket(t, 10, 5)
	pool, err := workerpool.New(3, 20)
	testutil.AssertNoError(t, err)

	var executed int32
	const numTasks = 20
	start := time.Now()
	for range numTasks {
		call := decorate.Chain(decorate.Action(func(context.Context) error {
			atomic.AddInt32(&executed, 1)
			return nil
		}), decorate.WithRateLimit[struct{}](limiter))

		err := pool.Submit(context.Background(), workerpool.TaskFunc(func(ctx context.Context) error {
			_, err := call(ctx)
			return err
		}))
		testutil.AssertNoError(t, err)
	}

	<-pool.Shutdown()
	elapsed := time.Since(start)

	// 5 from the burst, 15 more at 10 per second.
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(numTasks))
	if elapsed < 1400*time.Millisecond {
		t.Errorf("20 calls finished in %v, want at least 1.4s", elapsed)
	}
	if elapsed > 2500*time.Millisecond {
		t.Errorf("20 calls took %v, want under 2.5s", elapsed)
	}
}

// TestSchedulerJobRespectsLimiter runs a job due far more often than its
// limiter allows; overlapping runs are skipped while the job waits.
func TestSchedulerJobRespectsLimiter(t *testing.T) {
	limiter := newBucket(t, 20, 1)

	var runs int32
	job := decorate.Chain(decorate.Action(func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}), decorate.WithRateLimit[struct{}](limiter))

	s, err := scheduler.New(scheduler.Config{TickInterval: 2 * time.Millisecond})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, s.AddEvery("busy", time.Millisecond, job))
	testutil.AssertNoError(t, s.Start())

	time.Sleep(500 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	testutil.AssertNoError(t, s.Stop(ctx))

	// One from the initial token plus 20 per second for half a second,
	// with slack for timer jitter.
	got := atomic.LoadInt32(&runs)
	if got < 5 || got > 13 {
		t.Errorf("job ran %d times in 500ms, want between 5 and 13", got)
	}
	if s.Entries()[0].Skipped == 0 {
		t.Error("expected overlapping runs to be skipped")
	}
}

// TestRetryTakesPermitPerAttempt verifies that with the rate limit inside
// the retry, every attempt pays for its own token.
func TestRetryTakesPermitPerAttempt(t *testing.T) {
	limiter := newBucket(t, 0.01, 3)

	var attempts int32
	call := decorate.Chain(
		func(context.Context) (int, error) {
			atomic.AddInt32(&attempts, 1)
			return 0, errors.New("unavailable")
		},
		decorate.Retry[int](decorate.RetryPolicy{Attempts: 3}),
		decorate.WithRateLimit[int](limiter),
	)

	_, err := call(context.Background())
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, atomic.LoadInt32(&attempts), int32(3))
	testutil.AssertInDelta(t, limiter.Tokens(), 0, 0.05)
}

// TestMemoizedCallsSkipLimiter verifies that putting the cache outside the
// limiter lets hits through without spending tokens.
func TestMemoizedCallsSkipLimiter(t *testing.T) {
	limiter := newBucket(t, 0.01, 2)

	var fetches int32
	fetch := decorate.Chain(
		func(context.Context) (string, error) {
			atomic.AddInt32(&fetches, 1)
			return "profile", nil
		},
		decorate.WithRateLimit[string](limiter),
	)
	memo := decorate.Memoize(func(ctx context.Context, _ string) (string, error) {
		return fetch(ctx)
	})

	for range 10 {
		v, err := memo.Get(context.Background(), "user-1")
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, v, "profile")
	}

	testutil.AssertEqual(t, atomic.LoadInt32(&fetches), int32(1))
	testutil.AssertInDelta(t, limiter.Tokens(), 1, 0.05)
}

// TestRejectedCallsSpendNoTokens verifies that authorization ahead of the
// limiter keeps unauthorized callers from draining it.
func TestRejectedCallsSpendNoTokens(t *testing.T) {
	limiter, err := xrate.New(0.01, 2)
	testutil.AssertNoError(t, err)

	call := decorate.Chain(
		decorate.Action(func(context.Context) error { return nil }),
		decorate.RequireRole[struct{}]("writer"),
		decorate.WithRateLimit[struct{}](limiter),
	)

	reader := decorate.WithPrincipal(context.Background(), decorate.Principal{ID: "r", Roles: []string{"reader"}})
	for range 5 {
		_, err := call(reader)
		testutil.AssertEqual(t, errors.Is(err, perrors.ErrForbidden), true)
	}
	testutil.AssertInDelta(t, limiter.Tokens(), 2, 0.05)

	writer := decorate.WithPrincipal(context.Background(), decorate.Principal{ID: "w", Roles: []string{"writer"}})
	_, err = call(writer)
	testutil.AssertNoError(t, err)
	testutil.AssertInDelta(t, limiter.Tokens(), 1, 0.05)
}
