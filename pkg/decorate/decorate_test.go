package decorate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/vnykmshr/pace/pkg/common/errors"
	"github.com/vnykmshr/pace/pkg/ratelimit/bucket"
	"github.com/vnykmshr/pace/pkg/ratelimit/concurrency"
)

func constant[T any](v T) Func[T] {
	return func(context.Context) (T, error) { return v, nil }
}

func failing[T any](err error) Func[T] {
	return func(context.Context) (T, error) {
		var zero T
		return zero, err
	}
}

func TestChainOrder(t *testing.T) {
	var trace []string
	mark := func(name string) Decorator[int] {
		return func(next Func[int]) Func[int] {
			return func(ctx context.Context) (int, error) {
				trace = append(trace, name+">")
				v, err := next(ctx)
				trace = append(trace, "<"+name)
				return v, err
			}
		}
	}

	fn := Chain(func(context.Context) (int, error) {
		trace = append(trace, "call")
		return 7, nil
	}, mark("a"), mark("b"), mark("c"))

	v, err := fn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, []string{"a>", "b>", "c>", "call", "<c", "<b", "<a"}, trace)
}

func TestChainWithoutDecorators(t *testing.T) {
	v, err := Chain(constant("plain"))(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "plain", v)
}

func TestAction(t *testing.T) {
	boom := errors.New("boom")
	ran := false

	_, err := Action(func(context.Context) error {
		ran = true
		return boom
	})(context.Background())

	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)
}

type countingAcquirer struct {
	calls int
	err   error
}

func (a *countingAcquirer) Acquire(context.Context) error {
	a.calls++
	return a.err
}

func TestWithRateLimit(t *testing.T) {
	t.Run("acquires before each call", func(t *testing.T) {
		acq := &countingAcquirer{}
		fn := Chain(constant(1), WithRateLimit[int](acq))

		for range 3 {
			_, err := fn(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, 3, acq.calls)
	})

	t.Run("acquire failure skips the call", func(t *testing.T) {
		denied := errors.New("denied")
		acq := &countingAcquirer{err: denied}
		called := false

		fn := Chain(func(context.Context) (int, error) {
			called = true
			return 1, nil
		}, WithRateLimit[int](acq))

		_, err := fn(context.Background())
		assert.ErrorIs(t, err, denied)
		assert.False(t, called)
	})

	t.Run("failed call keeps its token spent", func(t *testing.T) {
		tb, err := bucket.NewWithConfig(bucket.Config{Rate: 1, Capacity: 2, InitialTokens: -1})
		require.NoError(t, err)

		fn := Chain(failing[int](errors.New("fail")), WithRateLimit[int](tb))
		_, err = fn(context.Background())
		require.Error(t, err)

		assert.InDelta(t, 1.0, tb.Tokens(), 0.1)
	})

	t.Run("cancelled context", func(t *testing.T) {
		tb, err := bucket.NewWithConfig(bucket.Config{Rate: 0.1, Capacity: 1, InitialTokens: 0})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err = Chain(constant(1), WithRateLimit[int](tb))(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestWithTimeout(t *testing.T) {
	slow := func(ctx context.Context) (int, error) {
		select {
		case <-time.After(time.Second):
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	start := time.Now()
	_, err := Chain(slow, WithTimeout[int](20*time.Millisecond))(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, perrors.ErrTimeout)
	assert.True(t, perrors.IsRetryable(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	v, err := Chain(constant(2), WithTimeout[int](time.Second))(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// The caller's own deadline is passed through untouched.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = Chain(slow, WithTimeout[int](time.Second))(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, perrors.ErrTimeout)
}

func TestWithConcurrencyLimit(t *testing.T) {
	limiter, err := concurrency.New(2)
	require.NoError(t, err)

	var current, peak atomic.Int32
	fn := Chain(func(context.Context) (int, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return 0, nil
	}, WithConcurrencyLimit[int](limiter))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fn(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 0, limiter.InUse())
}
