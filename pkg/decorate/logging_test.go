package decorate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vnykmshr/pace/pkg/metrics"
)

func TestWithLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	ok := Chain(constant(3), WithLogging[int](logger, "add"))
	v, err := ok(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	bad := Chain(failing[int](errors.New("overflow")), WithLogging[int](logger, "mul"))
	_, err = bad(context.Background())
	require.Error(t, err)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	assert.Equal(t, "call started", entries[0].Message)
	assert.Equal(t, "call finished", entries[1].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "add", entries[1].ContextMap()["call"])

	assert.Equal(t, "call failed", entries[3].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
	assert.Equal(t, "mul", entries[3].ContextMap()["call"])
	assert.Equal(t, "overflow", entries[3].ContextMap()["error"])
}

func TestWithLoggingNilLogger(t *testing.T) {
	v, err := Chain(constant("x"), WithLogging[string](nil, "nop"))(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestWithTiming(t *testing.T) {
	var (
		gotName    string
		gotElapsed time.Duration
		gotErr     error
	)
	observe := func(name string, elapsed time.Duration, err error) {
		gotName, gotElapsed, gotErr = name, elapsed, err
	}

	slow := func(context.Context) (int, error) {
		time.Sleep(20 * time.Millisecond)
		return 0, errors.New("late")
	}

	_, err := Chain(slow, WithTiming[int]("slow", observe))(context.Background())
	require.Error(t, err)

	assert.Equal(t, "slow", gotName)
	assert.GreaterOrEqual(t, gotElapsed, 20*time.Millisecond)
	assert.EqualError(t, gotErr, "late")
}

func TestWithMetrics(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())

	ok := Chain(constant(1), WithMetrics[int](reg, "lookup"))
	bad := Chain(failing[int](errors.New("miss")), WithMetrics[int](reg, "lookup"))

	for range 3 {
		_, _ = ok(context.Background())
	}
	_, _ = bad(context.Background())

	assert.Equal(t, 3.0, promtest.ToFloat64(reg.CallsTotal.WithLabelValues("lookup", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(reg.CallsTotal.WithLabelValues("lookup", "error")))
	assert.Equal(t, 1, promtest.CollectAndCount(reg.CallDuration, "pace_call_duration_seconds"))
}
