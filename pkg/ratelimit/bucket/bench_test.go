package bucket

import (
	"context"
	"testing"
)

// mustNew creates a new limiter or panics on error (for benchmarks only)
func mustNew(rate float64) *TokenBucket {
	limiter, err := New(rate)
	if err != nil {
		panic(err)
	}
	return limiter
}

// BenchmarkTryAcquire measures the non-blocking path under contention.
func BenchmarkTryAcquire(b *testing.B) {
	limiter := mustNew(1e9) // High rate to avoid running dry

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			limiter.TryAcquire()
		}
	})
}

// BenchmarkAcquire measures Acquire calls that succeed immediately.
func BenchmarkAcquire(b *testing.B) {
	limiter := mustNew(1e9)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = limiter.Acquire(ctx)
		}
	})
}

// BenchmarkTokens measures state inspection cost.
func BenchmarkTokens(b *testing.B) {
	limiter := mustNew(100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Tokens()
	}
}
