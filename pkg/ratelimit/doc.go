/*
Package ratelimit provides token bucket pacing primitives for Go applications.

  - bucket: in-process token bucket with a blocking Acquire that serializes
    waiting callers
  - distributed: the same Acquire contract backed by Redis, for limits shared
    by several processes
  - xrate: golang.org/x/time/rate exposed through the Acquire contract
  - concurrency: a FIFO semaphore bounding calls in flight rather than their
    rate

Every limiter satisfies decorate.Acquirer, so any of them can pace a call:

	limiter, _ := bucket.New(2) // 2 calls per second, burst of 2
	call := decorate.Chain(fetch, decorate.WithRateLimit[string](limiter))

A bucket holds at most Capacity tokens and refills at Rate tokens per
second. Acquire consumes one token, sleeping for (1 - tokens) / Rate when the
bucket is empty. All limiters are safe for concurrent use and honor context
cancellation while waiting.
*/
package ratelimit
