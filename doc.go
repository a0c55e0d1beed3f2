/*
Package pace paces calls to rate-limited operations.

Rate limiting (pkg/ratelimit):
  - bucket: in-process token bucket with burst capacity
  - distributed: token bucket shared by several processes through Redis
  - xrate: golang.org/x/time/rate behind the same Acquire contract
  - concurrency: bound the number of calls in flight

Call decoration (pkg/decorate):
  - logging, timing, metrics, authorization, retry, timeout and memoization
    wrappers that compose around any func(ctx) (T, error)

Scheduling (pkg/scheduling):
  - workerpool: fixed-size pool with a bounded queue
  - scheduler: cron and interval jobs dispatched to a worker pool

Example usage:

	import (
		"github.com/vnykmshr/pace/pkg/decorate"
		"github.com/vnykmshr/pace/pkg/ratelimit/bucket"
	)

	limiter, _ := bucket.New(2) // 2 calls per second, burst of 2
	fetch := decorate.Chain(fetchPage,
		decorate.WithRateLimit[string](limiter),
	)
	page, err := fetch(ctx)

The paced command (cmd/paced) runs limiters and scheduled jobs described by a
YAML file and exposes them over HTTP.
*/
package pace
