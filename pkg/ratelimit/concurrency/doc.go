/*
Package concurrency limits how many operations run at once.

Where a token bucket bounds how often calls start, a concurrency limiter
bounds how many are in flight, which protects resources such as connection
pools whose cost is held for the duration of a call.

Basic usage:

	limiter, err := concurrency.New(10) // at most 10 at once
	if err != nil {
		log.Fatal(err)
	}

	if err := limiter.Acquire(ctx); err != nil {
		return err
	}
	defer limiter.Release()

Blocked callers are admitted in arrival order. A caller whose context ends
while it waits never ends up holding a permit, even when a permit was
handed to it at the same moment. TryAcquire does not jump the queue.

Both limits compose as decorators:

	call := decorate.Chain(query,
		decorate.WithRateLimit[Rows](rateLimiter),
		decorate.WithConcurrencyLimit[Rows](limiter),
	)
*/
package concurrency
