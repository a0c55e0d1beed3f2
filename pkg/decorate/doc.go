/*
Package decorate wraps calls with cross-cutting behavior without touching the
wrapped code: logging, timing, metrics, authorization, retry, memoization and
rate limiting.

A call is a Func: a function of a context returning a value and an error.
Arguments are captured by the closure, so one signature fits every arity:

	fetch := decorate.Func[*User](func(ctx context.Context) (*User, error) {
		return client.GetUser(ctx, id)
	})

Decorators compose with Chain; the first decorator is the outermost:

	limiter, _ := bucket.New(2)
	call := decorate.Chain(fetch,
		decorate.WithLogging[*User](logger, "get_user"),
		decorate.Retry[*User](decorate.RetryPolicy{Attempts: 3, Delay: time.Second}),
		decorate.WithRateLimit[*User](limiter),
	)
	user, err := call(ctx)

Here every retry attempt takes its own permit, and the log line covers all
attempts. Authorization reads the caller from the context passed to the call
(see WithPrincipal), never from package state.
*/
package decorate
