// Package distributed provides a token bucket shared by several processes,
// using Redis as the coordination backend.
//
// Refill and consumption run atomically inside a Lua script that reads the
// Redis server clock, so every instance sees the same bucket regardless of
// local clock skew. Waiting happens in the caller's process: when the script
// reports a deficit, Acquire sleeps for the returned delay and asks again.
// Within one process waiting callers are serialized, as with bucket.TokenBucket.
//
// # Quick Start
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//
//	limiter, err := distributed.New(distributed.Config{
//		Redis:      rdb,
//		Key:        "api_limiter",
//		Rate:       100, // 100 calls per second across all instances
//		InstanceID: "server-1",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer limiter.Close()
//
//	if err := limiter.Acquire(ctx); err != nil {
//		return err
//	}
//
// # Fallback
//
// When Config.Fallback is set, Redis failures are absorbed by that local
// limiter instead of being returned to the caller:
//
//	local, _ := bucket.New(10)
//	config.Fallback = local
//
// # Keys
//
// For a Config.Key of "api" the limiter uses "api:state" (tokens and last
// refill), "api:stats" (granted and deferred counters) and "api:instances"
// (registered instance IDs). All keys expire after Config.KeyTTL of inactivity.
package distributed
