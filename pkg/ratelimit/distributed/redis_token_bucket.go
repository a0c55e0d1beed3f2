package distributed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBucket is a token bucket whose state lives in Redis.
type TokenBucket struct {
	config Config
	keys   redisKeys

	// gate serializes waiting callers within this process.
	gate chan struct{}

	// Lua script for atomic refill-and-take
	takeScript *redis.Script
}

// reservation is the outcome of one take attempt.
type reservation struct {
	granted bool
	wait    time.Duration
}

// New creates a Redis-backed token bucket and registers this instance.
// A registration failure is returned only when no fallback is configured.
func New(config Config) (*TokenBucket, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	config = applyConfigDefaults(config)

	rtb := &TokenBucket{
		config:     config,
		keys:       keysFor(config.Key),
		gate:       make(chan struct{}, 1),
		takeScript: redis.NewScript(luaTake),
	}

	if err := rtb.register(context.Background()); err != nil && config.Fallback == nil {
		return nil, fmt.Errorf("failed to register instance: %w", err)
	}

	return rtb, nil
}

// register adds this instance to the active instances set.
func (rtb *TokenBucket) register(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, rtb.config.RedisTimeout)
	defer cancel()

	pipe := rtb.config.Redis.Pipeline()
	pipe.SAdd(ctx, rtb.keys.instances, rtb.config.InstanceID)
	pipe.Expire(ctx, rtb.keys.instances, rtb.config.KeyTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return &RedisError{"register", err}
	}
	return nil
}

// Acquire blocks until a token is available in the shared bucket.
func (rtb *TokenBucket) Acquire(ctx context.Context) error {
	select {
	case rtb.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-rtb.gate }()

	for {
		r, err := rtb.take(ctx)
		if err != nil {
			if rtb.config.Fallback != nil {
				return rtb.config.Fallback.Acquire(ctx)
			}
			return err
		}
		if r.granted {
			return nil
		}

		select {
		case <-rtb.config.Clock.After(r.wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TryAcquire consumes a token if one is available right now.
func (rtb *TokenBucket) TryAcquire(ctx context.Context) (bool, error) {
	r, err := rtb.take(ctx)
	if err != nil {
		if rtb.config.Fallback != nil {
			return rtb.config.Fallback.TryAcquire(), nil
		}
		return false, err
	}
	return r.granted, nil
}

// take runs one atomic refill-and-take in Redis.
func (rtb *TokenBucket) take(ctx context.Context) (reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, rtb.config.RedisTimeout)
	defer cancel()

	result, err := rtb.takeScript.Run(ctx, rtb.config.Redis,
		[]string{rtb.keys.state, rtb.keys.stats},
		rtb.config.Rate,
		rtb.config.Capacity,
		rtb.config.KeyTTL.Milliseconds(),
	).Slice()
	if err != nil {
		return reservation{}, &RedisError{"take", err}
	}

	// Parse Lua script result: [granted, tokens_after, wait_seconds]
	if len(result) != 3 {
		return reservation{}, &RedisError{"take", fmt.Errorf("unexpected script result %v", result)}
	}

	granted, _ := result[0].(int64)
	wait, err := parseFloat(result[2])
	if err != nil {
		return reservation{}, &RedisError{"take", err}
	}

	return reservation{
		granted: granted == 1,
		wait:    secondsToDuration(wait),
	}, nil
}

// Stats returns current limiter statistics.
func (rtb *TokenBucket) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, rtb.config.RedisTimeout)
	defer cancel()

	pipe := rtb.config.Redis.Pipeline()
	stateCmd := pipe.HMGet(ctx, rtb.keys.state, "tokens", "last")
	statsCmd := pipe.HGetAll(ctx, rtb.keys.stats)
	instancesCmd := pipe.SMembers(ctx, rtb.keys.instances)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, &RedisError{"stats", err}
	}

	state := stateCmd.Val()
	tokens := rtb.config.Capacity
	var lastRefill time.Time
	if len(state) == 2 {
		if v, err := parseFloat(state[0]); err == nil {
			tokens = v
		}
		if v, err := parseFloat(state[1]); err == nil {
			lastRefill = floatToTime(v)
		}
	}

	counters := statsCmd.Val()
	granted, _ := strconv.ParseInt(counters["granted"], 10, 64)
	deferred, _ := strconv.ParseInt(counters["deferred"], 10, 64)

	return &Stats{
		Rate:            rtb.config.Rate,
		Capacity:        rtb.config.Capacity,
		Tokens:          tokens,
		LastRefill:      lastRefill,
		Granted:         granted,
		Deferred:        deferred,
		ActiveInstances: instancesCmd.Val(),
	}, nil
}

// Reset clears the shared bucket state and re-registers this instance.
func (rtb *TokenBucket) Reset(ctx context.Context) error {
	resetCtx, cancel := context.WithTimeout(ctx, rtb.config.RedisTimeout)
	defer cancel()

	err := rtb.config.Redis.Del(resetCtx, rtb.keys.state, rtb.keys.stats, rtb.keys.instances).Err()
	if err != nil {
		return &RedisError{"reset", err}
	}

	return rtb.register(ctx)
}

// Close removes this instance from the active instances set.
func (rtb *TokenBucket) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), rtb.config.RedisTimeout)
	defer cancel()

	if err := rtb.config.Redis.SRem(ctx, rtb.keys.instances, rtb.config.InstanceID).Err(); err != nil {
		return &RedisError{"close", err}
	}
	return nil
}

func parseFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(x, 64)
	case int64:
		return float64(x), nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// luaTake refills the bucket from the Redis server clock and takes one token
// when available. The last refill time never moves backwards.
const luaTake = `
-- KEYS[1]: state hash (tokens, last)
-- KEYS[2]: stats hash (granted, deferred)
-- ARGV[1]: refill rate (tokens per second)
-- ARGV[2]: capacity
-- ARGV[3]: key ttl in milliseconds

local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
local ceiling = math.max(capacity, 1)

local t = redis.call('TIME')
local now = tonumber(t[1]) + tonumber(t[2]) / 1000000

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last')
local tokens = tonumber(state[1]) or capacity
local last = tonumber(state[2]) or now

if now > last then
    tokens = math.min(ceiling, tokens + (now - last) * rate)
    last = now
end

local granted = 0
local wait = 0
if tokens >= 1 then
    tokens = tokens - 1
    granted = 1
    redis.call('HINCRBY', KEYS[2], 'granted', 1)
else
    wait = (1 - tokens) / rate
    redis.call('HINCRBY', KEYS[2], 'deferred', 1)
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'last', tostring(last))
redis.call('PEXPIRE', KEYS[1], ttl)
redis.call('PEXPIRE', KEYS[2], ttl)

return {granted, tostring(tokens), tostring(wait)}
`
