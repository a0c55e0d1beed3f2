package config

import (
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/pace/pkg/decorate"
	"github.com/vnykmshr/pace/pkg/metrics"
	"github.com/vnykmshr/pace/pkg/ratelimit/bucket"
	"github.com/vnykmshr/pace/pkg/ratelimit/concurrency"
	"github.com/vnykmshr/pace/pkg/ratelimit/distributed"
	"github.com/vnykmshr/pace/pkg/ratelimit/xrate"
)

// Limiters holds the limiters and concurrency groups built from a
// configuration, by name.
type Limiters struct {
	byName      map[string]decorate.Acquirer
	groups      map[string]*concurrency.Limiter
	redis       *redis.Client
	distributed []*distributed.TokenBucket
}

// BuildLimiters constructs every configured limiter. A Redis client is
// opened only when some limiter uses the redis backend. When reg is not
// nil, local and xrate limiters record their metrics into it.
func BuildLimiters(cfg *Config, reg *metrics.Registry) (*Limiters, error) {
	ls := &Limiters{
		byName: make(map[string]decorate.Acquirer, len(cfg.Limiters)),
		groups: make(map[string]*concurrency.Limiter, len(cfg.Groups)),
	}

	for _, lc := range cfg.Limiters {
		acq, err := ls.build(cfg, lc, reg)
		if err != nil {
			_ = ls.Close()
			return nil, fmt.Errorf("limiter %q: %w", lc.Name, err)
		}
		ls.byName[lc.Name] = acq
	}

	for _, gc := range cfg.Groups {
		g, err := concurrency.New(gc.MaxConcurrent)
		if err != nil {
			_ = ls.Close()
			return nil, fmt.Errorf("group %q: %w", gc.Name, err)
		}
		ls.groups[gc.Name] = g
	}

	return ls, nil
}

func (ls *Limiters) build(cfg *Config, lc LimiterConfig, reg *metrics.Registry) (decorate.Acquirer, error) {
	switch lc.Backend {
	case BackendXRate:
		l, err := xrate.New(lc.Rate, int(lc.Capacity))
		if err != nil {
			return nil, err
		}
		return instrument(l, lc.Name, reg), nil

	case BackendRedis:
		var fallback bucket.Limiter
		if lc.Fallback {
			fb, err := localBucket(lc)
			if err != nil {
				return nil, err
			}
			fallback = fb
		}
		l, err := distributed.New(distributed.Config{
			Redis:        ls.client(cfg.Redis),
			Key:          lc.Key,
			Rate:         lc.Rate,
			Capacity:     lc.Capacity,
			Fallback:     fallback,
			RedisTimeout: cfg.Redis.Timeout.Std(),
		})
		if err != nil {
			return nil, err
		}
		ls.distributed = append(ls.distributed, l)
		return l, nil

	default:
		l, err := localBucket(lc)
		if err != nil {
			return nil, err
		}
		return instrument(l, lc.Name, reg), nil
	}
}

func localBucket(lc LimiterConfig) (*bucket.TokenBucket, error) {
	return bucket.NewWithConfig(bucket.Config{
		Rate:          lc.Rate,
		Capacity:      lc.Capacity,
		InitialTokens: -1,
	})
}

func instrument(l bucket.Limiter, name string, reg *metrics.Registry) decorate.Acquirer {
	if reg == nil {
		return l
	}
	return bucket.InstrumentWith(l, name, reg)
}

func (ls *Limiters) client(rc RedisConfig) *redis.Client {
	if ls.redis == nil {
		ls.redis = redis.NewClient(&redis.Options{
			Addr:         rc.Addr,
			Password:     rc.Password,
			DB:           rc.DB,
			DialTimeout:  rc.Timeout.Std(),
			ReadTimeout:  rc.Timeout.Std(),
			WriteTimeout: rc.Timeout.Std(),
		})
	}
	return ls.redis
}

// Get returns the named limiter.
func (ls *Limiters) Get(name string) (decorate.Acquirer, bool) {
	acq, ok := ls.byName[name]
	return acq, ok
}

// Names returns the limiter names in sorted order.
func (ls *Limiters) Names() []string {
	names := make([]string, 0, len(ls.byName))
	for name := range ls.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Group returns the named concurrency group.
func (ls *Limiters) Group(name string) (*concurrency.Limiter, bool) {
	g, ok := ls.groups[name]
	return g, ok
}

// GroupNames returns the group names in sorted order.
func (ls *Limiters) GroupNames() []string {
	names := make([]string, 0, len(ls.groups))
	for name := range ls.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close deregisters redis limiters and closes the Redis client.
func (ls *Limiters) Close() error {
	var errs []error
	for _, l := range ls.distributed {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if ls.redis != nil {
		if err := ls.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
