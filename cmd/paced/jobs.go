package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vnykmshr/pace/pkg/config"
	"github.com/vnykmshr/pace/pkg/decorate"
	"github.com/vnykmshr/pace/pkg/scheduling/scheduler"
)

// buildJob composes a configured job. From the outside in: logging,
// metrics, timeout, concurrency group, retry, rate limit, then the job
// body. Each retry attempt takes its own permit; the group slot is held
// across all attempts.
func (s *Service) buildJob(jc config.JobConfig) (scheduler.Job, error) {
	message := jc.Message
	if message == "" {
		message = "job run"
	}
	jobLogger := s.logger.With(zap.String("job", jc.Name))

	body := decorate.Action(func(context.Context) error {
		jobLogger.Info(message)
		return nil
	})

	decorators := []decorate.Decorator[struct{}]{
		decorate.WithLogging[struct{}](s.logger, jc.Name),
	}
	if s.cfg.Metrics.Enabled {
		decorators = append(decorators, decorate.WithMetrics[struct{}](s.registry, jc.Name))
	}
	if jc.Timeout > 0 {
		decorators = append(decorators, decorate.WithTimeout[struct{}](jc.Timeout.Std()))
	}

	if jc.Group != "" {
		group, ok := s.limiters.Group(jc.Group)
		if !ok {
			return nil, fmt.Errorf("unknown group %q", jc.Group)
		}
		decorators = append(decorators, decorate.WithConcurrencyLimit[struct{}](group))
	}

	policy := decorate.RetryPolicy{
		Attempts: jc.Retry.Attempts,
		Delay:    jc.Retry.Delay.Std(),
	}
	if s.cfg.Metrics.Enabled {
		decorators = append(decorators, decorate.RetryWithMetrics[struct{}](policy, s.registry, jc.Name))
	} else {
		decorators = append(decorators, decorate.Retry[struct{}](policy))
	}

	if jc.Limiter != "" {
		limiter, ok := s.limiters.Get(jc.Limiter)
		if !ok {
			return nil, fmt.Errorf("unknown limiter %q", jc.Limiter)
		}
		decorators = append(decorators, decorate.WithRateLimit[struct{}](limiter))
	}

	return decorate.Chain(body, decorators...), nil
}
