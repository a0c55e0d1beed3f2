package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/vnykmshr/pace/pkg/config"
	"github.com/vnykmshr/pace/pkg/metrics"
	"github.com/vnykmshr/pace/pkg/scheduling/scheduler"
)

// Service wires limiters, scheduled jobs and the HTTP endpoint together.
type Service struct {
	cfg       *config.Config
	logger    *zap.Logger
	registry  *metrics.Registry
	limiters  *config.Limiters
	scheduler *scheduler.Scheduler
	server    *http.Server
}

// NewService builds every component described by cfg. Nothing runs until Run.
func NewService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	registry := metrics.NewRegistryFromConfig(metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Registry:  promRegistry,
		Namespace: cfg.Metrics.Namespace,
		Labels:    cfg.Metrics.Labels,
	})

	var limiterMetrics *metrics.Registry
	if cfg.Metrics.Enabled {
		limiterMetrics = registry
	}
	limiters, err := config.BuildLimiters(cfg, limiterMetrics)
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New(scheduler.Config{
		Workers:      cfg.Scheduler.Workers,
		TickInterval: cfg.Scheduler.TickInterval.Std(),
		Logger:       logger,
		Metrics:      limiterMetrics,
	})
	if err != nil {
		_ = limiters.Close()
		return nil, err
	}

	svc := &Service{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		limiters:  limiters,
		scheduler: sched,
	}

	for _, jc := range cfg.Jobs {
		job, err := svc.buildJob(jc)
		if err == nil {
			err = sched.Add(jc.Name, jc.Schedule, job)
		}
		if err != nil {
			_ = limiters.Close()
			return nil, fmt.Errorf("job %q: %w", jc.Name, err)
		}
	}

	mux := http.NewServeMux()
	svc.routes(mux, promRegistry)
	svc.server = &http.Server{
		Addr:         cfg.Metrics.Listen,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return svc, nil
}

// Run starts the scheduler and the HTTP server, then blocks until ctx is
// done and shuts everything down.
func (s *Service) Run(ctx context.Context) error {
	if err := s.scheduler.Start(); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	if err := s.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops the HTTP server and the scheduler within the configured
// shutdown timeout and releases the limiters.
func (s *Service) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Std())
	defer cancel()

	var errs []error
	if err := s.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	if err := s.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
	}
	if err := s.limiters.Close(); err != nil {
		s.logger.Warn("failed to release limiters", zap.Error(err))
	}

	s.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
