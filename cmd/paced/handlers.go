package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	perrors "github.com/vnykmshr/pace/pkg/common/errors"
	"github.com/vnykmshr/pace/pkg/ratelimit/bucket"
)

const defaultAcquireWait = time.Second

func (s *Service) routes(mux *http.ServeMux, gatherer *prometheus.Registry) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /limiters", s.handleLimiters)
	mux.HandleFunc("POST /limiters/{name}/acquire", s.handleAcquire)
	mux.HandleFunc("GET /groups", s.handleGroups)

	if s.cfg.Metrics.Enabled {
		mux.Handle("GET "+s.cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			Registry: gatherer,
		}))
	}
}

type limiterStatus struct {
	Name     string   `json:"name"`
	Tokens   *float64 `json:"tokens,omitempty"`
	Capacity *float64 `json:"capacity,omitempty"`
	Rate     *float64 `json:"rate,omitempty"`
}

type groupStatus struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	InUse    int    `json:"in_use"`
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"jobs":      len(s.scheduler.Entries()),
		"limiters":  len(s.limiters.Names()),
	})
}

// handleLimiters reports the names of all limiters and, for in-process
// ones, their current state.
func (s *Service) handleLimiters(w http.ResponseWriter, _ *http.Request) {
	statuses := make([]limiterStatus, 0, len(s.limiters.Names()))
	for _, name := range s.limiters.Names() {
		status := limiterStatus{Name: name}
		acq, _ := s.limiters.Get(name)
		if l, ok := acq.(bucket.Limiter); ok {
			tokens, capacity, rate := l.Tokens(), l.Capacity(), l.Rate()
			status.Tokens, status.Capacity, status.Rate = &tokens, &capacity, &rate
		}
		statuses = append(statuses, status)
	}
	writeJSON(w, http.StatusOK, statuses)
}

// handleGroups reports how many slots of each concurrency group are held.
func (s *Service) handleGroups(w http.ResponseWriter, _ *http.Request) {
	names := s.limiters.GroupNames()
	statuses := make([]groupStatus, 0, len(names))
	for _, name := range names {
		g, _ := s.limiters.Group(name)
		statuses = append(statuses, groupStatus{Name: name, Capacity: g.Capacity(), InUse: g.InUse()})
	}
	writeJSON(w, http.StatusOK, statuses)
}

// handleAcquire takes one permit from the named limiter, waiting at most
// the duration given by the "wait" query parameter.
func (s *Service) handleAcquire(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	limiter, ok := s.limiters.Get(name)
	if !ok {
		http.Error(w, "unknown limiter", http.StatusNotFound)
		return
	}

	wait := defaultAcquireWait
	if v := r.URL.Query().Get("wait"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			http.Error(w, "invalid wait duration", http.StatusBadRequest)
			return
		}
		wait = d
	}

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	start := time.Now()
	if err := limiter.Acquire(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || perrors.IsRetryable(err) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		s.logger.Warn("acquire failed", zap.String("limiter", name), zap.Error(err))
		http.Error(w, "limiter unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"limiter": name,
		"waited":  time.Since(start).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
