package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	perrors "github.com/vnykmshr/pace/pkg/common/errors"
	"github.com/vnykmshr/pace/pkg/metrics"
	"github.com/vnykmshr/pace/pkg/scheduling/workerpool"
)

const outcomeSkipped = "skipped"

// runState lives from Start to Stop.
type runState struct {
	ctx     context.Context
	cancel  context.CancelFunc
	pool    *workerpool.Pool
	ownPool bool
	wg      sync.WaitGroup
}

// Start begins dispatching due jobs. Jobs run with a context that is
// cancelled when Stop gives up waiting for them.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return perrors.NewOperationError("scheduler", "Start", perrors.ErrAlreadyRunning).
			WithContext("call Stop first")
	}

	pool, ownPool := s.pool, false
	if pool == nil {
		p, err := workerpool.New(s.workers, s.workers)
		if err != nil {
			return err
		}
		pool, ownPool = p, true
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.run = &runState{ctx: ctx, cancel: cancel, pool: pool, ownPool: ownPool}
	s.done = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.running = true

	go s.loop(s.done, s.loopDone, s.run)

	s.logger.Info("scheduler started", zap.Int("jobs", len(s.entries)))
	return nil
}

// Stop stops dispatching and waits for running jobs to finish. If ctx ends
// first, the jobs' context is cancelled and ctx's error is returned.
// Stopping a scheduler that is not running is a no-op.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.done)
	loopDone, run := s.loopDone, s.run
	s.mu.Unlock()

	<-loopDone

	finished := make(chan struct{})
	go func() {
		run.wg.Wait()
		if run.ownPool {
			<-run.pool.Shutdown()
		}
		close(finished)
	}()

	var err error
	select {
	case <-finished:
	case <-ctx.Done():
		err = ctx.Err()
		s.logger.Warn("stop deadline reached with jobs still running", zap.Error(err))
	}
	run.cancel()

	s.logger.Info("scheduler stopped")
	return err
}

func (s *Scheduler) loop(done <-chan struct{}, loopDone chan<- struct{}, run *runState) {
	defer close(loopDone)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			s.dispatchDue(now, run)
		}
	}
}

func (s *Scheduler) dispatchDue(now time.Time, run *runState) {
	var due, overlapping []*entry

	s.mu.Lock()
	for _, e := range s.entries {
		if now.Before(e.next) {
			continue
		}
		e.next = e.schedule.Next(now.In(s.location))
		if e.running {
			e.skipped++
			overlapping = append(overlapping, e)
			continue
		}
		e.running = true
		e.prev = now
		due = append(due, e)
	}
	s.mu.Unlock()

	for _, e := range overlapping {
		s.logger.Info("job still running, skipping run", zap.String("job", e.name))
		s.record(e.name, outcomeSkipped)
	}

	for _, e := range due {
		run.wg.Add(1)
		if run.pool.TrySubmit(run.ctx, s.task(e, run)) {
			continue
		}
		run.wg.Done()

		s.mu.Lock()
		e.running = false
		e.skipped++
		s.mu.Unlock()

		s.logger.Warn("no free worker, skipping run", zap.String("job", e.name))
		s.record(e.name, outcomeSkipped)
	}
}

func (s *Scheduler) task(e *entry, run *runState) workerpool.Task {
	return workerpool.TaskFunc(func(ctx context.Context) (err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				err = perrors.NewOperationError("scheduler", "run", fmt.Errorf("panic: %v", r)).
					WithContext("job " + e.name)
			}

			s.mu.Lock()
			e.running = false
			e.runs++
			s.mu.Unlock()

			elapsed := time.Since(start)
			if err != nil {
				s.logger.Warn("job failed", zap.String("job", e.name), zap.Duration("elapsed", elapsed), zap.Error(err))
			} else {
				s.logger.Debug("job finished", zap.String("job", e.name), zap.Duration("elapsed", elapsed))
			}
			s.record(e.name, metrics.Outcome(err))
			run.wg.Done()
		}()

		_, err = e.job(ctx)
		return err
	})
}

func (s *Scheduler) record(job, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.JobRuns.WithLabelValues(job, outcome).Inc()
}
