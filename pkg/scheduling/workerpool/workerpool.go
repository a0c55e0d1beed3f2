package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/vnykmshr/pace/pkg/common/errors"
)

// Submit queues task, blocking until there is room. The context bounds the
// wait for room and is then passed to the task's Execute method.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isShutdown {
		return fmt.Errorf("cannot submit task: %w", errors.ErrClosed)
	}

	// A context that is already done never queues, even when there is room.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cannot submit task: %w", err)
	}

	select {
	case p.queue <- taskWithContext{task: task, ctx: ctx}:
		p.submitted.Add(1)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cannot submit task: %w", ctx.Err())
	}
}

// TrySubmit queues task only if a slot or an idle worker is available
// right away, and reports whether it did.
func (p *Pool) TrySubmit(ctx context.Context, task Task) bool {
	if task == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isShutdown {
		return false
	}

	select {
	case p.queue <- taskWithContext{task: task, ctx: ctx}:
		p.submitted.Add(1)
		return true
	default:
		return false
	}
}

// Shutdown stops accepting tasks. Queued tasks still run. The returned
// channel closes once every worker has exited.
func (p *Pool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		close(p.queue)
		p.mu.Unlock()

		go func() {
			p.workerWg.Wait()
			close(p.done)
		}()
	})

	return p.done
}

func (p *Pool) work(id int) {
	defer p.workerWg.Done()

	for twc := range p.queue {
		p.execute(id, twc)
	}
}

func (p *Pool) execute(workerID int, twc taskWithContext) {
	p.active.Add(1)
	start := time.Now()
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
		}
		p.active.Add(-1)
		p.completed.Add(1)

		if p.config.OnTaskComplete != nil {
			p.config.OnTaskComplete(Result{
				Task:     twc.task,
				Error:    err,
				Duration: time.Since(start),
				WorkerID: workerID,
			})
		}
	}()

	ctx := twc.ctx
	if p.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer cancel()
	}

	err = twc.task.Execute(ctx)
}
