package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/pace/pkg/common/errors"
	"github.com/vnykmshr/pace/pkg/common/validation"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result describes one finished task.
type Result struct {
	Task     Task
	Error    error
	Duration time.Duration
	WorkerID int
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the number of tasks that can wait for a free worker.
	// Zero means a submit blocks until a worker takes the task.
	QueueSize int

	// TaskTimeout bounds the execution of every task. Zero means no bound.
	TaskTimeout time.Duration

	// OnTaskComplete is called by the worker after each task, including
	// tasks that panicked.
	OnTaskComplete func(Result)
}

// Pool runs submitted tasks on a fixed set of workers.
type Pool struct {
	config Config
	queue  chan taskWithContext

	mu         sync.RWMutex
	isShutdown bool

	shutdownOnce sync.Once
	done         chan struct{}
	workerWg     sync.WaitGroup

	active    atomic.Int32
	submitted atomic.Int64
	completed atomic.Int64
}

type taskWithContext struct {
	task Task
	ctx  context.Context
}

// New creates a pool with the given number of workers and queue size.
func New(workerCount, queueSize int) (*Pool, error) {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a pool and starts its workers.
func NewWithConfig(config Config) (*Pool, error) {
	if err := validation.ValidatePositive("workerpool", "worker_count", config.WorkerCount); err != nil {
		return nil, err
	}
	if config.QueueSize < 0 {
		return nil, errors.NewValidationError("workerpool", "queue_size", config.QueueSize, "must be non-negative")
	}
	if err := validation.ValidateNonNegativeDuration("workerpool", "task_timeout", config.TaskTimeout); err != nil {
		return nil, err
	}

	p := &Pool{
		config: config,
		queue:  make(chan taskWithContext, config.QueueSize),
		done:   make(chan struct{}),
	}

	for id := range config.WorkerCount {
		p.workerWg.Add(1)
		go p.work(id)
	}

	return p, nil
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the number of tasks waiting for a worker.
func (p *Pool) QueueSize() int {
	return len(p.queue)
}

// ActiveWorkers returns the number of workers currently executing a task.
func (p *Pool) ActiveWorkers() int {
	return int(p.active.Load())
}

// TotalSubmitted returns the number of tasks accepted by the pool.
func (p *Pool) TotalSubmitted() int64 {
	return p.submitted.Load()
}

// TotalCompleted returns the number of tasks that finished, successfully or not.
func (p *Pool) TotalCompleted() int64 {
	return p.completed.Load()
}
