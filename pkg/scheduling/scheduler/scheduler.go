package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vnykmshr/pace/pkg/common/errors"
	"github.com/vnykmshr/pace/pkg/common/validation"
	"github.com/vnykmshr/pace/pkg/decorate"
	"github.com/vnykmshr/pace/pkg/metrics"
	"github.com/vnykmshr/pace/pkg/scheduling/workerpool"
)

// Job is the work run on each tick of a schedule. Rate limiting, retry and
// logging are composed onto it with the decorate package.
type Job = decorate.Func[struct{}]

// Entry describes a scheduled job.
type Entry struct {
	Name    string
	Spec    string // empty for jobs added with AddEvery or AddSchedule
	Next    time.Time
	Prev    time.Time
	Running bool
	Runs    int64
	Skipped int64
}

// Config holds scheduler configuration.
type Config struct {
	// Pool runs the jobs. If nil, Start creates a pool of Workers workers
	// and Stop shuts it down.
	Pool    *workerpool.Pool
	Workers int // default: 4

	Location     *time.Location // For cron schedules (default: time.Local)
	TickInterval time.Duration  // How often to look for due jobs (default: 50ms)
	MaxJobs      int            // default: 1000

	Logger  *zap.Logger
	Metrics *metrics.Registry // nil disables job metrics
}

// Scheduler runs named jobs on cron schedules or fixed intervals. A job
// whose previous run is still going when it comes due again is skipped.
type Scheduler struct {
	pool         *workerpool.Pool // shared pool, nil when the scheduler owns one
	workers      int
	location     *time.Location
	tickInterval time.Duration
	maxJobs      int
	parser       cron.Parser
	logger       *zap.Logger
	metrics      *metrics.Registry

	mu       sync.Mutex
	entries  map[string]*entry
	running  bool
	done     chan struct{}
	loopDone chan struct{}
	run      *runState
}

type entry struct {
	name     string
	spec     string
	schedule cron.Schedule
	job      Job
	next     time.Time
	prev     time.Time
	running  bool
	runs     int64
	skipped  int64
}

// New creates a scheduler. Call Start to begin running jobs.
func New(cfg Config) (*Scheduler, error) {
	if err := validation.ValidateNonNegativeDuration("scheduler", "tick_interval", cfg.TickInterval); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = 4
	}
	if cfg.Pool == nil {
		if err := validation.ValidatePositive("scheduler", "workers", workers); err != nil {
			return nil, err
		}
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	tickInterval := cfg.TickInterval
	if tickInterval == 0 {
		tickInterval = 50 * time.Millisecond
	}

	maxJobs := cfg.MaxJobs
	if maxJobs <= 0 {
		maxJobs = 1000
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		pool:         cfg.Pool,
		workers:      workers,
		location:     location,
		tickInterval: tickInterval,
		maxJobs:      maxJobs,
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
			cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:  logger.Named("scheduler"),
		metrics: cfg.Metrics,
		entries: make(map[string]*entry),
	}, nil
}

// Add schedules job under name using a cron expression. Five fields are
// minute-based, six fields add a leading seconds field, and descriptors
// such as "@hourly" or "@every 10s" are accepted.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if err := validation.ValidateNotEmpty("scheduler", "schedule", spec); err != nil {
		return err
	}
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return errors.NewValidationError("scheduler", "schedule", spec, err.Error()).
			WithHint(`use a cron expression such as "*/5 * * * *" or "@every 30s"`)
	}
	return s.add(name, spec, schedule, job)
}

// AddEvery schedules job under name to run every interval, first after
// one interval has passed.
func (s *Scheduler) AddEvery(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return errors.NewValidationError("scheduler", "interval", interval, "must be positive")
	}
	return s.add(name, "", every(interval), job)
}

// AddSchedule schedules job under name with a custom schedule.
func (s *Scheduler) AddSchedule(name string, schedule cron.Schedule, job Job) error {
	if schedule == nil {
		return errors.NewValidationError("scheduler", "schedule", nil, "cannot be nil")
	}
	return s.add(name, "", schedule, job)
}

func (s *Scheduler) add(name, spec string, schedule cron.Schedule, job Job) error {
	if err := validation.ValidateNotEmpty("scheduler", "name", name); err != nil {
		return err
	}
	if len(name) > 255 {
		return errors.NewValidationError("scheduler", "name", name, "too long (max 255 characters)")
	}
	if job == nil {
		return errors.NewValidationError("scheduler", "job", nil, "cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %q already exists, remove it first", name)
	}
	if len(s.entries) >= s.maxJobs {
		return fmt.Errorf("cannot add job %q: %w (max %d jobs)", name, errors.ErrCapacityExceeded, s.maxJobs)
	}

	s.entries[name] = &entry{
		name:     name,
		spec:     spec,
		schedule: schedule,
		job:      job,
		next:     schedule.Next(time.Now().In(s.location)),
	}
	s.logger.Debug("job added", zap.String("job", name), zap.String("spec", spec))

	return nil
}

// Remove unschedules the named job and reports whether it existed.
// A run already in progress is not interrupted.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; !exists {
		return false
	}
	delete(s.entries, name)
	return true
}

// Entries returns the scheduled jobs ordered by next run time.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, Entry{
			Name:    e.name,
			Spec:    e.spec,
			Next:    e.next,
			Prev:    e.prev,
			Running: e.running,
			Runs:    e.runs,
			Skipped: e.skipped,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Next.Equal(entries[j].Next) {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Next.Before(entries[j].Next)
	})

	return entries
}

// every is a fixed-interval cron.Schedule. Unlike cron.Every it keeps
// sub-second intervals.
type every time.Duration

func (d every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}
