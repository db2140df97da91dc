package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
)

// JobFunc is one run of a periodic job.
type JobFunc func(ctx context.Context, now time.Time) error

type job struct {
	name     string
	interval time.Duration
	run      JobFunc
	reset    chan time.Duration
}

// Scheduler runs registered jobs once at start and then on their interval.
// A failed run is logged and the job keeps its schedule.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*job
	logger logging.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewScheduler creates an empty Scheduler.
func NewScheduler(logger logging.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*job),
		logger: logger.Named("scheduler"),
		now:    time.Now,
	}
}

// Every registers run under name.  Must be called before Start; a
// non-positive interval is ignored.
func (s *Scheduler) Every(name string, interval time.Duration, run JobFunc) {
	if interval <= 0 {
		s.logger.Warn("Ignoring job without interval", logging.String("job", name))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[name] = &job{name: name, interval: interval, run: run, reset: make(chan time.Duration, 1)}
}

// SetInterval changes a running job's interval.  It reports false for an
// unknown job or a non-positive interval.
func (s *Scheduler) SetInterval(name string, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	for {
		select {
		case j.reset <- interval:
			return true
		default:
			// replace a pending, not yet applied interval
			select {
			case <-j.reset:
			default:
			}
		}
	}
}

// Start launches every job.  Jobs stop when ctx is cancelled; Wait blocks
// until the last run has returned.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
}

// Wait blocks until all jobs have stopped.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context, j *job) {
	defer s.wg.Done()
	s.logger.Info("Job scheduled", logging.String("job", j.name), logging.Duration("interval", j.interval))
	s.runOnce(ctx, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-j.reset:
			ticker.Reset(d)
			s.logger.Info("Job interval changed", logging.String("job", j.name), logging.Duration("interval", d))
		case <-ticker.C:
			s.runOnce(ctx, j)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j *job) {
	if ctx.Err() != nil {
		return
	}
	if err := j.run(ctx, s.now()); err != nil {
		s.logger.Error("Job failed", logging.String("job", j.name), logging.Err(err))
	}
}

//Personal.AI order the ending
