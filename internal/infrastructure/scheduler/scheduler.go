// Package scheduler runs periodic background jobs for the engine, such as
// polling the mission catalog when file notifications are unreliable.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

var (
	ErrJobExists   = errors.New("scheduler: job already registered")
	ErrJobNotFound = errors.New("scheduler: job not found")
	ErrNilJob      = errors.New("scheduler: job and schedule are required")
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping.
	Run(ctx context.Context) error

	Description() string
}

// Schedule defines when a job should run.
type Schedule interface {
	// Next returns the next time the job should run after the given time.
	Next(t time.Time) time.Time
	String() string
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Error       error
}

// Success reports whether the run finished without error.
func (r JobResult) Success() bool { return r.Error == nil }

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the Scheduler.
type Config struct {
	// Tick is how often due jobs are checked (default 1s).
	Tick time.Duration

	Logger *logger.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Tick: time.Second, Logger: logger.Default()}
}

type scheduledJob struct {
	job      Job
	schedule Schedule
	nextRun  time.Time
	running  bool
	runCount int64
	lastRun  *JobResult
}

// Scheduler manages and executes scheduled jobs. A job never overlaps with
// itself: a due job that is still running is skipped until the next tick.
type Scheduler struct {
	mu   sync.Mutex
	tick time.Duration
	log  *logger.Logger
	jobs map[string]*scheduledJob
	now  func() time.Time
	wg   sync.WaitGroup

	// OnJobComplete, if set, is called after every run.
	OnJobComplete func(result JobResult)
}

// NewScheduler creates a new Scheduler with the given configuration.
func NewScheduler(config Config) *Scheduler {
	if config.Tick <= 0 {
		config.Tick = time.Second
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	return &Scheduler{
		tick: config.Tick,
		log:  config.Logger.With(logger.Component("scheduler")),
		jobs: make(map[string]*scheduledJob),
		now:  time.Now,
	}
}

// Register adds a job; its first run is one schedule step from now.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil || schedule == nil {
		return ErrNilJob
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.Name()]; ok {
		return ErrJobExists
	}
	s.jobs[job.Name()] = &scheduledJob{
		job:      job,
		schedule: schedule,
		nextRun:  schedule.Next(s.now()),
	}
	s.log.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("schedule", schedule.String()),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Run checks for due jobs until ctx is cancelled, then waits for in-flight
// jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started", logger.Int("jobs", s.jobCount()))

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

func (s *Scheduler) jobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*scheduledJob
	for _, sj := range s.jobs {
		if !sj.running && !now.Before(sj.nextRun) {
			sj.running = true
			sj.nextRun = sj.schedule.Next(now)
			due = append(due, sj)
		}
	}
	s.mu.Unlock()

	for _, sj := range due {
		s.wg.Add(1)
		go func(sj *scheduledJob) {
			defer s.wg.Done()
			s.runJob(ctx, sj)
		}(sj)
	}
}

// RunNow executes a job immediately, ignoring its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*JobResult, error) {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	r := s.runJob(ctx, sj)
	return &r, nil
}

// LastRun returns the most recent result of a job, or nil before its first run.
func (s *Scheduler) LastRun(name string) *JobResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sj, ok := s.jobs[name]; ok && sj.lastRun != nil {
		r := *sj.lastRun
		return &r
	}
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, sj *scheduledJob) JobResult {
	name := sj.job.Name()
	started := s.now()

	err := sj.job.Run(ctx)
	result := JobResult{
		JobName:     name,
		StartedAt:   started,
		CompletedAt: s.now(),
		Error:       err,
	}
	result.Duration = result.CompletedAt.Sub(started)

	s.mu.Lock()
	sj.running = false
	sj.runCount++
	sj.lastRun = &result
	s.mu.Unlock()

	metrics.RecordJob(name, result.Duration, err)
	if err != nil {
		s.log.Error("job failed",
			logger.String("job", name),
			logger.Duration("duration", result.Duration),
			logger.Err(err),
		)
	} else {
		s.log.Debug("job completed",
			logger.String("job", name),
			logger.Duration("duration", result.Duration),
		)
	}

	if s.OnJobComplete != nil {
		s.OnJobComplete(result)
	}
	return result
}
