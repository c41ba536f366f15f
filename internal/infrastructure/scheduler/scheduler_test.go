package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/scheduler/jobs"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
		}
	}
	return j.err
}

func newTestScheduler() *Scheduler {
	return NewScheduler(Config{Tick: 5 * time.Millisecond, Logger: logger.Nop()})
}

func TestScheduler_RunsIntervalJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestScheduler()
	job := &countingJob{name: "count"}
	require.NoError(t, s.Register(job, Every(10*time.Millisecond)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	last := s.LastRun("count")
	require.NotNil(t, last)
	assert.True(t, last.Success())
}

func TestScheduler_DoesNotOverlapRuns(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestScheduler()
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, Every(time.Millisecond)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), job.runs.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestScheduler_RegisterAndRunNow(t *testing.T) {
	s := newTestScheduler()
	boom := errors.New("boom")
	job := &countingJob{name: "fail", err: boom}

	require.NoError(t, s.Register(job, Every(time.Hour)))
	assert.ErrorIs(t, s.Register(job, Every(time.Hour)), ErrJobExists)
	assert.ErrorIs(t, s.Register(nil, Every(time.Hour)), ErrNilJob)
	assert.Nil(t, s.LastRun("fail"))

	var completed []JobResult
	s.OnJobComplete = func(r JobResult) { completed = append(completed, r) }

	res, err := s.RunNow(context.Background(), "fail")
	require.NoError(t, err)
	assert.ErrorIs(t, res.Error, boom)
	assert.False(t, res.Success())
	assert.Len(t, completed, 1)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

type reloaderFunc func(context.Context) error

func (f reloaderFunc) Reload(ctx context.Context) error { return f(ctx) }

func TestPollCatalogJob(t *testing.T) {
	var calls int
	job := jobs.NewPollCatalogJob(reloaderFunc(func(context.Context) error {
		calls++
		return nil
	}))

	s := newTestScheduler()
	require.NoError(t, s.Register(job, Every(time.Minute)))
	res, err := s.RunNow(context.Background(), "poll_catalog")
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, 1, calls)
}

func TestEvery(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, at.Add(time.Minute), Every(0).Next(at))
	assert.Equal(t, "@every 30s", Every(30*time.Second).String())
}
