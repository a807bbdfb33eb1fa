package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingExecutor struct {
	mu       sync.Mutex
	calls    int32
	failures int32 // first n calls fail
	tenants  []uuid.UUID
	deadline bool
}

func (e *recordingExecutor) Execute(ctx context.Context, job *Job) error {
	n := atomic.AddInt32(&e.calls, 1)
	e.mu.Lock()
	e.tenants = append(e.tenants, job.TenantID)
	_, e.deadline = ctx.Deadline()
	e.mu.Unlock()
	if n <= atomic.LoadInt32(&e.failures) {
		return errors.New("transient failure")
	}
	return nil
}

func collectDone(s *Scheduler, n int) <-chan []*Job {
	out := make(chan []*Job, 1)
	var mu sync.Mutex
	var done []*Job
	s.OnJobDone(func(job *Job) {
		mu.Lock()
		defer mu.Unlock()
		done = append(done, job)
		if len(done) == n {
			out <- done
		}
	})
	return out
}

func waitJobs(t *testing.T, ch <-chan []*Job) []*Job {
	t.Helper()
	select {
	case jobs := <-ch:
		return jobs
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for jobs")
		return nil
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxConcurrentJobs)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Equal(t, 10*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Minute, cfg.RetryDelay)
}

func TestScheduler_SubmitBeforeStart(t *testing.T) {
	s := NewScheduler(DefaultConfig(), &recordingExecutor{}, zap.NewNop())
	err := s.SubmitJob(NewJob(uuid.New(), JobKindCompletionSweep, time.Now(), 0))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_RunsJobs(t *testing.T) {
	exec := &recordingExecutor{}
	s := NewScheduler(Config{MaxConcurrentJobs: 2}, exec, zap.NewNop())
	done := collectDone(s, 3)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	runAt := time.Date(2024, 12, 3, 0, 5, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		job, err := s.ScheduleSweep(uuid.New(), runAt)
		require.NoError(t, err)
		assert.Equal(t, JobKindCompletionSweep, job.Kind)
		assert.Equal(t, runAt, job.RunAt)
	}

	jobs := waitJobs(t, done)
	for _, job := range jobs {
		assert.Equal(t, JobStatusSuccess, job.Status)
		assert.NotNil(t, job.CompletedAt)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&exec.calls))
	exec.mu.Lock()
	assert.True(t, exec.deadline, "executor must run under the job timeout")
	exec.mu.Unlock()
}

func TestScheduler_RetriesFailedJob(t *testing.T) {
	exec := &recordingExecutor{failures: 2}
	s := NewScheduler(Config{MaxConcurrentJobs: 1, RetryAttempts: 3, RetryDelay: time.Millisecond}, exec, zap.NewNop())
	done := collectDone(s, 1)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	_, err := s.ScheduleSweep(uuid.New(), time.Now())
	require.NoError(t, err)

	jobs := waitJobs(t, done)
	assert.Equal(t, JobStatusSuccess, jobs[0].Status)
	assert.Equal(t, 2, jobs[0].RetryCount)
	assert.Equal(t, int32(3), atomic.LoadInt32(&exec.calls))
}

func TestScheduler_GivesUpAfterRetries(t *testing.T) {
	exec := &recordingExecutor{failures: 100}
	s := NewScheduler(Config{MaxConcurrentJobs: 1, RetryAttempts: 1, RetryDelay: time.Millisecond}, exec, zap.NewNop())
	done := collectDone(s, 1)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	_, err := s.ScheduleSweep(uuid.New(), time.Now())
	require.NoError(t, err)

	jobs := waitJobs(t, done)
	assert.Equal(t, JobStatusFailed, jobs[0].Status)
	assert.Equal(t, "transient failure", jobs[0].Error)
	assert.Equal(t, int32(2), atomic.LoadInt32(&exec.calls))
}

func TestScheduler_QueueFull(t *testing.T) {
	block := make(chan struct{})
	exec := executorFunc(func(ctx context.Context, job *Job) error {
		<-block
		return nil
	})
	s := NewScheduler(Config{MaxConcurrentJobs: 1, QueueSize: 1}, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))

	// one job held by the worker, one in the queue, then the queue is full
	require.NoError(t, s.SubmitJob(NewJob(uuid.New(), JobKindCompletionSweep, time.Now(), 0)))
	assert.Eventually(t, func() bool { return len(s.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, s.SubmitJob(NewJob(uuid.New(), JobKindCompletionSweep, time.Now(), 0)))
	assert.ErrorIs(t, s.SubmitJob(NewJob(uuid.New(), JobKindCompletionSweep, time.Now(), 0)), ErrJobQueueFull)

	close(block)
	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning())
}

type executorFunc func(ctx context.Context, job *Job) error

func (f executorFunc) Execute(ctx context.Context, job *Job) error { return f(ctx, job) }
