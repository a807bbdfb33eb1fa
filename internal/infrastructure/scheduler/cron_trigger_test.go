package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTenants struct {
	ids []uuid.UUID
	err error
}

func (p staticTenants) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return p.ids, p.err
}

func newTestTrigger(t *testing.T, provider TenantProvider, exec JobExecutor) (*CronTrigger, *Scheduler) {
	t.Helper()
	s := NewScheduler(Config{MaxConcurrentJobs: 1}, exec, zap.NewNop())
	trigger, err := NewCronTrigger(DefaultCronTriggerConfig(), s, provider, zap.NewNop())
	require.NoError(t, err)
	return trigger, s
}

func TestNewCronTrigger_RejectsBadConfig(t *testing.T) {
	s := NewScheduler(DefaultConfig(), &recordingExecutor{}, zap.NewNop())

	_, err := NewCronTrigger(CronTriggerConfig{Schedule: "bogus", CheckInterval: time.Second}, s, staticTenants{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = NewCronTrigger(CronTriggerConfig{Schedule: "5 * * * *", CheckInterval: 2 * time.Minute}, s, staticTenants{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCronTrigger_FiresOncePerMatchingMinute(t *testing.T) {
	tenants := []uuid.UUID{uuid.New(), uuid.New()}
	exec := &recordingExecutor{}
	trigger, s := newTestTrigger(t, staticTenants{ids: tenants}, exec)
	done := collectDone(s, 2)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	trigger.now = func() time.Time { return at("2024-12-03T14:04:50Z") }
	assert.False(t, trigger.checkAndTrigger(context.Background()))

	trigger.now = func() time.Time { return at("2024-12-03T14:05:10Z") }
	assert.True(t, trigger.checkAndTrigger(context.Background()))

	trigger.now = func() time.Time { return at("2024-12-03T14:05:40Z") }
	assert.False(t, trigger.checkAndTrigger(context.Background()), "same minute fires once")

	jobs := waitJobs(t, done)
	for _, job := range jobs {
		assert.Equal(t, at("2024-12-03T14:05:00Z"), job.RunAt)
	}
	exec.mu.Lock()
	assert.ElementsMatch(t, tenants, exec.tenants)
	exec.mu.Unlock()

	trigger.now = func() time.Time { return at("2024-12-03T15:05:01Z") }
	assert.True(t, trigger.checkAndTrigger(context.Background()), "next hour fires again")
}

func TestCronTrigger_TriggerNow_TenantError(t *testing.T) {
	trigger, s := newTestTrigger(t, staticTenants{err: errors.New("db down")}, &recordingExecutor{})
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	n, err := trigger.TriggerNow(context.Background(), time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Zero(t, n)
}

func TestCronTrigger_TriggerNow_SkipsUnqueuedTenants(t *testing.T) {
	trigger, _ := newTestTrigger(t, staticTenants{ids: []uuid.UUID{uuid.New()}}, &recordingExecutor{})

	// scheduler never started, so every submission is rejected
	n, err := trigger.TriggerNow(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCronTrigger_StartStop(t *testing.T) {
	trigger, _ := newTestTrigger(t, staticTenants{}, &recordingExecutor{})
	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(ctx))
	require.NoError(t, trigger.Stop(ctx))
}
