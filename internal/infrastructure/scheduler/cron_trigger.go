package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider provides the tenants to sweep
type TenantProvider interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// Schedule is a five-field cron expression evaluated in UTC
	Schedule string

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns default cron trigger configuration.
// Hourly, so every timezone is swept shortly after its local midnight.
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		Schedule:      "5 * * * *",
		CheckInterval: 20 * time.Second,
	}
}

// CronTrigger submits a completion sweep for every tenant whenever the
// schedule fires
type CronTrigger struct {
	config         CronTriggerConfig
	schedule       *Schedule
	scheduler      *Scheduler
	tenantProvider TenantProvider
	logger         *zap.Logger
	now            func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastFired time.Time // minute of the last firing, fires at most once per minute
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(
	config CronTriggerConfig,
	scheduler *Scheduler,
	tenantProvider TenantProvider,
	logger *zap.Logger,
) (*CronTrigger, error) {
	if config.CheckInterval <= 0 || config.CheckInterval > time.Minute {
		return nil, fmt.Errorf("%w: check interval must be within (0, 1m], got %s", ErrInvalidConfig, config.CheckInterval)
	}
	schedule, err := ParseSchedule(config.Schedule)
	if err != nil {
		return nil, err
	}
	return &CronTrigger{
		config:         config,
		schedule:       schedule,
		scheduler:      scheduler,
		tenantProvider: tenantProvider,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	fields := []zap.Field{
		zap.String("schedule", c.schedule.String()),
		zap.Duration("check_interval", c.config.CheckInterval),
	}
	if next, ok := c.schedule.Next(c.now()); ok {
		fields = append(fields, zap.Time("next_run", next))
	}
	c.logger.Info("Sweep cron trigger started", fields...)
	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Sweep cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger fires when the current minute matches the schedule and has
// not fired yet. Reports whether it fired.
func (c *CronTrigger) checkAndTrigger(ctx context.Context) bool {
	minute := c.now().UTC().Truncate(time.Minute)
	if !c.schedule.Matches(minute) {
		return false
	}

	c.mu.Lock()
	if c.lastFired.Equal(minute) {
		c.mu.Unlock()
		return false
	}
	c.lastFired = minute
	c.mu.Unlock()

	c.logger.Info("Triggering completion sweep", zap.Time("run_at", minute))
	if _, err := c.TriggerNow(ctx, minute); err != nil {
		c.logger.Error("Failed to trigger completion sweep", zap.Error(err))
	}
	return true
}

// TriggerNow submits a sweep for every tenant against runAt and returns the
// number of jobs submitted. Tenants whose job could not be queued are logged
// and skipped.
func (c *CronTrigger) TriggerNow(ctx context.Context, runAt time.Time) (int, error) {
	tenantIDs, err := c.tenantProvider.ListTenantIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tenants: %w", err)
	}

	submitted := 0
	for _, tenantID := range tenantIDs {
		if _, err := c.scheduler.ScheduleSweep(tenantID, runAt); err != nil {
			c.logger.Error("Failed to schedule sweep for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		submitted++
	}

	c.logger.Info("Scheduled completion sweeps",
		zap.Int("tenant_count", len(tenantIDs)),
		zap.Int("submitted", submitted),
	)
	return submitted, nil
}
