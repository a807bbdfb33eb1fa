// Package sweep advances elapsed orders to Completed and closes subscriptions
// whose window has ended. It runs per tenant as a scheduler job.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/logger"
	"github.com/mealplan/backend/internal/infrastructure/scheduler"
	"github.com/mealplan/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultBatchSize = 200

// Result summarizes one sweep
type Result struct {
	Tenants                int
	Accounts               int
	OrdersCompleted        int
	SubscriptionsCompleted int
	Failures               int
}

func (r *Result) add(other *Result) {
	r.Tenants += other.Tenants
	r.Accounts += other.Accounts
	r.OrdersCompleted += other.OrdersCompleted
	r.SubscriptionsCompleted += other.SubscriptionsCompleted
	r.Failures += other.Failures
}

// CompletionJob implements scheduler.JobExecutor for completion sweeps
type CompletionJob struct {
	txManager     shared.TxManager
	accounts      account.Repository
	subscriptions subscription.SubscriptionRepository
	orders        subscription.OrderRepository
	defaults      account.Defaults
	lifecycle     *subscription.Lifecycle
	cutoff        *calendar.CutoffService
	clock         calendar.Clock
	batchSize     int
	publisher     shared.EventPublisher
	metrics       *telemetry.BusinessMetrics
	logger        *zap.Logger
}

var _ scheduler.JobExecutor = (*CompletionJob)(nil)

// Config holds the dependencies of CompletionJob
type Config struct {
	TxManager     shared.TxManager
	Accounts      account.Repository
	Subscriptions subscription.SubscriptionRepository
	Orders        subscription.OrderRepository
	Defaults      account.Defaults
	Lifecycle     *subscription.Lifecycle
	Cutoff        *calendar.CutoffService
	Clock         calendar.Clock
	BatchSize     int
	Publisher     shared.EventPublisher
	Metrics       *telemetry.BusinessMetrics
	Logger        *zap.Logger
}

// NewCompletionJob creates a completion sweep
func NewCompletionJob(cfg Config) *CompletionJob {
	if cfg.Lifecycle == nil {
		cfg.Lifecycle = subscription.NewLifecycle(nil, subscription.NewFreezeQuota(subscription.DefaultWeeklyFreezeLimit))
	}
	if cfg.Cutoff == nil {
		cfg.Cutoff = calendar.NewCutoffService()
	}
	if cfg.Clock == nil {
		cfg.Clock = calendar.SystemClock{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &CompletionJob{
		txManager:     cfg.TxManager,
		accounts:      cfg.Accounts,
		subscriptions: cfg.Subscriptions,
		orders:        cfg.Orders,
		defaults:      cfg.Defaults,
		lifecycle:     cfg.Lifecycle,
		cutoff:        cfg.Cutoff,
		clock:         cfg.Clock,
		batchSize:     cfg.BatchSize,
		publisher:     cfg.Publisher,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}
}

// Execute runs the sweep for the job's tenant at the job's run time
func (j *CompletionJob) Execute(ctx context.Context, job *scheduler.Job) error {
	if job.Kind != scheduler.JobKindCompletionSweep {
		return fmt.Errorf("unsupported job kind %q", job.Kind)
	}
	now := job.RunAt
	if now.IsZero() {
		now = j.clock.Now()
	}
	_, err := j.Sweep(ctx, job.TenantID, now)
	return err
}

// SweepAll sweeps every tenant
func (j *CompletionJob) SweepAll(ctx context.Context, now time.Time) (*Result, error) {
	tenants, err := j.accounts.ListTenantIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	total := &Result{}
	var errs []error
	for _, tenantID := range tenants {
		res, err := j.Sweep(ctx, tenantID, now)
		if res != nil {
			total.add(res)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
		}
	}
	return total, errors.Join(errs...)
}

// Sweep completes due orders and expired subscriptions of every account of a
// tenant. Each subscription is settled in its own transaction; a failing one is
// logged and skipped so the rest of the tenant still progresses.
func (j *CompletionJob) Sweep(ctx context.Context, tenantID uuid.UUID, now time.Time) (result *Result, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sweep", "completion",
		attribute.String("tenant_id", tenantID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	ctx = logger.WithTenantID(ctx, tenantID.String())
	log := logger.Enrich(ctx, j.logger)
	started := time.Now()

	accounts, err := j.accounts.FindAll(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	byID := make(map[uuid.UUID]*account.Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}

	result = &Result{Tenants: 1}
	for _, acc := range accounts {
		var parent *account.Account
		if acc.ParentID != nil {
			parent = byID[*acc.ParentID]
		}
		settings := acc.EffectiveSettings(parent, j.defaults)
		status := j.cutoff.Evaluate(now, settings.Timezone, settings.Cutoff)
		if err := j.sweepAccount(ctx, acc, now, status.Today, result); err != nil {
			return result, err
		}
		result.Accounts++
	}

	if j.metrics != nil {
		j.metrics.RecordSweep(ctx, tenantID, result.OrdersCompleted, time.Since(started))
	}
	log.Info("Completion sweep finished",
		zap.Int("accounts", result.Accounts),
		zap.Int("orders_completed", result.OrdersCompleted),
		zap.Int("subscriptions_completed", result.SubscriptionsCompleted),
		zap.Int("failures", result.Failures),
		zap.Duration("elapsed", time.Since(started)))
	return result, nil
}

// sweepAccount settles every subscription of the account with due orders, then
// the expired ones without any. Subscriptions already tried in this run are
// excluded from the next batch, so a failing one cannot hold the batch.
func (j *CompletionJob) sweepAccount(ctx context.Context, acc *account.Account, now time.Time, today calendar.Date, result *Result) error {
	var tried []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	next := func(ids []uuid.UUID) []uuid.UUID {
		var pending []uuid.UUID
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				pending = append(pending, id)
			}
		}
		tried = append(tried, pending...)
		return pending
	}

	for {
		due, err := j.orders.FindDueActive(ctx, acc.TenantID, acc.ID, today, tried, j.batchSize)
		if err != nil {
			return fmt.Errorf("failed to load due orders of account %s: %w", acc.ID, err)
		}
		ids := make([]uuid.UUID, len(due))
		for i, o := range due {
			ids[i] = o.SubscriptionID
		}
		pending := next(ids)
		if len(pending) == 0 {
			break
		}
		for _, id := range pending {
			j.settle(ctx, acc.TenantID, id, now, today, result)
		}
	}

	for {
		expired, err := j.subscriptions.FindExpiredActive(ctx, acc.TenantID, acc.ID, today, tried, j.batchSize)
		if err != nil {
			return fmt.Errorf("failed to load expired subscriptions of account %s: %w", acc.ID, err)
		}
		ids := make([]uuid.UUID, len(expired))
		for i, sub := range expired {
			ids[i] = sub.ID
		}
		pending := next(ids)
		if len(pending) == 0 {
			return nil
		}
		for _, id := range pending {
			j.settle(ctx, acc.TenantID, id, now, today, result)
		}
	}
}

// settle completes the due orders of one subscription and, once its window has
// ended, the subscription itself
func (j *CompletionJob) settle(ctx context.Context, tenantID, id uuid.UUID, now time.Time, today calendar.Date, result *Result) {
	var (
		sub       *subscription.Subscription
		completed bool
		orders    int
	)
	err := j.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		sub, err = j.subscriptions.FindByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		all, err := j.orders.FindBySubscription(ctx, tenantID, id)
		if err != nil {
			return err
		}
		changes, done, err := j.lifecycle.CompleteDue(sub, all, now, today)
		if err != nil {
			return err
		}
		if len(changes.Updated) > 0 {
			if err := j.orders.SaveBatch(ctx, changes.Updated); err != nil {
				return err
			}
		}
		if done {
			if err := j.subscriptions.SaveWithLock(ctx, sub); err != nil {
				return err
			}
		}
		orders, completed = len(changes.Updated), done
		return nil
	})
	if err != nil {
		result.Failures++
		if sub != nil {
			sub.ClearDomainEvents()
		}
		if shared.IsIntegrityViolation(err) {
			logger.Alert(logger.WithContext(ctx, j.logger), "Completion sweep hit a broken subscription", err,
				zap.String("subscription_id", id.String()))
		} else {
			logger.Enrich(ctx, j.logger).Warn("Failed to settle subscription",
				zap.String("subscription_id", id.String()),
				zap.Error(err))
		}
		j.metrics.RecordOutcome(ctx, tenantID, "sweep.settle", err)
		return
	}

	result.OrdersCompleted += orders
	if completed {
		result.SubscriptionsCompleted++
	}
	if j.publisher != nil {
		if events := sub.GetDomainEvents(); len(events) > 0 {
			if err := j.publisher.Publish(ctx, events...); err != nil {
				logger.Enrich(ctx, j.logger).Warn("Failed to publish sweep events", zap.Error(err))
			}
		}
	}
	sub.ClearDomainEvents()
}
