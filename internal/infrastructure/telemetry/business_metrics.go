package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Metric names
const (
	MetricSubscriptionsCreated   = "meal_subscriptions_created_total"
	MetricSubscriptionsCompleted = "meal_subscriptions_completed_total"
	MetricOrderFreezes           = "meal_order_freezes_total"
	MetricOrderUnfreezes         = "meal_order_unfreezes_total"
	MetricOrdersCancelled        = "meal_orders_cancelled_total"
	MetricLedgerEntries          = "meal_ledger_entries_total"
	MetricRejections             = "meal_business_rejections_total"
	MetricIntegrityViolations    = "meal_integrity_violations_total"
	MetricSweepOrdersCompleted   = "meal_sweep_orders_completed_total"
	MetricSweepDuration          = "meal_sweep_duration_seconds"
)

// BusinessMetrics records meal engine counters. Lifecycle and ledger counts are
// fed by domain events; rejections, integrity violations and sweep figures are
// recorded by the services that observe them.
type BusinessMetrics struct {
	logger *zap.Logger

	subscriptionsCreated   *Counter
	subscriptionsCompleted *Counter
	freezes                *Counter
	unfreezes              *Counter
	ordersCancelled        *Counter
	ledgerEntries          *Counter
	rejections             *Counter
	integrityViolations    *Counter
	sweepOrders            *Counter
	sweepDuration          *Histogram
}

var _ shared.EventHandler = (*BusinessMetrics)(nil)

// BusinessMetricsConfig holds the dependencies of BusinessMetrics
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBusinessMetrics creates every instrument on cfg.Meter
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, errors.New("NewBusinessMetrics: meter cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	meter := cfg.Meter
	bm := &BusinessMetrics{logger: cfg.Logger}

	counters := []struct {
		target      **Counter
		name, descr string
	}{
		{&bm.subscriptionsCreated, MetricSubscriptionsCreated, "Subscriptions created"},
		{&bm.subscriptionsCompleted, MetricSubscriptionsCompleted, "Subscriptions completed, by reason"},
		{&bm.freezes, MetricOrderFreezes, "Orders frozen"},
		{&bm.unfreezes, MetricOrderUnfreezes, "Orders unfrozen"},
		{&bm.ordersCancelled, MetricOrdersCancelled, "Orders cancelled individually"},
		{&bm.ledgerEntries, MetricLedgerEntries, "Ledger entries appended, by entry type"},
		{&bm.rejections, MetricRejections, "Operations rejected by a business rule, by code"},
		{&bm.integrityViolations, MetricIntegrityViolations, "Operations aborted on a broken invariant"},
		{&bm.sweepOrders, MetricSweepOrdersCompleted, "Orders completed by the daily sweep"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.descr, "{count}")
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	h, err := NewHistogram(meter, MetricSweepDuration, "Duration of one tenant completion sweep", "s",
		0.05, 0.1, 0.5, 1, 5, 15, 60, 300)
	if err != nil {
		return nil, err
	}
	bm.sweepDuration = h
	return bm, nil
}

func tenantAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("tenant_id", id.String())
}

// RecordRejection counts a business rejection of operation
func (bm *BusinessMetrics) RecordRejection(ctx context.Context, tenantID uuid.UUID, operation, code string) {
	bm.rejections.Inc(ctx, tenantAttr(tenantID),
		attribute.String("operation", operation),
		attribute.String("code", code),
	)
}

// RecordIntegrityViolation counts an aborted operation whose invariant check failed
func (bm *BusinessMetrics) RecordIntegrityViolation(ctx context.Context, tenantID uuid.UUID, operation string) {
	bm.integrityViolations.Inc(ctx, tenantAttr(tenantID), attribute.String("operation", operation))
}

// RecordOutcome classifies err from operation and counts it. Non-domain errors are ignored.
func (bm *BusinessMetrics) RecordOutcome(ctx context.Context, tenantID uuid.UUID, operation string, err error) {
	if err == nil || bm == nil {
		return
	}
	switch {
	case shared.IsIntegrityViolation(err):
		bm.RecordIntegrityViolation(ctx, tenantID, operation)
	case shared.IsBusinessRejection(err):
		bm.RecordRejection(ctx, tenantID, operation, shared.ErrorCode(err))
	}
}

// RecordSweep records one tenant sweep
func (bm *BusinessMetrics) RecordSweep(ctx context.Context, tenantID uuid.UUID, ordersCompleted int, elapsed time.Duration) {
	bm.sweepOrders.Add(ctx, int64(ordersCompleted), tenantAttr(tenantID))
	bm.sweepDuration.RecordDuration(ctx, elapsed, tenantAttr(tenantID))
}

// EventTypes lists the events that move a counter
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		subscription.EventTypeSubscriptionCreated,
		subscription.EventTypeSubscriptionCompleted,
		subscription.EventTypeOrderFrozen,
		subscription.EventTypeOrderUnfrozen,
		subscription.EventTypeOrderCancelled,
		ledger.EventTypeEntryRecorded,
	}
}

// Handle implements shared.EventHandler
func (bm *BusinessMetrics) Handle(ctx context.Context, ev shared.DomainEvent) error {
	tenant := tenantAttr(ev.TenantID())
	switch e := ev.(type) {
	case *subscription.SubscriptionCreatedEvent:
		bm.subscriptionsCreated.Inc(ctx, tenant, attribute.String("combo_type", e.ComboType.String()))
	case *subscription.SubscriptionCompletedEvent:
		bm.subscriptionsCompleted.Inc(ctx, tenant, attribute.String("reason", e.Reason))
	case *subscription.OrderFrozenEvent:
		bm.freezes.Inc(ctx, tenant)
	case *subscription.OrderUnfrozenEvent:
		bm.unfreezes.Inc(ctx, tenant)
	case *subscription.OrderCancelledEvent:
		bm.ordersCancelled.Inc(ctx, tenant, attribute.String("reason", e.Reason))
	case *ledger.EntryRecordedEvent:
		bm.ledgerEntries.Inc(ctx, tenant, attribute.String("entry_type", e.EntryType.String()))
	default:
		bm.logger.Debug("No metric for event", zap.String("event_type", ev.EventType()))
	}
	return nil
}
