package event

import (
	"context"

	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes one structured log line per lifecycle or ledger event
type AuditLogHandler struct {
	logger *zap.Logger
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)

// NewAuditLogHandler creates an audit handler
func NewAuditLogHandler(log *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: log.Named("audit")}
}

// EventTypes returns nil; the handler receives every event
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with the fields relevant to its type
func (h *AuditLogHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("aggregate_id", ev.AggregateID().String()),
		zap.String("tenant_id", ev.TenantID().String()),
		zap.Time("occurred_at", ev.OccurredAt()),
	}

	switch e := ev.(type) {
	case *subscription.SubscriptionCreatedEvent:
		fields = append(fields,
			zap.String("employee_id", e.EmployeeID.String()),
			zap.String("combo_type", e.ComboType.String()),
			zap.Int("total_days", e.TotalDays),
			zap.String("total_price", e.TotalPrice.String()),
		)
	case *subscription.SubscriptionResumedEvent:
		fields = append(fields, zap.Int("elapsed_days", e.ElapsedDays), zap.Int("skipped_orders", e.SkippedOrders))
	case *subscription.SubscriptionCompletedEvent:
		fields = append(fields, zap.String("reason", e.Reason))
	case *subscription.SubscriptionComboChangedEvent:
		fields = append(fields,
			zap.String("old_combo", e.OldComboType.String()),
			zap.String("new_combo", e.NewComboType.String()),
			zap.Int("remaining_orders", e.RemainingOrders),
		)
	case *subscription.OrderFrozenEvent:
		fields = append(fields,
			zap.String("order_id", e.OrderID.String()),
			zap.String("order_date", e.OrderDate.String()),
			zap.String("replacement_date", e.ReplacementDate.String()),
			zap.Int("remaining_quota", e.RemainingQuota),
		)
	case *subscription.OrderUnfrozenEvent:
		fields = append(fields,
			zap.String("order_id", e.OrderID.String()),
			zap.String("removed_date", e.RemovedDate.String()),
		)
	case *subscription.OrderCancelledEvent:
		fields = append(fields,
			zap.String("order_id", e.OrderID.String()),
			zap.String("price", e.Price.String()),
			zap.String("reason", e.Reason),
		)
	case *ledger.EntryRecordedEvent:
		fields = append(fields,
			zap.String("entry_type", e.EntryType.String()),
			zap.Int64("sequence", e.Sequence),
			zap.String("amount", e.Amount.String()),
			zap.String("balance_after", e.BalanceAfter.String()),
		)
	}

	logger.Enrich(ctx, h.logger).Info("Domain event", fields...)
	return nil
}
