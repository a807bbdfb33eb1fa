package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Pause pauses a subscription and its orders from today on
func (s *Service) Pause(ctx context.Context, tenantID, id uuid.UUID) (sub *subscription.Subscription, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "pause",
		attribute.String("subscription_id", id.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	now := s.clock.Now()
	var updated int
	err = s.run(ctx, tenantID, "subscription.pause", func(ctx context.Context, out *outcome) error {
		current, orders, err := s.lockSubscription(ctx, tenantID, id)
		if err != nil {
			return err
		}
		out.track(current)
		cutoff, err := s.cutoffFor(ctx, tenantID, current.AccountID, now)
		if err != nil {
			return err
		}
		changes, err := s.lifecycle.Pause(current, orders, now, cutoff.Today)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, current, changes); err != nil {
			return err
		}
		updated = len(changes.Updated)
		sub = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("Subscription paused",
		zap.String("subscription_id", id.String()),
		zap.Int("paused_orders", updated))
	return sub, nil
}

// Resume resumes a paused subscription. Days that passed while paused are
// appended at the tail.
func (s *Service) Resume(ctx context.Context, tenantID, id uuid.UUID) (sub *subscription.Subscription, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "resume",
		attribute.String("subscription_id", id.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	now := s.clock.Now()
	var created int
	err = s.run(ctx, tenantID, "subscription.resume", func(ctx context.Context, out *outcome) error {
		current, orders, err := s.lockSubscription(ctx, tenantID, id)
		if err != nil {
			return err
		}
		out.track(current)
		cutoff, err := s.cutoffFor(ctx, tenantID, current.AccountID, now)
		if err != nil {
			return err
		}
		changes, err := s.lifecycle.Resume(current, orders, now, cutoff.Today)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, current, changes); err != nil {
			return err
		}
		created = len(changes.Created)
		sub = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("Subscription resumed",
		zap.String("subscription_id", id.String()),
		zap.Int("appended_orders", created),
		zap.String("end_date", sub.EndDate.String()))
	return sub, nil
}

// Extend adds contracted days and charges them to the account
func (s *Service) Extend(ctx context.Context, tenantID, id uuid.UUID, days int, operatorID *uuid.UUID) (sub *subscription.Subscription, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "extend",
		attribute.String("subscription_id", id.String()),
		attribute.Int("days", days))
	defer func() { telemetry.EndSpan(span, err) }()

	if days <= 0 {
		return nil, shared.NewValidationError("Extension days must be positive")
	}

	now := s.clock.Now()
	err = s.run(ctx, tenantID, "subscription.extend", func(ctx context.Context, out *outcome) error {
		current, orders, err := s.lockSubscription(ctx, tenantID, id)
		if err != nil {
			return err
		}
		out.track(current)
		changes, err := s.lifecycle.Extend(current, orders, days, now)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, current, changes); err != nil {
			return err
		}
		amount := current.Price.Mul(decimal.NewFromInt(int64(days)))
		description := fmt.Sprintf("Subscription %s extended by %d days", current.ID, days)
		if _, err := s.charge(ctx, out, current, ledger.EntryTypeDeduction, amount, nil, operatorID, description, now); err != nil {
			return err
		}
		sub = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("Subscription extended",
		zap.String("subscription_id", id.String()),
		zap.Int("days", days),
		zap.String("end_date", sub.EndDate.String()))
	return sub, nil
}

// Cancel deactivates a subscription and refunds every order that can still be changed
func (s *Service) Cancel(ctx context.Context, tenantID, id uuid.UUID, operatorID *uuid.UUID) (result *CancelResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "cancel",
		attribute.String("subscription_id", id.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	now := s.clock.Now()
	err = s.run(ctx, tenantID, "subscription.cancel", func(ctx context.Context, out *outcome) error {
		current, orders, err := s.lockSubscription(ctx, tenantID, id)
		if err != nil {
			return err
		}
		out.track(current)
		cutoff, err := s.cutoffFor(ctx, tenantID, current.AccountID, now)
		if err != nil {
			return err
		}
		changes, err := s.lifecycle.Cancel(current, orders, cutoff)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, current, changes); err != nil {
			return err
		}
		description := fmt.Sprintf("Subscription %s cancelled, %d orders refunded", current.ID, len(changes.Cancelled))
		refund, err := s.charge(ctx, out, current, ledger.EntryTypeRefund, sumPrices(changes.Cancelled), nil, operatorID, description, cutoff.Evaluated)
		if err != nil {
			return err
		}
		result = &CancelResult{Subscription: current, CancelledOrders: len(changes.Cancelled), Refund: refund}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("Subscription cancelled",
		zap.String("subscription_id", id.String()),
		zap.Int("cancelled_orders", result.CancelledOrders))
	return result, nil
}

// ChangeCombo moves a subscription and its changeable orders to a new combo. The
// price difference of the changed orders is settled on the ledger.
func (s *Service) ChangeCombo(ctx context.Context, req ComboChangeRequest) (result *ComboChangeResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "change_combo",
		attribute.String("combo_type", req.ComboType))
	defer func() { telemetry.EndSpan(span, err) }()

	if (req.SubscriptionID == nil) == (req.EmployeeID == nil) {
		return nil, shared.NewValidationError("Exactly one of subscription and employee is required")
	}
	combo, price, err := s.price(req.ComboType)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.run(ctx, req.TenantID, "subscription.change_combo", func(ctx context.Context, out *outcome) error {
		var id uuid.UUID
		if req.SubscriptionID != nil {
			id = *req.SubscriptionID
		} else {
			current, err := s.currentFor(ctx, req.TenantID, *req.EmployeeID, now)
			if err != nil {
				return err
			}
			id = current.ID
		}
		sub, orders, err := s.lockSubscription(ctx, req.TenantID, id)
		if err != nil {
			return err
		}
		updated, entry, err := s.changeCombo(ctx, out, sub, orders, combo, price, req.OperatorID, now)
		if err != nil {
			return err
		}
		result = &ComboChangeResult{Subscription: sub, UpdatedOrderCount: updated, Adjustment: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("Subscription combo changed",
		zap.String("subscription_id", result.Subscription.ID.String()),
		zap.String("combo_type", combo.String()),
		zap.Int("updated_orders", result.UpdatedOrderCount))
	return result, nil
}

// changeCombo applies a combo change to a locked subscription and settles the
// price difference: a cheaper combo refunds, a dearer one deducts. now is read
// once by the caller so every subscription of a request sees the same cutoff.
func (s *Service) changeCombo(ctx context.Context, out *outcome, sub *subscription.Subscription, orders []*subscription.Order, combo subscription.ComboType, price decimal.Decimal, operatorID *uuid.UUID, now time.Time) (int, *ledger.Entry, error) {
	out.track(sub)
	cutoff, err := s.cutoffFor(ctx, sub.TenantID, sub.AccountID, now)
	if err != nil {
		return 0, nil, err
	}

	oldPrices := make(map[uuid.UUID]decimal.Decimal, len(orders))
	for _, o := range orders {
		oldPrices[o.ID] = o.Price
	}
	changes, err := s.lifecycle.ChangeCombo(sub, orders, combo, price, cutoff)
	if err != nil {
		return 0, nil, err
	}
	if err := s.persist(ctx, sub, changes); err != nil {
		return 0, nil, err
	}

	delta := decimal.Zero
	for _, o := range changes.Updated {
		delta = delta.Add(oldPrices[o.ID].Sub(o.Price))
	}
	description := fmt.Sprintf("Subscription %s changed to %s", sub.ID, combo)
	var entry *ledger.Entry
	switch {
	case delta.IsPositive():
		entry, err = s.charge(ctx, out, sub, ledger.EntryTypeRefund, delta, nil, operatorID, description, cutoff.Evaluated)
	case delta.IsNegative():
		entry, err = s.charge(ctx, out, sub, ledger.EntryTypeDeduction, delta.Neg(), nil, operatorID, description, cutoff.Evaluated)
	}
	if err != nil {
		return 0, nil, err
	}
	return len(changes.Updated), entry, nil
}

// currentFor resolves the subscription a by-employee request acts on, using the
// local date of the employee's account.
func (s *Service) currentFor(ctx context.Context, tenantID, employeeID uuid.UUID, now time.Time) (*subscription.Subscription, error) {
	emp, err := s.employees.FindByID(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	cutoff, err := s.cutoffFor(ctx, tenantID, emp.AccountID, now)
	if err != nil {
		return nil, err
	}
	return s.subscriptions.FindCurrentByEmployee(ctx, tenantID, employeeID, cutoff.Today)
}

// BulkUpdate changes the combo of several employees' current subscriptions in one
// transaction. Employees without a current subscription are skipped. Every
// employee is evaluated against the same instant.
func (s *Service) BulkUpdate(ctx context.Context, req BulkUpdateRequest) (result *BulkUpdateResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "bulk_update",
		attribute.Int("employee_count", len(req.EmployeeIDs)),
		attribute.String("combo_type", req.ComboType))
	defer func() { telemetry.EndSpan(span, err) }()

	employeeIDs := uniqueIDs(req.EmployeeIDs)
	if len(employeeIDs) == 0 {
		return nil, shared.NewValidationError("At least one employee is required")
	}
	combo, price, err := s.price(req.ComboType)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.run(ctx, req.TenantID, "subscription.bulk_update", func(ctx context.Context, out *outcome) error {
		res := &BulkUpdateResult{}
		for _, employeeID := range employeeIDs {
			found, err := s.currentFor(ctx, req.TenantID, employeeID, now)
			if shared.ErrorCode(err) == shared.CodeNotFound {
				res.Skipped = append(res.Skipped, employeeID)
				continue
			}
			if err != nil {
				return err
			}
			sub, orders, err := s.lockSubscription(ctx, req.TenantID, found.ID)
			if err != nil {
				return err
			}
			updated, _, err := s.changeCombo(ctx, out, sub, orders, combo, price, req.OperatorID, now)
			if err != nil {
				return err
			}
			res.UpdatedCount++
			res.UpdatedOrderCount += updated
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("Subscriptions bulk updated",
		zap.String("combo_type", combo.String()),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}
