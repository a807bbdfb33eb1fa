package subscription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func freezeLockKey(tenantID, employeeID uuid.UUID) string {
	return fmt.Sprintf("freeze:%s:%s", tenantID, employeeID)
}

// lockEmployee serializes quota decisions of one employee across instances. The
// row lock taken inside the transaction is the authoritative guard.
func (s *Service) lockEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, freezeLockKey(tenantID, employeeID), s.lockTTL)
	if err != nil {
		return nil, err
	}
	return func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			s.log(ctx).Warn("Failed to release freeze lock", zap.Error(rerr))
		}
	}, nil
}

// orderInScope locks the employee and subscription of order and returns the
// order instance from the freshly loaded order list
func (s *Service) orderInScope(ctx context.Context, tenantID uuid.UUID, order *subscription.Order) (*subscription.Subscription, *subscription.Order, []*subscription.Order, error) {
	if _, err := s.employees.LockForUpdate(ctx, tenantID, order.EmployeeID); err != nil {
		return nil, nil, nil, err
	}
	sub, orders, err := s.lockSubscription(ctx, tenantID, order.SubscriptionID)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, o := range orders {
		if o.ID == order.ID {
			return sub, o, orders, nil
		}
	}
	return nil, nil, nil, shared.NewIntegrityViolationError(
		fmt.Sprintf("Order %s is missing from subscription %s", order.ID, sub.ID))
}

// Freeze defers one order to the end of its subscription and consumes one unit
// of the employee's weekly quota for the order's ISO week
func (s *Service) Freeze(ctx context.Context, req FreezeRequest) (result *FreezeResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "freeze",
		attribute.String("order_id", req.OrderID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	target, err := s.orders.FindByID(ctx, req.TenantID, req.OrderID)
	if err != nil {
		s.observe(ctx, req.TenantID, "order.freeze", err)
		return nil, err
	}
	unlock, err := s.lockEmployee(ctx, req.TenantID, target.EmployeeID)
	if err != nil {
		s.observe(ctx, req.TenantID, "order.freeze", err)
		return nil, err
	}
	defer unlock()

	now := s.clock.Now()
	err = s.run(ctx, req.TenantID, "order.freeze", func(ctx context.Context, out *outcome) error {
		sub, order, orders, err := s.orderInScope(ctx, req.TenantID, target)
		if err != nil {
			return err
		}
		out.track(sub)
		cutoff, err := s.cutoffFor(ctx, req.TenantID, sub.AccountID, now)
		if err != nil {
			return err
		}
		used, err := s.freezes.CountByEmployeeWeek(ctx, req.TenantID, order.EmployeeID, order.Date.ISOWeek())
		if err != nil {
			return fmt.Errorf("failed to count freezes: %w", err)
		}
		changes, err := s.lifecycle.Freeze(sub, order, orders, used, cutoff, req.Reason)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, sub, changes); err != nil {
			return err
		}
		after := s.lifecycle.Quota().Evaluate(order.Date, used+1)
		result = &FreezeResult{
			Order:        order,
			Replacement:  changes.Replacement,
			Subscription: sub,
			Quota: QuotaInfo{
				Week:      after.Week,
				Used:      after.Used,
				Limit:     after.Limit,
				Remaining: after.Remaining,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("Order frozen",
		zap.String("order_id", req.OrderID.String()),
		zap.String("date", result.Order.Date.String()),
		zap.String("replacement_date", result.Replacement.Date.String()),
		zap.Int("quota_remaining", result.Quota.Remaining))
	return result, nil
}

// Unfreeze restores a frozen order and withdraws the tail order. The freeze
// still counts against the weekly quota.
func (s *Service) Unfreeze(ctx context.Context, tenantID, orderID uuid.UUID) (result *UnfreezeResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "unfreeze",
		attribute.String("order_id", orderID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	target, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		s.observe(ctx, tenantID, "order.unfreeze", err)
		return nil, err
	}
	unlock, err := s.lockEmployee(ctx, tenantID, target.EmployeeID)
	if err != nil {
		s.observe(ctx, tenantID, "order.unfreeze", err)
		return nil, err
	}
	defer unlock()

	now := s.clock.Now()
	err = s.run(ctx, tenantID, "order.unfreeze", func(ctx context.Context, out *outcome) error {
		sub, order, orders, err := s.orderInScope(ctx, tenantID, target)
		if err != nil {
			return err
		}
		out.track(sub)
		cutoff, err := s.cutoffFor(ctx, tenantID, sub.AccountID, now)
		if err != nil {
			return err
		}
		changes, err := s.lifecycle.Unfreeze(sub, order, orders, cutoff)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, sub, changes); err != nil {
			return err
		}
		result = &UnfreezeResult{Order: order, Removed: changes.Removed[0], Subscription: sub}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("Order unfrozen",
		zap.String("order_id", orderID.String()),
		zap.String("removed_date", result.Removed.Date.String()))
	return result, nil
}

// CancelOrder cancels one order before its cutoff and refunds its price
func (s *Service) CancelOrder(ctx context.Context, req CancelOrderRequest) (result *CancelOrderResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "cancel_order",
		attribute.String("order_id", req.OrderID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	target, err := s.orders.FindByID(ctx, req.TenantID, req.OrderID)
	if err != nil {
		s.observe(ctx, req.TenantID, "order.cancel", err)
		return nil, err
	}

	now := s.clock.Now()
	err = s.run(ctx, req.TenantID, "order.cancel", func(ctx context.Context, out *outcome) error {
		sub, orders, err := s.lockSubscription(ctx, req.TenantID, target.SubscriptionID)
		if err != nil {
			return err
		}
		out.track(sub)
		var order *subscription.Order
		for _, o := range orders {
			if o.ID == target.ID {
				order = o
				break
			}
		}
		if order == nil {
			return shared.NewIntegrityViolationError(
				fmt.Sprintf("Order %s is missing from subscription %s", target.ID, sub.ID))
		}
		cutoff, err := s.cutoffFor(ctx, req.TenantID, sub.AccountID, now)
		if err != nil {
			return err
		}
		changes, err := s.lifecycle.CancelOrder(sub, order, cutoff, req.Reason)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, sub, changes); err != nil {
			return err
		}
		orderID := order.ID
		description := fmt.Sprintf("Order %s on %s cancelled", order.ID, order.Date)
		refund, err := s.charge(ctx, out, sub, ledger.EntryTypeRefund, sumPrices(changes.Cancelled), &orderID, req.OperatorID, description, cutoff.Evaluated)
		if err != nil {
			return err
		}
		result = &CancelOrderResult{Order: order, Subscription: sub, Refund: refund}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("Order cancelled",
		zap.String("order_id", req.OrderID.String()),
		zap.String("date", result.Order.Date.String()))
	return result, nil
}

// GetFreezeInfo reports the employee's freeze usage in the current local ISO week
func (s *Service) GetFreezeInfo(ctx context.Context, tenantID, employeeID uuid.UUID) (*FreezeInfo, error) {
	emp, err := s.employees.FindByID(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	cutoff, err := s.cutoffFor(ctx, tenantID, emp.AccountID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.freezeInfo(ctx, tenantID, employeeID, cutoff.Today)
}

func (s *Service) freezeInfo(ctx context.Context, tenantID, employeeID uuid.UUID, today calendar.Date) (*FreezeInfo, error) {
	week := today.ISOWeek()
	used, err := s.freezes.CountByEmployeeWeek(ctx, tenantID, employeeID, week)
	if err != nil {
		return nil, fmt.Errorf("failed to count freezes: %w", err)
	}
	records, err := s.freezes.FindByEmployeeWeek(ctx, tenantID, employeeID, week)
	if err != nil {
		return nil, fmt.Errorf("failed to load freezes: %w", err)
	}
	decision := s.lifecycle.Quota().Evaluate(today, used)
	return &FreezeInfo{
		EmployeeID:   employeeID,
		Week:         week,
		WeekStart:    week.Start(),
		WeekEnd:      week.End(),
		UsedThisWeek: used,
		Limit:        decision.Limit,
		Remaining:    decision.Remaining,
		Records:      records,
	}, nil
}
