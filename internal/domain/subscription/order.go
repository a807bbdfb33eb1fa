package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CancelReasonTailRemoved marks a tail order withdrawn because the freeze that added it was undone.
// Such an order no longer occupies its date in the schedule.
const CancelReasonTailRemoved = "TAIL_REMOVED_BY_UNFREEZE"

// CancelReasonSkippedWhilePaused marks a paused order whose date passed before the
// subscription resumed. It keeps its slot; the day is made up at the tail.
const CancelReasonSkippedWhilePaused = "SKIPPED_WHILE_PAUSED"

// Order is one concrete meal delivery for one employee on one date
type Order struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	SubscriptionID  uuid.UUID
	EmployeeID      uuid.UUID
	AccountID       uuid.UUID
	Date            calendar.Date
	ComboType       ComboType
	Price           decimal.Decimal
	Status          OrderStatus
	IsReplacement   bool           // appended to the tail to replace a frozen day
	FrozenAt        *time.Time
	FreezeReason    string
	ReplacementDate *calendar.Date // tail date appended when this order was frozen
	CancelledAt     *time.Time
	CancelReason    string
	CompletedAt     *time.Time
}

// NewOrder creates an Active order for the subscription on date
func NewOrder(sub *Subscription, date calendar.Date, now time.Time) *Order {
	return &Order{
		BaseEntity:     shared.NewBaseEntity(now),
		TenantID:       sub.TenantID,
		SubscriptionID: sub.ID,
		EmployeeID:     sub.EmployeeID,
		AccountID:      sub.AccountID,
		Date:           date,
		ComboType:      sub.ComboType,
		Price:          sub.Price,
		Status:         OrderStatusActive,
	}
}

// OccupiesSlot reports whether the order holds its date in the subscription's schedule
func (o *Order) OccupiesSlot() bool {
	return !(o.Status == OrderStatusCancelled && o.CancelReason == CancelReasonTailRemoved)
}

// IsUnconsumed reports whether the order has not been delivered, frozen or otherwise used
func (o *Order) IsUnconsumed() bool {
	return o.Status == OrderStatusActive
}

// Pause is a derived transition driven by the subscription; it no-ops on any status but Active.
// Returns true if the order changed.
func (o *Order) Pause(now time.Time) bool {
	if o.Status != OrderStatusActive {
		return false
	}
	o.Status = OrderStatusPaused
	o.UpdatedAt = now
	return true
}

// Resume is the inverse of Pause and no-ops on any status but Paused
func (o *Order) Resume(now time.Time) bool {
	if o.Status != OrderStatusPaused {
		return false
	}
	o.Status = OrderStatusActive
	o.UpdatedAt = now
	return true
}

// Skip closes a Paused order whose date went by during the pause. Like Resume it
// no-ops on any status but Paused.
func (o *Order) Skip(now time.Time) bool {
	if o.Status != OrderStatusPaused {
		return false
	}
	o.markCancelled(now, CancelReasonSkippedWhilePaused)
	return true
}

// Cancel cancels an Active order dated local today (before cutoff) or later
func (o *Order) Cancel(cutoff calendar.CutoffStatus, reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	if err := calendar.CheckMutable(o.Date, cutoff); err != nil {
		return err
	}
	o.markCancelled(cutoff.Evaluated, reason)
	return nil
}

func (o *Order) markCancelled(now time.Time, reason string) {
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now
}

// CheckFreezable reports why the order cannot be frozen, if it cannot
func (o *Order) CheckFreezable(cutoff calendar.CutoffStatus) error {
	if o.Status == OrderStatusFrozen {
		return shared.NewInvalidTransitionError("Order is already frozen")
	}
	if !o.Status.CanTransitionTo(OrderStatusFrozen) {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Cannot freeze order in %s status", o.Status))
	}
	return calendar.CheckMutable(o.Date, cutoff)
}

// Freeze defers an Active order; quota and tail extension are handled by the lifecycle
func (o *Order) Freeze(cutoff calendar.CutoffStatus, reason string) error {
	if err := o.CheckFreezable(cutoff); err != nil {
		return err
	}
	now := cutoff.Evaluated
	o.Status = OrderStatusFrozen
	o.FrozenAt = &now
	o.FreezeReason = reason
	o.UpdatedAt = now
	return nil
}

// Unfreeze restores a Frozen order to Active and clears its freeze metadata
func (o *Order) Unfreeze(cutoff calendar.CutoffStatus) error {
	if o.Status != OrderStatusFrozen {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Cannot unfreeze order in %s status", o.Status))
	}
	if err := calendar.CheckMutable(o.Date, cutoff); err != nil {
		return err
	}
	o.Status = OrderStatusActive
	o.FrozenAt = nil
	o.FreezeReason = ""
	o.ReplacementDate = nil
	o.UpdatedAt = cutoff.Evaluated
	return nil
}

// Complete marks an Active order whose date is before today as delivered
func (o *Order) Complete(now time.Time, today calendar.Date) error {
	if !o.Status.CanTransitionTo(OrderStatusCompleted) {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Cannot complete order in %s status", o.Status))
	}
	if !o.Date.Before(today) {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Order for %s is not yet due", o.Date))
	}
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	o.UpdatedAt = now
	return nil
}

// ChangeCombo switches a non-terminal order to a new combo and price
func (o *Order) ChangeCombo(combo ComboType, price decimal.Decimal, now time.Time) bool {
	if o.Status.IsTerminal() {
		return false
	}
	o.ComboType = combo
	o.Price = price
	o.UpdatedAt = now
	return true
}
