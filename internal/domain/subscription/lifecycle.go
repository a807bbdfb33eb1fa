package subscription

import (
	"fmt"
	"time"

	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Cancellation reasons recorded on orders and completed subscriptions
const (
	ReasonSubscriptionCancelled = "SUBSCRIPTION_CANCELLED"
	ReasonExpired               = "EXPIRED"
	ReasonCancelledByAdmin      = "CANCELLED_BY_ADMIN"
)

// Changes collects the order rows a transition touched. The caller persists all
// of them, together with the subscription, in one transaction. On error the
// in-memory entities may be partially mutated and must be discarded.
type Changes struct {
	Created      []*Order
	Updated      []*Order
	Removed      []*Order // tail orders withdrawn by unfreeze, also listed in Updated
	Cancelled    []*Order // orders cancelled with a refundable price, also listed in Updated
	FreezeRecord *FreezeRecord
	Replacement  *Order
	Quota        *QuotaDecision
}

func (c *Changes) update(o *Order) {
	c.Updated = append(c.Updated, o)
}

// Lifecycle coordinates the subscription and order state machines with the
// schedule generator and the freeze quota
type Lifecycle struct {
	generator *Generator
	quota     FreezeQuota
}

// NewLifecycle creates a lifecycle service
func NewLifecycle(generator *Generator, quota FreezeQuota) *Lifecycle {
	if generator == nil {
		generator = NewGenerator()
	}
	return &Lifecycle{generator: generator, quota: quota}
}

// Generator returns the schedule generator
func (l *Lifecycle) Generator() *Generator {
	return l.generator
}

// Quota returns the freeze quota
func (l *Lifecycle) Quota() FreezeQuota {
	return l.quota
}

// Create builds a subscription and its full order schedule. The start date may not be in the past.
func (l *Lifecycle) Create(p NewSubscriptionParams, now time.Time, today calendar.Date) (*Subscription, []*Order, error) {
	if err := calendar.CheckNotPast(p.StartDate, today); err != nil {
		return nil, nil, err
	}
	sub, err := NewSubscription(p, now)
	if err != nil {
		return nil, nil, err
	}
	l.generator.SyncEndDate(sub)
	orders, err := l.generator.Append(sub, nil, now)
	if err != nil {
		return nil, nil, err
	}
	return sub, orders, nil
}

// TotalDaysForWindow converts an inclusive [start, end] window into a day count for the pattern
func (l *Lifecycle) TotalDaysForWindow(p NewSubscriptionParams, end calendar.Date) (int, error) {
	if end.Before(p.StartDate) {
		return 0, shared.NewValidationError(fmt.Sprintf("End date %s is before start date %s", end, p.StartDate))
	}
	n := l.generator.CountBetween(p.Pattern, p.Weekdays, p.StartDate, end)
	if n == 0 {
		return 0, shared.NewValidationError("Window contains no delivery days")
	}
	return n, nil
}

// Pause pauses the subscription and every Active order dated today or later
func (l *Lifecycle) Pause(sub *Subscription, orders []*Order, now time.Time, today calendar.Date) (Changes, error) {
	var changes Changes
	if err := sub.Pause(now, today); err != nil {
		return changes, err
	}
	for _, o := range orders {
		if o.Date.Before(today) {
			continue
		}
		if o.Pause(now) {
			changes.update(o)
		}
	}
	return changes, nil
}

// Resume resumes the subscription. The whole days elapsed since the pause are
// added to the paused day count and appended at the tail. Paused orders dated
// before today are closed as skipped; those from today on become Active again.
func (l *Lifecycle) Resume(sub *Subscription, orders []*Order, now time.Time, today calendar.Date) (Changes, error) {
	var changes Changes
	skipped := 0
	for _, o := range orders {
		if o.Status == OrderStatusPaused && o.Date.Before(today) {
			skipped++
		}
	}

	if err := sub.Resume(now, today, skipped); err != nil {
		return changes, err
	}
	for _, o := range orders {
		var changed bool
		if o.Date.Before(today) {
			changed = o.Skip(now)
		} else {
			changed = o.Resume(now)
		}
		if changed {
			changes.update(o)
		}
	}
	l.generator.SyncEndDate(sub)
	created, err := l.generator.Append(sub, orders, now)
	if err != nil {
		return changes, err
	}
	changes.Created = created
	return changes, nil
}

// Freeze freezes one order, records the freeze against the employee's weekly quota,
// grows the subscription by one day and appends the replacement order.
// usedThisWeek is the employee's freeze count in the ISO week of the order date.
func (l *Lifecycle) Freeze(sub *Subscription, order *Order, orders []*Order, usedThisWeek int, cutoff calendar.CutoffStatus, reason string) (Changes, error) {
	var changes Changes
	now := cutoff.Evaluated

	if order.SubscriptionID != sub.ID {
		return changes, shared.NewIntegrityViolationError(
			fmt.Sprintf("Order %s does not belong to subscription %s", order.ID, sub.ID))
	}
	if err := sub.ensureMutable(); err != nil {
		return changes, err
	}
	if sub.Status != StatusActive {
		return changes, shared.NewInvalidTransitionError(fmt.Sprintf("Cannot freeze orders of a subscription in %s status", sub.Status))
	}
	if err := order.CheckFreezable(cutoff); err != nil {
		return changes, err
	}
	decision := l.quota.Evaluate(order.Date, usedThisWeek)
	changes.Quota = &decision
	if err := decision.Require(); err != nil {
		return changes, err
	}

	if err := order.Freeze(cutoff, reason); err != nil {
		return changes, err
	}
	changes.update(order)

	if err := sub.RecordFreeze(now); err != nil {
		return changes, err
	}
	l.generator.SyncEndDate(sub)
	created, err := l.generator.Append(sub, orders, now)
	if err != nil {
		return changes, err
	}
	if len(created) != 1 {
		return changes, shared.NewIntegrityViolationError(
			fmt.Sprintf("Freezing order %s produced %d replacement orders, expected 1", order.ID, len(created)))
	}
	replacement := created[0]
	replacement.IsReplacement = true
	replacementDate := replacement.Date
	order.ReplacementDate = &replacementDate

	changes.Created = created
	changes.Replacement = replacement
	changes.FreezeRecord = NewFreezeRecord(order, decision, reason, now)

	after := l.quota.Evaluate(order.Date, usedThisWeek+1)
	sub.AddDomainEvent(NewOrderFrozenEvent(sub, order, replacementDate, after.Remaining, now))
	return changes, nil
}

// Unfreeze restores a frozen order, shrinks the subscription by one day and
// withdraws the tail order. The tail must still be unconsumed; anything else is
// reported as an integrity violation.
func (l *Lifecycle) Unfreeze(sub *Subscription, order *Order, orders []*Order, cutoff calendar.CutoffStatus) (Changes, error) {
	var changes Changes
	now := cutoff.Evaluated

	if order.SubscriptionID != sub.ID {
		return changes, shared.NewIntegrityViolationError(
			fmt.Sprintf("Order %s does not belong to subscription %s", order.ID, sub.ID))
	}
	if err := sub.ensureMutable(); err != nil {
		return changes, err
	}
	if err := order.Unfreeze(cutoff); err != nil {
		return changes, err
	}
	changes.update(order)

	if err := sub.RecordUnfreeze(now); err != nil {
		return changes, err
	}
	surplus, err := l.generator.Surplus(sub, orders)
	if err != nil {
		return changes, err
	}
	if len(surplus) != 1 {
		return changes, shared.NewIntegrityViolationError(
			fmt.Sprintf("Unfreezing order %s would remove %d tail orders, expected 1", order.ID, len(surplus)))
	}
	tail := surplus[0]
	tail.markCancelled(now, CancelReasonTailRemoved)
	changes.update(tail)
	changes.Removed = append(changes.Removed, tail)
	l.generator.SyncEndDate(sub)

	sub.AddDomainEvent(NewOrderUnfrozenEvent(sub, order, tail.Date, now))
	return changes, nil
}

// CancelOrder cancels one order of the subscription
func (l *Lifecycle) CancelOrder(sub *Subscription, order *Order, cutoff calendar.CutoffStatus, reason string) (Changes, error) {
	var changes Changes
	if order.SubscriptionID != sub.ID {
		return changes, shared.NewIntegrityViolationError(
			fmt.Sprintf("Order %s does not belong to subscription %s", order.ID, sub.ID))
	}
	if err := sub.ensureMutable(); err != nil {
		return changes, err
	}
	if reason == "" {
		reason = ReasonCancelledByAdmin
	}
	if err := order.Cancel(cutoff, reason); err != nil {
		return changes, err
	}
	changes.update(order)
	changes.Cancelled = append(changes.Cancelled, order)
	sub.AddDomainEvent(NewOrderCancelledEvent(sub, order, cutoff.Evaluated))
	return changes, nil
}

// remaining returns the non-terminal orders that can still be changed under cutoff
func remaining(orders []*Order, cutoff calendar.CutoffStatus) []*Order {
	var out []*Order
	for _, o := range orders {
		if o.Status.IsTerminal() || !o.OccupiesSlot() {
			continue
		}
		if calendar.CheckMutable(o.Date, cutoff) != nil {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ChangeCombo moves the subscription and all of its changeable future orders to a
// new combo. TotalPrice becomes remaining order count x new price.
func (l *Lifecycle) ChangeCombo(sub *Subscription, orders []*Order, combo ComboType, price decimal.Decimal, cutoff calendar.CutoffStatus) (Changes, error) {
	var changes Changes
	now := cutoff.Evaluated
	future := remaining(orders, cutoff)
	if err := sub.ChangeCombo(combo, price, len(future), now); err != nil {
		return changes, err
	}
	for _, o := range future {
		if o.ChangeCombo(combo, price, now) {
			changes.update(o)
		}
	}
	return changes, nil
}

// Extend adds contracted days and appends their orders at the tail
func (l *Lifecycle) Extend(sub *Subscription, orders []*Order, days int, now time.Time) (Changes, error) {
	var changes Changes
	if err := sub.Extend(days, now); err != nil {
		return changes, err
	}
	l.generator.SyncEndDate(sub)
	created, err := l.generator.Append(sub, orders, now)
	if err != nil {
		return changes, err
	}
	if sub.Status == StatusPaused {
		for _, o := range created {
			o.Pause(now)
		}
	}
	changes.Created = created
	return changes, nil
}

// Cancel deactivates the subscription. It becomes Completed and every order that
// can still be changed is cancelled so its price can be refunded.
func (l *Lifecycle) Cancel(sub *Subscription, orders []*Order, cutoff calendar.CutoffStatus) (Changes, error) {
	var changes Changes
	now := cutoff.Evaluated
	if err := sub.Complete(now, ReasonSubscriptionCancelled); err != nil {
		return changes, err
	}
	for _, o := range remaining(orders, cutoff) {
		o.markCancelled(now, ReasonSubscriptionCancelled)
		changes.update(o)
		changes.Cancelled = append(changes.Cancelled, o)
	}
	return changes, nil
}

// CompleteDue completes Active orders dated before today and, once its window
// has ended, the subscription itself. Returns true if the subscription completed.
func (l *Lifecycle) CompleteDue(sub *Subscription, orders []*Order, now time.Time, today calendar.Date) (Changes, bool, error) {
	var changes Changes
	for _, o := range orders {
		if o.Status != OrderStatusActive || !o.Date.Before(today) {
			continue
		}
		if err := o.Complete(now, today); err != nil {
			return changes, false, err
		}
		changes.update(o)
	}
	if sub.Status != StatusActive || !sub.IsExpired(today) {
		return changes, false, nil
	}
	if err := sub.Complete(now, ReasonExpired); err != nil {
		return changes, false, err
	}
	return changes, true, nil
}
