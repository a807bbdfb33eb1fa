package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Subscription is a purchased commitment of N meal-days for one employee.
// EndDate is always the date of the last scheduled order; the schedule holds
// TotalDays + FrozenDays + PausedDays slots.
type Subscription struct {
	shared.TenantAggregateRoot
	EmployeeID      uuid.UUID
	AccountID       uuid.UUID
	StartDate       calendar.Date
	EndDate         calendar.Date
	TotalDays       int
	TotalPrice      decimal.Decimal
	ComboType       ComboType
	Price           decimal.Decimal
	Pattern         SchedulePattern
	Weekdays        []time.Weekday // only for ScheduleCustom
	Status          Status
	PausedAt        *time.Time
	PausedOn        *calendar.Date
	PausedDays      int
	OriginalEndDate *calendar.Date // set on the first freeze, cleared when FrozenDays returns to 0
	FrozenDays      int
	CompletedAt     *time.Time
}

// NewSubscriptionParams holds the inputs of NewSubscription
type NewSubscriptionParams struct {
	TenantID   uuid.UUID
	EmployeeID uuid.UUID
	AccountID  uuid.UUID
	StartDate  calendar.Date
	TotalDays  int
	ComboType  ComboType
	Price      decimal.Decimal
	Pattern    SchedulePattern
	Weekdays   []time.Weekday
	CreatedBy  *uuid.UUID
}

// NewSubscription validates params and creates an Active subscription.
// EndDate is left for the schedule generator to fill in.
func NewSubscription(p NewSubscriptionParams, now time.Time) (*Subscription, error) {
	if p.TenantID == uuid.Nil {
		return nil, shared.NewValidationError("Tenant ID cannot be empty")
	}
	if p.EmployeeID == uuid.Nil {
		return nil, shared.NewValidationError("Employee ID cannot be empty")
	}
	if p.AccountID == uuid.Nil {
		return nil, shared.NewValidationError("Account ID cannot be empty")
	}
	if p.StartDate.IsZero() {
		return nil, shared.NewValidationError("Start date is required")
	}
	if p.TotalDays <= 0 {
		return nil, shared.NewValidationError("Total days must be positive")
	}
	if p.ComboType == "" {
		return nil, shared.NewValidationError("Combo type is required")
	}
	if p.Price.IsNegative() {
		return nil, shared.NewValidationError("Combo price cannot be negative")
	}
	if p.Pattern == "" {
		p.Pattern = ScheduleEveryDay
	}
	if !p.Pattern.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown schedule pattern %s", p.Pattern))
	}
	if p.Pattern == ScheduleCustom && len(p.Weekdays) == 0 {
		return nil, shared.NewValidationError("Custom schedule requires at least one weekday")
	}

	sub := &Subscription{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(p.TenantID, now),
		EmployeeID:          p.EmployeeID,
		AccountID:           p.AccountID,
		StartDate:           p.StartDate,
		TotalDays:           p.TotalDays,
		TotalPrice:          p.Price.Mul(decimal.NewFromInt(int64(p.TotalDays))),
		ComboType:           p.ComboType,
		Price:               p.Price,
		Pattern:             p.Pattern,
		Weekdays:            p.Weekdays,
		Status:              StatusActive,
	}
	sub.CreatedBy = p.CreatedBy
	sub.AddDomainEvent(NewSubscriptionCreatedEvent(sub, now))
	return sub, nil
}

// PlannedDays is the number of schedule slots the subscription owns
func (s *Subscription) PlannedDays() int {
	return s.TotalDays + s.FrozenDays + s.PausedDays
}

// IsExpired reports whether the window ended before today
func (s *Subscription) IsExpired(today calendar.Date) bool {
	return !s.EndDate.IsZero() && s.EndDate.Before(today)
}

// ensureMutable rejects any change to a completed subscription
func (s *Subscription) ensureMutable() error {
	if s.Status.IsTerminal() {
		return shared.NewInvalidTransitionError("Subscription is completed and cannot be modified")
	}
	return nil
}

// Pause moves an Active subscription to Paused. Orders are cascaded by the lifecycle.
func (s *Subscription) Pause(now time.Time, today calendar.Date) error {
	if err := s.ensureMutable(); err != nil {
		return err
	}
	if s.Status == StatusPaused || s.PausedAt != nil {
		return shared.NewInvalidTransitionError("Subscription is already paused")
	}
	if s.IsExpired(today) {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Subscription expired on %s", s.EndDate))
	}
	if !s.Status.CanTransitionTo(StatusPaused) {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Cannot pause subscription in %s status", s.Status))
	}

	s.Status = StatusPaused
	s.PausedAt = &now
	s.PausedOn = &today
	s.UpdatedAt = now
	s.AddDomainEvent(NewSubscriptionPausedEvent(s, now))
	return nil
}

// PausedElapsedDays returns whole local days since the pause began
func (s *Subscription) PausedElapsedDays(today calendar.Date) int {
	if s.PausedOn == nil {
		return 0
	}
	days := today.DaysSince(*s.PausedOn)
	if days < 0 {
		return 0
	}
	return days
}

// Resume moves a Paused subscription back to Active. The whole days elapsed
// since the pause are added to PausedDays, which moves the end date forward by
// as many schedule slots. skippedOrders is the number of paused orders whose
// date went by and is only reported on the event.
func (s *Subscription) Resume(now time.Time, today calendar.Date, skippedOrders int) error {
	if err := s.ensureMutable(); err != nil {
		return err
	}
	if s.Status != StatusPaused {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Cannot resume subscription in %s status", s.Status))
	}
	if s.IsExpired(today) {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Subscription expired on %s", s.EndDate))
	}

	elapsed := s.PausedElapsedDays(today)
	s.PausedDays += elapsed
	s.Status = StatusActive
	s.PausedAt = nil
	s.PausedOn = nil
	s.UpdatedAt = now
	s.AddDomainEvent(NewSubscriptionResumedEvent(s, elapsed, skippedOrders, now))
	return nil
}

// RecordFreeze grows the schedule by one slot for a frozen order
func (s *Subscription) RecordFreeze(now time.Time) error {
	if err := s.ensureMutable(); err != nil {
		return err
	}
	if s.Status != StatusActive {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Cannot freeze orders of a subscription in %s status", s.Status))
	}
	if s.OriginalEndDate == nil {
		original := s.EndDate
		s.OriginalEndDate = &original
	}
	s.FrozenDays++
	s.UpdatedAt = now
	return nil
}

// RecordUnfreeze shrinks the schedule by one slot for an unfrozen order
func (s *Subscription) RecordUnfreeze(now time.Time) error {
	if err := s.ensureMutable(); err != nil {
		return err
	}
	if s.Status != StatusActive {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Cannot unfreeze orders of a subscription in %s status", s.Status))
	}
	if s.FrozenDays <= 0 {
		return shared.NewIntegrityViolationError(
			fmt.Sprintf("Subscription %s has a frozen order but frozen day count is %d", s.ID, s.FrozenDays))
	}
	s.FrozenDays--
	if s.FrozenDays == 0 {
		s.OriginalEndDate = nil
	}
	s.UpdatedAt = now
	return nil
}

// Extend adds contracted days to the subscription
func (s *Subscription) Extend(days int, now time.Time) error {
	if err := s.ensureMutable(); err != nil {
		return err
	}
	if days <= 0 {
		return shared.NewValidationError("Extension days must be positive")
	}
	s.TotalDays += days
	s.TotalPrice = s.TotalPrice.Add(s.Price.Mul(decimal.NewFromInt(int64(days))))
	s.UpdatedAt = now
	s.AddDomainEvent(NewSubscriptionExtendedEvent(s, days, now))
	return nil
}

// ChangeCombo switches the combo and sets TotalPrice to remainingOrders x price
func (s *Subscription) ChangeCombo(combo ComboType, price decimal.Decimal, remainingOrders int, now time.Time) error {
	if err := s.ensureMutable(); err != nil {
		return err
	}
	if combo == "" {
		return shared.NewValidationError("Combo type is required")
	}
	if price.IsNegative() {
		return shared.NewValidationError("Combo price cannot be negative")
	}
	if remainingOrders < 0 {
		return shared.NewIntegrityViolationError("Remaining order count cannot be negative")
	}

	oldCombo := s.ComboType
	s.ComboType = combo
	s.Price = price
	s.TotalPrice = price.Mul(decimal.NewFromInt(int64(remainingOrders)))
	s.UpdatedAt = now
	s.AddDomainEvent(NewSubscriptionComboChangedEvent(s, oldCombo, remainingOrders, now))
	return nil
}

// Complete ends the subscription; it is terminal and used for both natural
// completion and cancellation.
func (s *Subscription) Complete(now time.Time, reason string) error {
	if err := s.ensureMutable(); err != nil {
		return err
	}
	s.Status = StatusCompleted
	s.PausedAt = nil
	s.PausedOn = nil
	s.CompletedAt = &now
	s.UpdatedAt = now
	s.AddDomainEvent(NewSubscriptionCompletedEvent(s, reason, now))
	return nil
}
