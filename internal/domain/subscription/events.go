package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSubscription = "Subscription"

// Event type constants
const (
	EventTypeSubscriptionCreated      = "SubscriptionCreated"
	EventTypeSubscriptionPaused       = "SubscriptionPaused"
	EventTypeSubscriptionResumed      = "SubscriptionResumed"
	EventTypeSubscriptionExtended     = "SubscriptionExtended"
	EventTypeSubscriptionComboChanged = "SubscriptionComboChanged"
	EventTypeSubscriptionCompleted    = "SubscriptionCompleted"
	EventTypeOrderFrozen              = "OrderFrozen"
	EventTypeOrderUnfrozen            = "OrderUnfrozen"
	EventTypeOrderCancelled           = "OrderCancelled"
)

// SubscriptionCreatedEvent is raised when a subscription is configured for an employee
type SubscriptionCreatedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	EmployeeID     uuid.UUID       `json:"employee_id"`
	AccountID      uuid.UUID       `json:"account_id"`
	ComboType      ComboType       `json:"combo_type"`
	TotalDays      int             `json:"total_days"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	StartDate      calendar.Date   `json:"start_date"`
}

// NewSubscriptionCreatedEvent creates a new SubscriptionCreatedEvent
func NewSubscriptionCreatedEvent(s *Subscription, now time.Time) *SubscriptionCreatedEvent {
	return &SubscriptionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionCreated, AggregateTypeSubscription, s.ID, s.TenantID, now),
		SubscriptionID:  s.ID,
		EmployeeID:      s.EmployeeID,
		AccountID:       s.AccountID,
		ComboType:       s.ComboType,
		TotalDays:       s.TotalDays,
		TotalPrice:      s.TotalPrice,
		StartDate:       s.StartDate,
	}
}

// SubscriptionPausedEvent is raised when a subscription is paused
type SubscriptionPausedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	EmployeeID     uuid.UUID `json:"employee_id"`
}

// NewSubscriptionPausedEvent creates a new SubscriptionPausedEvent
func NewSubscriptionPausedEvent(s *Subscription, now time.Time) *SubscriptionPausedEvent {
	return &SubscriptionPausedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionPaused, AggregateTypeSubscription, s.ID, s.TenantID, now),
		SubscriptionID:  s.ID,
		EmployeeID:      s.EmployeeID,
	}
}

// SubscriptionResumedEvent is raised when a paused subscription resumes
type SubscriptionResumedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	ElapsedDays    int       `json:"elapsed_days"`
	SkippedOrders  int       `json:"skipped_orders"`
}

// NewSubscriptionResumedEvent creates a new SubscriptionResumedEvent
func NewSubscriptionResumedEvent(s *Subscription, elapsed, skipped int, now time.Time) *SubscriptionResumedEvent {
	return &SubscriptionResumedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionResumed, AggregateTypeSubscription, s.ID, s.TenantID, now),
		SubscriptionID:  s.ID,
		ElapsedDays:     elapsed,
		SkippedOrders:   skipped,
	}
}

// SubscriptionExtendedEvent is raised when contracted days are added
type SubscriptionExtendedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	AddedDays      int       `json:"added_days"`
}

// NewSubscriptionExtendedEvent creates a new SubscriptionExtendedEvent
func NewSubscriptionExtendedEvent(s *Subscription, days int, now time.Time) *SubscriptionExtendedEvent {
	return &SubscriptionExtendedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionExtended, AggregateTypeSubscription, s.ID, s.TenantID, now),
		SubscriptionID:  s.ID,
		AddedDays:       days,
	}
}

// SubscriptionComboChangedEvent is raised when the combo and price change
type SubscriptionComboChangedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID  uuid.UUID       `json:"subscription_id"`
	OldComboType    ComboType       `json:"old_combo_type"`
	NewComboType    ComboType       `json:"new_combo_type"`
	RemainingOrders int             `json:"remaining_orders"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// NewSubscriptionComboChangedEvent creates a new SubscriptionComboChangedEvent
func NewSubscriptionComboChangedEvent(s *Subscription, old ComboType, remaining int, now time.Time) *SubscriptionComboChangedEvent {
	return &SubscriptionComboChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionComboChanged, AggregateTypeSubscription, s.ID, s.TenantID, now),
		SubscriptionID:  s.ID,
		OldComboType:    old,
		NewComboType:    s.ComboType,
		RemainingOrders: remaining,
		TotalPrice:      s.TotalPrice,
	}
}

// SubscriptionCompletedEvent is raised when a subscription reaches its terminal state
type SubscriptionCompletedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	Reason         string    `json:"reason"`
}

// NewSubscriptionCompletedEvent creates a new SubscriptionCompletedEvent
func NewSubscriptionCompletedEvent(s *Subscription, reason string, now time.Time) *SubscriptionCompletedEvent {
	return &SubscriptionCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionCompleted, AggregateTypeSubscription, s.ID, s.TenantID, now),
		SubscriptionID:  s.ID,
		Reason:          reason,
	}
}

// OrderFrozenEvent is raised when an order is frozen and a replacement day appended
type OrderFrozenEvent struct {
	shared.BaseDomainEvent
	OrderID         uuid.UUID     `json:"order_id"`
	EmployeeID      uuid.UUID     `json:"employee_id"`
	OrderDate       calendar.Date `json:"order_date"`
	ReplacementDate calendar.Date `json:"replacement_date"`
	RemainingQuota  int           `json:"remaining_quota"`
}

// NewOrderFrozenEvent creates a new OrderFrozenEvent
func NewOrderFrozenEvent(s *Subscription, o *Order, replacement calendar.Date, remaining int, now time.Time) *OrderFrozenEvent {
	return &OrderFrozenEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderFrozen, AggregateTypeSubscription, s.ID, s.TenantID, now),
		OrderID:         o.ID,
		EmployeeID:      o.EmployeeID,
		OrderDate:       o.Date,
		ReplacementDate: replacement,
		RemainingQuota:  remaining,
	}
}

// OrderUnfrozenEvent is raised when a frozen order is restored
type OrderUnfrozenEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID     `json:"order_id"`
	OrderDate   calendar.Date `json:"order_date"`
	RemovedDate calendar.Date `json:"removed_date"`
}

// NewOrderUnfrozenEvent creates a new OrderUnfrozenEvent
func NewOrderUnfrozenEvent(s *Subscription, o *Order, removed calendar.Date, now time.Time) *OrderUnfrozenEvent {
	return &OrderUnfrozenEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderUnfrozen, AggregateTypeSubscription, s.ID, s.TenantID, now),
		OrderID:         o.ID,
		OrderDate:       o.Date,
		RemovedDate:     removed,
	}
}

// OrderCancelledEvent is raised when an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID       `json:"order_id"`
	OrderDate calendar.Date   `json:"order_date"`
	Price     decimal.Decimal `json:"price"`
	Reason    string          `json:"reason"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(s *Subscription, o *Order, now time.Time) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeSubscription, s.ID, s.TenantID, now),
		OrderID:         o.ID,
		OrderDate:       o.Date,
		Price:           o.Price,
		Reason:          o.CancelReason,
	}
}
