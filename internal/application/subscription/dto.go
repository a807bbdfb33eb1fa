package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/shopspring/decimal"
)

// CreateRequest configures subscriptions for one or more employees. Exactly one
// of EndDate and TotalDays is set.
type CreateRequest struct {
	TenantID    uuid.UUID
	EmployeeIDs []uuid.UUID
	ComboType   string
	StartDate   calendar.Date
	EndDate     *calendar.Date
	TotalDays   int
	Pattern     subscription.SchedulePattern
	Weekdays    []time.Weekday
	OperatorID  *uuid.UUID
}

// ComboChangeRequest targets a subscription directly or through its employee
type ComboChangeRequest struct {
	TenantID       uuid.UUID
	SubscriptionID *uuid.UUID
	EmployeeID     *uuid.UUID
	ComboType      string
	OperatorID     *uuid.UUID
}

// ComboChangeResult reports a combo change
type ComboChangeResult struct {
	Subscription      *subscription.Subscription
	UpdatedOrderCount int
	Adjustment        *ledger.Entry
}

// BulkUpdateRequest moves several employees' current subscriptions to a new combo
type BulkUpdateRequest struct {
	TenantID    uuid.UUID
	EmployeeIDs []uuid.UUID
	ComboType   string
	OperatorID  *uuid.UUID
}

// BulkUpdateResult reports a bulk combo change
type BulkUpdateResult struct {
	UpdatedCount      int
	UpdatedOrderCount int
	Skipped           []uuid.UUID // employees without a current subscription
}

// CancelResult reports a subscription cancellation
type CancelResult struct {
	Subscription    *subscription.Subscription
	CancelledOrders int
	Refund          *ledger.Entry
}

// FreezeRequest asks to defer one order to the end of its subscription
type FreezeRequest struct {
	TenantID   uuid.UUID
	OrderID    uuid.UUID
	Reason     string
	OperatorID *uuid.UUID
}

// QuotaInfo is the employee's freeze quota in one ISO week
type QuotaInfo struct {
	Week      calendar.ISOWeek
	Used      int
	Limit     int
	Remaining int
}

// FreezeResult reports a freeze
type FreezeResult struct {
	Order        *subscription.Order
	Replacement  *subscription.Order
	Subscription *subscription.Subscription
	Quota        QuotaInfo
}

// UnfreezeResult reports an unfreeze
type UnfreezeResult struct {
	Order        *subscription.Order
	Removed      *subscription.Order
	Subscription *subscription.Subscription
}

// CancelOrderRequest asks to cancel one order
type CancelOrderRequest struct {
	TenantID   uuid.UUID
	OrderID    uuid.UUID
	Reason     string
	OperatorID *uuid.UUID
}

// CancelOrderResult reports an order cancellation
type CancelOrderResult struct {
	Order        *subscription.Order
	Subscription *subscription.Subscription
	Refund       *ledger.Entry
}

// FreezeInfo is the employee's freeze usage in the current local week
type FreezeInfo struct {
	EmployeeID   uuid.UUID
	Week         calendar.ISOWeek
	WeekStart    calendar.Date
	WeekEnd      calendar.Date
	UsedThisWeek int
	Limit        int
	Remaining    int
	Records      []*subscription.FreezeRecord
}

// sumPrices totals the prices of orders
func sumPrices(orders []*subscription.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Price)
	}
	return total
}
