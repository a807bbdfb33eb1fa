package subscription

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	// FindByID finds a subscription by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Subscription, error)

	// FindByIDForUpdate finds a subscription and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Subscription, error)

	// FindCurrentByEmployee finds the employee's Active or Paused subscription that
	// has not ended by today: the one covering today, else the next to start.
	FindCurrentByEmployee(ctx context.Context, tenantID, employeeID uuid.UUID, today calendar.Date) (*Subscription, error)

	// FindExpiredActive finds Active subscriptions of an account whose window ended
	// before today, leaving out the subscriptions in exclude
	FindExpiredActive(ctx context.Context, tenantID, accountID uuid.UUID, today calendar.Date, exclude []uuid.UUID, limit int) ([]*Subscription, error)

	// FindAllForTenant lists subscriptions with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*Subscription, int64, error)

	// Create inserts a new subscription
	Create(ctx context.Context, sub *Subscription) error

	// SaveWithLock updates a subscription with an optimistic version check
	SaveWithLock(ctx context.Context, sub *Subscription) error
}

// OrderRepository defines the interface for daily order persistence
type OrderRepository interface {
	// FindByID finds an order by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)

	// FindBySubscription returns all orders of a subscription ordered by date
	FindBySubscription(ctx context.Context, tenantID, subscriptionID uuid.UUID) ([]*Order, error)

	// FindOccupiedDates returns the dates in [from, to] on which the employee already
	// has a non-cancelled order
	FindOccupiedDates(ctx context.Context, tenantID, employeeID uuid.UUID, from, to calendar.Date) ([]calendar.Date, error)

	// FindDueActive returns Active orders of an account dated before today, leaving
	// out orders of the subscriptions in exclude
	FindDueActive(ctx context.Context, tenantID, accountID uuid.UUID, today calendar.Date, exclude []uuid.UUID, limit int) ([]*Order, error)

	// CreateBatch inserts new orders
	CreateBatch(ctx context.Context, orders []*Order) error

	// SaveBatch updates existing orders
	SaveBatch(ctx context.Context, orders []*Order) error

	// SumActiveByAccounts returns the price sum and count of Active orders of the accounts
	SumActiveByAccounts(ctx context.Context, tenantID uuid.UUID, accountIDs []uuid.UUID) (decimal.Decimal, int64, error)

	// CountByAccountsAndDate counts non-cancelled orders of the accounts dated on date
	CountByAccountsAndDate(ctx context.Context, tenantID uuid.UUID, accountIDs []uuid.UUID, date calendar.Date) (int64, error)
}

// FreezeRecordRepository defines the interface for the freeze audit log
type FreezeRecordRepository interface {
	// CountByEmployeeWeek counts the employee's freezes in an ISO week
	CountByEmployeeWeek(ctx context.Context, tenantID, employeeID uuid.UUID, week calendar.ISOWeek) (int, error)

	// Create appends a freeze record; a duplicate (employee, week, ordinal) is rejected
	Create(ctx context.Context, record *FreezeRecord) error

	// FindByEmployeeWeek lists the employee's freezes in an ISO week
	FindByEmployeeWeek(ctx context.Context, tenantID, employeeID uuid.UUID, week calendar.ISOWeek) ([]*FreezeRecord, error)
}
