package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderBatchSize = 100

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

var _ subscription.OrderRepository = (*GormOrderRepository)(nil)

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by ID for a tenant
func (r *GormOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*subscription.Order, error) {
	var model models.OrderModel
	if err := DB(ctx, r.db).Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Order not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySubscription returns all orders of a subscription ordered by date
func (r *GormOrderRepository) FindBySubscription(ctx context.Context, tenantID, subscriptionID uuid.UUID) ([]*subscription.Order, error) {
	var rows []models.OrderModel
	if err := DB(ctx, r.db).
		Where("tenant_id = ? AND subscription_id = ?", tenantID, subscriptionID).
		Order("date ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toOrders(rows), nil
}

// FindOccupiedDates returns dates in [from, to] holding a non-cancelled order of the employee
func (r *GormOrderRepository) FindOccupiedDates(ctx context.Context, tenantID, employeeID uuid.UUID, from, to calendar.Date) ([]calendar.Date, error) {
	var dates []calendar.Date
	if err := DB(ctx, r.db).Model(&models.OrderModel{}).
		Where("tenant_id = ? AND employee_id = ? AND status <> ? AND date >= ? AND date <= ?",
			tenantID, employeeID, subscription.OrderStatusCancelled, from, to).
		Order("date ASC").
		Pluck("date", &dates).Error; err != nil {
		return nil, err
	}
	return dates, nil
}

// FindDueActive returns Active orders of an account dated before today, leaving
// out orders of the subscriptions in exclude
func (r *GormOrderRepository) FindDueActive(ctx context.Context, tenantID, accountID uuid.UUID, today calendar.Date, exclude []uuid.UUID, limit int) ([]*subscription.Order, error) {
	var rows []models.OrderModel
	query := DB(ctx, r.db).
		Where("tenant_id = ? AND account_id = ? AND status = ? AND date < ?",
			tenantID, accountID, subscription.OrderStatusActive, today)
	// NOT IN with an empty list matches nothing
	if len(exclude) > 0 {
		query = query.Where("subscription_id NOT IN ?", exclude)
	}
	query = query.Order("date ASC").Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toOrders(rows), nil
}

// CreateBatch inserts new orders. A date clash with another live order of the
// same employee surfaces as a concurrent modification.
func (r *GormOrderRepository) CreateBatch(ctx context.Context, orders []*subscription.Order) error {
	if len(orders) == 0 {
		return nil
	}
	rows := make([]*models.OrderModel, len(orders))
	for i, o := range orders {
		rows[i] = models.OrderModelFromDomain(o)
	}
	if err := DB(ctx, r.db).CreateInBatches(rows, orderBatchSize).Error; err != nil {
		if isDuplicate(err) {
			return shared.NewDomainError(shared.CodeConcurrentModification, "Another order already occupies this date")
		}
		return err
	}
	return nil
}

// SaveBatch updates existing orders
func (r *GormOrderRepository) SaveBatch(ctx context.Context, orders []*subscription.Order) error {
	db := DB(ctx, r.db)
	for _, o := range orders {
		model := models.OrderModelFromDomain(o)
		result := db.Model(&models.OrderModel{}).
			Where("tenant_id = ? AND id = ?", o.TenantID, o.ID).
			Select("*").Omit("id", "tenant_id", "created_at").
			Updates(model)
		if result.Error != nil {
			if isDuplicate(result.Error) {
				return shared.NewDomainError(shared.CodeConcurrentModification, "Another order already occupies this date")
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("Order not found")
		}
	}
	return nil
}

// SumActiveByAccounts returns the price sum and count of Active orders of the accounts
func (r *GormOrderRepository) SumActiveByAccounts(ctx context.Context, tenantID uuid.UUID, accountIDs []uuid.UUID) (decimal.Decimal, int64, error) {
	if len(accountIDs) == 0 {
		return decimal.Zero, 0, nil
	}
	var agg struct {
		Total decimal.NullDecimal
		Count int64
	}
	if err := DB(ctx, r.db).Model(&models.OrderModel{}).
		Select("SUM(price) AS total, COUNT(*) AS count").
		Where("tenant_id = ? AND account_id IN ? AND status = ?", tenantID, accountIDs, subscription.OrderStatusActive).
		Scan(&agg).Error; err != nil {
		return decimal.Zero, 0, err
	}
	if !agg.Total.Valid {
		return decimal.Zero, agg.Count, nil
	}
	return agg.Total.Decimal, agg.Count, nil
}

// CountByAccountsAndDate counts non-cancelled orders of the accounts on date
func (r *GormOrderRepository) CountByAccountsAndDate(ctx context.Context, tenantID uuid.UUID, accountIDs []uuid.UUID, date calendar.Date) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	var count int64
	if err := DB(ctx, r.db).Model(&models.OrderModel{}).
		Where("tenant_id = ? AND account_id IN ? AND date = ? AND status <> ?",
			tenantID, accountIDs, date, subscription.OrderStatusCancelled).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toOrders(rows []models.OrderModel) []*subscription.Order {
	out := make([]*subscription.Order, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}
