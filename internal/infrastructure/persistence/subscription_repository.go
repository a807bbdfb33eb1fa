package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var currentStatuses = []string{string(subscription.StatusActive), string(subscription.StatusPaused)}

// GormSubscriptionRepository implements SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

var _ subscription.SubscriptionRepository = (*GormSubscriptionRepository)(nil)

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// FindByID finds a subscription by ID for a tenant
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*subscription.Subscription, error) {
	return r.find(DB(ctx, r.db), tenantID, id)
}

// FindByIDForUpdate finds a subscription and holds a row lock on it
func (r *GormSubscriptionRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*subscription.Subscription, error) {
	return r.find(DB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormSubscriptionRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Subscription not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCurrentByEmployee finds the employee's Active or Paused subscription that
// has not ended by today. Windows of one employee never share a day, so the
// earliest start is the one covering today when there is one.
func (r *GormSubscriptionRepository) FindCurrentByEmployee(ctx context.Context, tenantID, employeeID uuid.UUID, today calendar.Date) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	if err := DB(ctx, r.db).
		Where("tenant_id = ? AND employee_id = ? AND status IN ? AND end_date >= ?",
			tenantID, employeeID, currentStatuses, today).
		Order("start_date ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Employee has no active subscription")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindExpiredActive finds Active subscriptions whose last scheduled day is before
// today, leaving out the subscriptions in exclude
func (r *GormSubscriptionRepository) FindExpiredActive(ctx context.Context, tenantID, accountID uuid.UUID, today calendar.Date, exclude []uuid.UUID, limit int) ([]*subscription.Subscription, error) {
	var rows []models.SubscriptionModel
	query := DB(ctx, r.db).
		Where("tenant_id = ? AND account_id = ? AND status = ? AND end_date < ?",
			tenantID, accountID, subscription.StatusActive, today)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	query = query.Order("end_date ASC").Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toSubscriptions(rows), nil
}

// FindAllForTenant lists subscriptions with filtering and returns the total count
func (r *GormSubscriptionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*subscription.Subscription, int64, error) {
	query := DB(ctx, r.db).Model(&models.SubscriptionModel{}).Where("tenant_id = ?", tenantID)
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "account_id":
			query = query.Where("account_id = ?", value)
		case "employee_id":
			query = query.Where("employee_id = ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(subscriptionSort.orderBy(filter.OrderBy, filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.SubscriptionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toSubscriptions(rows), total, nil
}

// Create inserts a new subscription
func (r *GormSubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	return DB(ctx, r.db).Create(models.SubscriptionModelFromDomain(sub)).Error
}

// SaveWithLock updates a subscription if its stored version still matches,
// then advances the in-memory version.
func (r *GormSubscriptionRepository) SaveWithLock(ctx context.Context, sub *subscription.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)
	model.Version = sub.Version + 1

	result := DB(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", sub.TenantID, sub.ID, sub.Version).
		Select("*").Omit("id", "tenant_id", "created_at", "created_by").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrentModification, "The subscription has been modified by another request")
	}
	sub.IncrementVersion()
	return nil
}

func toSubscriptions(rows []models.SubscriptionModel) []*subscription.Subscription {
	out := make([]*subscription.Subscription, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// isDuplicate reports a unique constraint violation. It relies on
// gorm.Config.TranslateError and falls back to the driver message.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "UNIQUE constraint failed")
}
