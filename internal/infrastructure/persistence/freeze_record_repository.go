package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFreezeRecordRepository implements FreezeRecordRepository using GORM
type GormFreezeRecordRepository struct {
	db *gorm.DB
}

var _ subscription.FreezeRecordRepository = (*GormFreezeRecordRepository)(nil)

// NewGormFreezeRecordRepository creates a new GormFreezeRecordRepository
func NewGormFreezeRecordRepository(db *gorm.DB) *GormFreezeRecordRepository {
	return &GormFreezeRecordRepository{db: db}
}

// CountByEmployeeWeek counts the employee's freezes in an ISO week
func (r *GormFreezeRecordRepository) CountByEmployeeWeek(ctx context.Context, tenantID, employeeID uuid.UUID, week calendar.ISOWeek) (int, error) {
	var count int64
	if err := DB(ctx, r.db).Model(&models.FreezeRecordModel{}).
		Where("tenant_id = ? AND employee_id = ? AND week_year = ? AND week_number = ?",
			tenantID, employeeID, week.Year, week.Week).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// Create appends a freeze record. Losing a race for the same ordinal is a
// concurrent modification; the caller may retry and will then see the new count.
func (r *GormFreezeRecordRepository) Create(ctx context.Context, record *subscription.FreezeRecord) error {
	if err := DB(ctx, r.db).Create(models.FreezeRecordModelFromDomain(record)).Error; err != nil {
		if isDuplicate(err) {
			return shared.NewDomainError(shared.CodeConcurrentModification, "Another freeze was recorded for this week concurrently")
		}
		return err
	}
	return nil
}

// FindByEmployeeWeek lists the employee's freezes in an ISO week by ordinal
func (r *GormFreezeRecordRepository) FindByEmployeeWeek(ctx context.Context, tenantID, employeeID uuid.UUID, week calendar.ISOWeek) ([]*subscription.FreezeRecord, error) {
	var rows []models.FreezeRecordModel
	if err := DB(ctx, r.db).
		Where("tenant_id = ? AND employee_id = ? AND week_year = ? AND week_number = ?",
			tenantID, employeeID, week.Year, week.Week).
		Order("ordinal ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*subscription.FreezeRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}
