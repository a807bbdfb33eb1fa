package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLedgerRepository implements ledger.Repository using GORM. It only inserts.
type GormLedgerRepository struct {
	db *gorm.DB
}

var _ ledger.Repository = (*GormLedgerRepository)(nil)

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Append inserts a new entry. A duplicate sequence means another writer
// appended to the same account first.
func (r *GormLedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	if err := DB(ctx, r.db).Create(models.LedgerEntryModelFromDomain(entry)).Error; err != nil {
		if isDuplicate(err) {
			return shared.NewDomainError(shared.CodeConcurrentModification, "Ledger sequence already taken")
		}
		return err
	}
	return nil
}

// FindLatest returns the newest entry of an account, or nil when it has none
func (r *GormLedgerRepository) FindLatest(ctx context.Context, tenantID, accountID uuid.UUID) (*ledger.Entry, error) {
	var model models.LedgerEntryModel
	err := DB(ctx, r.db).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Order("sequence DESC").
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccount returns a page of an account's entries, newest first by default
func (r *GormLedgerRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter ledger.EntryFilter) ([]*ledger.Entry, int64, error) {
	query := DB(ctx, r.db).Model(&models.LedgerEntryModel{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID)
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(ledgerSort.orderBy(filter.OrderBy, filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.LedgerEntryModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toEntries(rows), total, nil
}

// FindAllByAccount returns every entry of an account in sequence order
func (r *GormLedgerRepository) FindAllByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]*ledger.Entry, error) {
	var rows []models.LedgerEntryModel
	if err := DB(ctx, r.db).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

func toEntries(rows []models.LedgerEntryModel) []*ledger.Entry {
	out := make([]*ledger.Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}
