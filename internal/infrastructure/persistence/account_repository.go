package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements account.Repository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

var _ account.Repository = (*GormAccountRepository)(nil)

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by ID for a tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*account.Account, error) {
	return r.find(DB(ctx, r.db), tenantID, id)
}

// FindByIDForUpdate finds an account and holds a row lock on it
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*account.Account, error) {
	return r.find(DB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormAccountRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*account.Account, error) {
	var model models.AccountModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Account not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindChildren lists the projects of a company
func (r *GormAccountRepository) FindChildren(ctx context.Context, tenantID, companyID uuid.UUID) ([]*account.Account, error) {
	var rows []models.AccountModel
	if err := DB(ctx, r.db).
		Where("tenant_id = ? AND parent_id = ?", tenantID, companyID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAccounts(rows), nil
}

// FindAll lists every account of a tenant
func (r *GormAccountRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*account.Account, error) {
	var rows []models.AccountModel
	if err := DB(ctx, r.db).Where("tenant_id = ?", tenantID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAccounts(rows), nil
}

// ListTenantIDs lists tenants that own at least one account
func (r *GormAccountRepository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := DB(ctx, r.db).Model(&models.AccountModel{}).
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateBalance stores the account's current budget
func (r *GormAccountRepository) UpdateBalance(ctx context.Context, a *account.Account) error {
	result := DB(ctx, r.db).Model(&models.AccountModel{}).
		Where("tenant_id = ? AND id = ?", a.TenantID, a.ID).
		Updates(map[string]any{
			"budget":     a.Budget,
			"updated_at": a.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Account not found")
	}
	return nil
}

// Create inserts an account; used by provisioning tooling
func (r *GormAccountRepository) Create(ctx context.Context, a *account.Account) error {
	return DB(ctx, r.db).Create(models.AccountModelFromDomain(a)).Error
}

func toAccounts(rows []models.AccountModel) []*account.Account {
	out := make([]*account.Account, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormEmployeeRepository implements account.EmployeeRepository using GORM
type GormEmployeeRepository struct {
	db *gorm.DB
}

var _ account.EmployeeRepository = (*GormEmployeeRepository)(nil)

// NewGormEmployeeRepository creates a new GormEmployeeRepository
func NewGormEmployeeRepository(db *gorm.DB) *GormEmployeeRepository {
	return &GormEmployeeRepository{db: db}
}

// FindByID finds an employee by ID for a tenant
func (r *GormEmployeeRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*account.Employee, error) {
	return r.find(DB(ctx, r.db), tenantID, id)
}

// LockForUpdate locks the employee row until the transaction ends
func (r *GormEmployeeRepository) LockForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*account.Employee, error) {
	return r.find(DB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormEmployeeRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*account.Employee, error) {
	var model models.EmployeeModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Employee not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts an employee; used by provisioning tooling
func (r *GormEmployeeRepository) Create(ctx context.Context, e *account.Employee, now time.Time) error {
	return DB(ctx, r.db).Create(models.EmployeeModelFromDomain(e, now)).Error
}

// FindByIDs finds several employees; unknown IDs are absent from the result
func (r *GormEmployeeRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*account.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.EmployeeModel
	if err := DB(ctx, r.db).Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*account.Employee, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}
