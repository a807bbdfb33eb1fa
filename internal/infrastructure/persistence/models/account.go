package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for company and project accounts
type AccountModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind           string          `gorm:"type:varchar(20);not null"`
	ParentID       *uuid.UUID      `gorm:"type:uuid;index"`
	Name           string          `gorm:"type:varchar(200);not null"`
	Budget         decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	OverdraftLimit decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Currency       string          `gorm:"type:varchar(3)"`
	Timezone       string          `gorm:"type:varchar(64)"`
	CutoffTime     string          `gorm:"type:varchar(5)"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *account.Account {
	return &account.Account{
		ID:             m.ID,
		TenantID:       m.TenantID,
		Kind:           account.Kind(m.Kind),
		ParentID:       m.ParentID,
		Name:           m.Name,
		Budget:         m.Budget,
		OpeningBalance: m.OpeningBalance,
		OverdraftLimit: m.OverdraftLimit,
		Currency:       m.Currency,
		Timezone:       m.Timezone,
		CutoffTime:     m.CutoffTime,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// AccountModelFromDomain creates a new persistence model from a domain Account
func AccountModelFromDomain(a *account.Account) *AccountModel {
	return &AccountModel{
		ID:             a.ID,
		TenantID:       a.TenantID,
		Kind:           string(a.Kind),
		ParentID:       a.ParentID,
		Name:           a.Name,
		Budget:         a.Budget,
		OpeningBalance: a.OpeningBalance,
		OverdraftLimit: a.OverdraftLimit,
		Currency:       a.Currency,
		Timezone:       a.Timezone,
		CutoffTime:     a.CutoffTime,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// EmployeeModel is the persistence model for the employee roster
type EmployeeModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EmployeeModel) TableName() string {
	return "employees"
}

// ToDomain converts the persistence model to a domain Employee
func (m *EmployeeModel) ToDomain() *account.Employee {
	return &account.Employee{
		ID:        m.ID,
		TenantID:  m.TenantID,
		AccountID: m.AccountID,
		Name:      m.Name,
		Active:    m.Active,
	}
}

// EmployeeModelFromDomain creates a new persistence model from a domain Employee
func EmployeeModelFromDomain(e *account.Employee, now time.Time) *EmployeeModel {
	return &EmployeeModel{
		ID:        e.ID,
		TenantID:  e.TenantID,
		AccountID: e.AccountID,
		Name:      e.Name,
		Active:    e.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// All returns every model, in dependency order, for AutoMigrate in tests and tooling
func All() []any {
	return []any{
		&AccountModel{},
		&EmployeeModel{},
		&SubscriptionModel{},
		&OrderModel{},
		&FreezeRecordModel{},
		&LedgerEntryModel{},
	}
}
