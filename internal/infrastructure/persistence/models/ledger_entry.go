package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// LedgerEntryModel is the persistence model for an append-only ledger entry.
// Rows are never updated; (account_id, sequence) is unique.
type LedgerEntryModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_entries_account_sequence"`
	Sequence       int64           `gorm:"not null;uniqueIndex:idx_ledger_entries_account_sequence"`
	Type           string          `gorm:"type:varchar(20);not null;index"`
	Amount         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	BalanceAfter   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	SubscriptionID *uuid.UUID      `gorm:"type:uuid;index"`
	OrderID        *uuid.UUID      `gorm:"type:uuid"`
	InvoiceID      *uuid.UUID      `gorm:"type:uuid"`
	Description    string          `gorm:"type:varchar(500)"`
	OperatorID     *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain ledger Entry
func (m *LedgerEntryModel) ToDomain() *ledger.Entry {
	return &ledger.Entry{
		ID:             m.ID,
		TenantID:       m.TenantID,
		AccountID:      m.AccountID,
		Sequence:       m.Sequence,
		Type:           ledger.EntryType(m.Type),
		Amount:         m.Amount,
		BalanceAfter:   m.BalanceAfter,
		SubscriptionID: m.SubscriptionID,
		OrderID:        m.OrderID,
		InvoiceID:      m.InvoiceID,
		Description:    m.Description,
		OperatorID:     m.OperatorID,
		CreatedAt:      m.CreatedAt,
	}
}

// LedgerEntryModelFromDomain creates a new persistence model from a domain ledger Entry
func LedgerEntryModelFromDomain(e *ledger.Entry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:             e.ID,
		TenantID:       e.TenantID,
		AccountID:      e.AccountID,
		Sequence:       e.Sequence,
		Type:           string(e.Type),
		Amount:         e.Amount,
		BalanceAfter:   e.BalanceAfter,
		SubscriptionID: e.SubscriptionID,
		OrderID:        e.OrderID,
		InvoiceID:      e.InvoiceID,
		Description:    e.Description,
		OperatorID:     e.OperatorID,
		CreatedAt:      e.CreatedAt,
	}
}
