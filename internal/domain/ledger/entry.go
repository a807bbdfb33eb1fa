// Package ledger models the append-only balance ledger of company and project accounts.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EntryType represents the business reason of a ledger entry
type EntryType string

const (
	// EntryTypeDeposit adds funds to the account
	EntryTypeDeposit EntryType = "DEPOSIT"
	// EntryTypeDeduction charges the account for scheduled meals
	EntryTypeDeduction EntryType = "DEDUCTION"
	// EntryTypeGuestOrder charges the account for an ad-hoc guest meal
	EntryTypeGuestOrder EntryType = "GUEST_ORDER"
	// EntryTypeRefund returns funds for cancelled meals
	EntryTypeRefund EntryType = "REFUND"
	// EntryTypeAdjustment is a manual correction in either direction
	EntryTypeAdjustment EntryType = "ADJUSTMENT"
)

// String returns the string representation of EntryType
func (t EntryType) String() string {
	return string(t)
}

// IsValid returns true if the entry type is valid
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeDeposit, EntryTypeDeduction, EntryTypeGuestOrder, EntryTypeRefund, EntryTypeAdjustment:
		return true
	}
	return false
}

// IsIncrease returns true if the type always increases the balance
func (t EntryType) IsIncrease() bool {
	return t == EntryTypeDeposit || t == EntryTypeRefund
}

// IsDecrease returns true if the type always decreases the balance
func (t EntryType) IsDecrease() bool {
	return t == EntryTypeDeduction || t == EntryTypeGuestOrder
}

// Entry is one immutable ledger record. Amount is signed and BalanceAfter is the
// running balance including this entry. Corrections are made with new entries.
type Entry struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	AccountID      uuid.UUID
	Sequence       int64
	Type           EntryType
	Amount         decimal.Decimal
	BalanceAfter   decimal.Decimal
	SubscriptionID *uuid.UUID
	OrderID        *uuid.UUID
	InvoiceID      *uuid.UUID
	Description    string
	OperatorID     *uuid.UUID
	CreatedAt      time.Time
}

// Request describes an entry to append. Amount is the magnitude for typed entries
// and a signed value for adjustments.
type Request struct {
	TenantID       uuid.UUID
	AccountID      uuid.UUID
	Type           EntryType
	Amount         decimal.Decimal
	SubscriptionID *uuid.UUID
	OrderID        *uuid.UUID
	InvoiceID      *uuid.UUID
	Description    string
	OperatorID     *uuid.UUID
}

// SignedAmount returns the amount with the direction implied by the type
func (r Request) SignedAmount() decimal.Decimal {
	switch {
	case r.Type.IsIncrease():
		return r.Amount.Abs()
	case r.Type.IsDecrease():
		return r.Amount.Abs().Neg()
	default:
		return r.Amount
	}
}

// Validate checks the request
func (r Request) Validate() error {
	if r.TenantID == uuid.Nil {
		return shared.NewValidationError("Tenant ID cannot be empty")
	}
	if r.AccountID == uuid.Nil {
		return shared.NewValidationError("Account ID cannot be empty")
	}
	if !r.Type.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Invalid ledger entry type %s", r.Type))
	}
	if r.Type == EntryTypeAdjustment {
		if r.Amount.IsZero() {
			return shared.NewValidationError("Adjustment amount cannot be zero")
		}
		return nil
	}
	if !r.Amount.IsPositive() {
		return shared.NewValidationError("Amount must be positive")
	}
	return nil
}

// NewEntry builds the next entry of an account's chain. previous is the latest
// entry of the account or nil, in which case opening is the balance before it.
func NewEntry(req Request, previous *Entry, opening decimal.Decimal, now time.Time) (*Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	balanceBefore := opening
	sequence := int64(1)
	if previous != nil {
		if previous.AccountID != req.AccountID {
			return nil, shared.NewIntegrityViolationError(
				fmt.Sprintf("Previous entry %s belongs to account %s, not %s", previous.ID, previous.AccountID, req.AccountID))
		}
		balanceBefore = previous.BalanceAfter
		sequence = previous.Sequence + 1
	}

	amount := req.SignedAmount()
	return &Entry{
		ID:             uuid.New(),
		TenantID:       req.TenantID,
		AccountID:      req.AccountID,
		Sequence:       sequence,
		Type:           req.Type,
		Amount:         amount,
		BalanceAfter:   balanceBefore.Add(amount),
		SubscriptionID: req.SubscriptionID,
		OrderID:        req.OrderID,
		InvoiceID:      req.InvoiceID,
		Description:    req.Description,
		OperatorID:     req.OperatorID,
		CreatedAt:      now,
	}, nil
}

// BalanceBefore returns the balance preceding this entry
func (e *Entry) BalanceBefore() decimal.Decimal {
	return e.BalanceAfter.Sub(e.Amount)
}
