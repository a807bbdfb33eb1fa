// Package account holds the tenant configuration the meal engine consumes:
// company and project accounts with their budget and cutoff settings, the
// employee roster, and the combo price catalog.
package account

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Kind distinguishes company accounts from their projects
type Kind string

const (
	KindCompany Kind = "COMPANY"
	KindProject Kind = "PROJECT"
)

// IsValid returns true if the kind is known
func (k Kind) IsValid() bool {
	return k == KindCompany || k == KindProject
}

// Account is a company or project that owns a budget and a ledger
type Account struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Kind           Kind
	ParentID       *uuid.UUID // company of a project
	Name           string
	Budget         decimal.Decimal // current balance, mirrors the latest ledger entry
	OpeningBalance decimal.Decimal // balance before the first ledger entry
	OverdraftLimit decimal.Decimal
	Currency       string
	Timezone       string
	CutoffTime     string // HH:MM, empty inherits from the parent or the defaults
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Defaults are the tenant-wide fallbacks for unset account settings
type Defaults struct {
	Timezone string
	Cutoff   calendar.TimeOfDay
	Currency string
}

// Settings are the effective cutoff settings of an account
type Settings struct {
	Timezone string
	Cutoff   calendar.TimeOfDay
	Currency string
}

// EffectiveSettings resolves timezone, cutoff and currency from the account, then
// its parent, then defaults. A malformed cutoff falls through to the next level.
func (a *Account) EffectiveSettings(parent *Account, defaults Defaults) Settings {
	s := Settings{Timezone: defaults.Timezone, Cutoff: defaults.Cutoff, Currency: defaults.Currency}
	for _, src := range []*Account{parent, a} {
		if src == nil {
			continue
		}
		if src.Timezone != "" {
			s.Timezone = src.Timezone
		}
		if src.Currency != "" {
			s.Currency = src.Currency
		}
		if src.CutoffTime != "" {
			if tod, err := calendar.ParseTimeOfDay(src.CutoffTime); err == nil {
				s.Cutoff = tod
			}
		}
	}
	return s
}

// ApplyBalance sets the current budget from a ledger snapshot
func (a *Account) ApplyBalance(balance decimal.Decimal, now time.Time) {
	a.Budget = balance
	a.UpdatedAt = now
}

// Employee is a member of a project who can hold a subscription
type Employee struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	AccountID uuid.UUID
	Name      string
	Active    bool
}

// RequireActive rejects inactive employees
func (e *Employee) RequireActive() error {
	if !e.Active {
		return shared.NewValidationError(fmt.Sprintf("Employee %s is inactive", e.ID))
	}
	return nil
}
