package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/application/dashboard"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// LedgerEntryResponse represents one ledger entry
// @Description Append-only money movement on an account
type LedgerEntryResponse struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	Sequence       int64           `json:"sequence" example:"12"`
	Type           string          `json:"type" example:"DEDUCTION" enums:"DEPOSIT,DEDUCTION,GUEST_ORDER,REFUND,ADJUSTMENT"`
	Amount         decimal.Decimal `json:"amount" swaggertype:"string" example:"-100.00"`
	BalanceAfter   decimal.Decimal `json:"balance_after" swaggertype:"string" example:"900.00"`
	SubscriptionID *string         `json:"subscription_id,omitempty"`
	OrderID        *string         `json:"order_id,omitempty"`
	InvoiceID      *string         `json:"invoice_id,omitempty"`
	Description    string          `json:"description,omitempty"`
	OperatorID     *string         `json:"operator_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func optionalID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toLedgerEntryResponse(e *ledger.Entry) *LedgerEntryResponse {
	if e == nil {
		return nil
	}
	return &LedgerEntryResponse{
		ID:             e.ID.String(),
		AccountID:      e.AccountID.String(),
		Sequence:       e.Sequence,
		Type:           string(e.Type),
		Amount:         e.Amount,
		BalanceAfter:   e.BalanceAfter,
		SubscriptionID: optionalID(e.SubscriptionID),
		OrderID:        optionalID(e.OrderID),
		InvoiceID:      optionalID(e.InvoiceID),
		Description:    e.Description,
		OperatorID:     optionalID(e.OperatorID),
		CreatedAt:      e.CreatedAt,
	}
}

// DashboardResponse is the budget dashboard of an account
// @Description Budget forecast, cutoff state and day-over-day order counts
type DashboardResponse struct {
	AccountID          string          `json:"account_id"`
	Kind               string          `json:"kind" enums:"COMPANY,PROJECT"`
	Name               string          `json:"name"`
	Currency           string          `json:"currency" example:"USD"`
	Forecast           decimal.Decimal `json:"forecast" swaggertype:"string" example:"750.00"`
	TotalOrders        int64           `json:"total_orders" example:"75"`
	Budget             decimal.Decimal `json:"budget" swaggertype:"string" example:"1000.00"`
	OverdraftLimit     decimal.Decimal `json:"overdraft_limit" swaggertype:"string" example:"200.00"`
	AvailableBudget    decimal.Decimal `json:"available_budget" swaggertype:"string" example:"1200.00"`
	ConsumptionPercent decimal.Decimal `json:"consumption_percent" swaggertype:"string" example:"75"`
	RemainingPercent   decimal.Decimal `json:"remaining_percent" swaggertype:"string" example:"25"`
	IsLowBudget        bool            `json:"is_low_budget"`
	WarningLevel       string          `json:"warning_level,omitempty"`
	WarningMessage     string          `json:"warning_message,omitempty"`
	Today              calendar.Date   `json:"today" swaggertype:"string" example:"2024-12-02"`
	Timezone           string          `json:"timezone" example:"Asia/Almaty"`
	TimezoneFallback   bool            `json:"timezone_fallback"`
	CutoffTime         string          `json:"cutoff_time" example:"10:00"`
	CutoffAt           time.Time       `json:"cutoff_at"`
	IsCutoffPassed     bool            `json:"is_cutoff_passed"`
	OrdersToday        int64           `json:"orders_today"`
	OrdersYesterday    int64           `json:"orders_yesterday"`
	DayOverDayPercent  decimal.Decimal `json:"day_over_day_percent" swaggertype:"string" example:"50"`
}

func toDashboardResponse(d *dashboard.Dashboard) DashboardResponse {
	return DashboardResponse{
		AccountID:          d.AccountID.String(),
		Kind:               string(d.Kind),
		Name:               d.Name,
		Currency:           d.Currency,
		Forecast:           d.Forecast,
		TotalOrders:        d.TotalOrders,
		Budget:             d.Budget,
		OverdraftLimit:     d.OverdraftLimit,
		AvailableBudget:    d.AvailableBudget,
		ConsumptionPercent: d.ConsumptionPercent,
		RemainingPercent:   d.RemainingPercent,
		IsLowBudget:        d.IsLowBudget,
		WarningLevel:       string(d.WarningLevel),
		WarningMessage:     d.WarningMessage,
		Today:              d.Today,
		Timezone:           d.Timezone,
		TimezoneFallback:   d.TimezoneFallback,
		CutoffTime:         d.CutoffTime,
		CutoffAt:           d.CutoffAt,
		IsCutoffPassed:     d.IsCutoffPassed,
		OrdersToday:        d.OrdersToday,
		OrdersYesterday:    d.OrdersYesterday,
		DayOverDayPercent:  d.DayOverDayPercent,
	}
}
