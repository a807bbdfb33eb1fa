package handler

import (
	"time"

	subscriptionapp "github.com/mealplan/backend/internal/application/subscription"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/shopspring/decimal"
)

// SubscriptionResponse represents a subscription in API responses
// @Description Subscription details returned by the API
type SubscriptionResponse struct {
	ID              string          `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	TenantID        string          `json:"tenant_id"`
	EmployeeID      string          `json:"employee_id"`
	AccountID       string          `json:"account_id"`
	StartDate       calendar.Date   `json:"start_date" swaggertype:"string" example:"2024-12-02"`
	EndDate         calendar.Date   `json:"end_date" swaggertype:"string" example:"2024-12-11"`
	TotalDays       int             `json:"total_days" example:"10"`
	TotalPrice      decimal.Decimal `json:"total_price" swaggertype:"string" example:"100.00"`
	ComboType       string          `json:"combo_type" example:"STANDARD"`
	Price           decimal.Decimal `json:"price" swaggertype:"string" example:"10.00"`
	Pattern         string          `json:"pattern" example:"EVERY_DAY" enums:"EVERY_DAY,EVERY_OTHER_DAY,CUSTOM"`
	Weekdays        []int           `json:"weekdays,omitempty"`
	Status          string          `json:"status" example:"ACTIVE" enums:"ACTIVE,PAUSED,COMPLETED"`
	PausedAt        *time.Time      `json:"paused_at,omitempty"`
	PausedDays      int             `json:"paused_days"`
	OriginalEndDate *calendar.Date  `json:"original_end_date,omitempty" swaggertype:"string"`
	FrozenDays      int             `json:"frozen_days"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toSubscriptionResponse(s *subscription.Subscription) *SubscriptionResponse {
	if s == nil {
		return nil
	}
	resp := &SubscriptionResponse{
		ID:              s.ID.String(),
		TenantID:        s.TenantID.String(),
		EmployeeID:      s.EmployeeID.String(),
		AccountID:       s.AccountID.String(),
		StartDate:       s.StartDate,
		EndDate:         s.EndDate,
		TotalDays:       s.TotalDays,
		TotalPrice:      s.TotalPrice,
		ComboType:       string(s.ComboType),
		Price:           s.Price,
		Pattern:         string(s.Pattern),
		Status:          string(s.Status),
		PausedAt:        s.PausedAt,
		PausedDays:      s.PausedDays,
		OriginalEndDate: s.OriginalEndDate,
		FrozenDays:      s.FrozenDays,
		CompletedAt:     s.CompletedAt,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	for _, wd := range s.Weekdays {
		resp.Weekdays = append(resp.Weekdays, int(wd))
	}
	return resp
}

func toSubscriptionResponses(subs []*subscription.Subscription) []*SubscriptionResponse {
	out := make([]*SubscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubscriptionResponse(s))
	}
	return out
}

// OrderResponse represents one daily order
// @Description Daily meal order
type OrderResponse struct {
	ID              string          `json:"id"`
	SubscriptionID  string          `json:"subscription_id"`
	EmployeeID      string          `json:"employee_id"`
	Date            calendar.Date   `json:"date" swaggertype:"string" example:"2024-12-03"`
	ComboType       string          `json:"combo_type" example:"STANDARD"`
	Price           decimal.Decimal `json:"price" swaggertype:"string" example:"10.00"`
	Status          string          `json:"status" example:"ACTIVE" enums:"ACTIVE,PAUSED,FROZEN,COMPLETED,CANCELLED"`
	IsReplacement   bool            `json:"is_replacement"`
	FrozenAt        *time.Time      `json:"frozen_at,omitempty"`
	FreezeReason    string          `json:"freeze_reason,omitempty"`
	ReplacementDate *calendar.Date  `json:"replacement_date,omitempty" swaggertype:"string"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason    string          `json:"cancel_reason,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

func toOrderResponse(o *subscription.Order) *OrderResponse {
	if o == nil {
		return nil
	}
	return &OrderResponse{
		ID:              o.ID.String(),
		SubscriptionID:  o.SubscriptionID.String(),
		EmployeeID:      o.EmployeeID.String(),
		Date:            o.Date,
		ComboType:       string(o.ComboType),
		Price:           o.Price,
		Status:          string(o.Status),
		IsReplacement:   o.IsReplacement,
		FrozenAt:        o.FrozenAt,
		FreezeReason:    o.FreezeReason,
		ReplacementDate: o.ReplacementDate,
		CancelledAt:     o.CancelledAt,
		CancelReason:    o.CancelReason,
		CompletedAt:     o.CompletedAt,
	}
}

func toOrderResponses(orders []*subscription.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

// QuotaResponse reports the weekly freeze quota after an operation
type QuotaResponse struct {
	Week      calendar.ISOWeek `json:"week"`
	Used      int              `json:"used"`
	Limit     int              `json:"limit"`
	Remaining int              `json:"remaining"`
}

// FreezeResponse is returned by the freeze endpoint
type FreezeResponse struct {
	Order        *OrderResponse        `json:"order"`
	Replacement  *OrderResponse        `json:"replacement"`
	Subscription *SubscriptionResponse `json:"subscription"`
	Quota        QuotaResponse         `json:"quota"`
}

func toFreezeResponse(r *subscriptionapp.FreezeResult) FreezeResponse {
	return FreezeResponse{
		Order:        toOrderResponse(r.Order),
		Replacement:  toOrderResponse(r.Replacement),
		Subscription: toSubscriptionResponse(r.Subscription),
		Quota: QuotaResponse{
			Week:      r.Quota.Week,
			Used:      r.Quota.Used,
			Limit:     r.Quota.Limit,
			Remaining: r.Quota.Remaining,
		},
	}
}

// UnfreezeResponse is returned by the unfreeze endpoint
type UnfreezeResponse struct {
	Order        *OrderResponse        `json:"order"`
	Removed      *OrderResponse        `json:"removed"`
	Subscription *SubscriptionResponse `json:"subscription"`
}

// CancelOrderResponse is returned by the order cancel endpoint
type CancelOrderResponse struct {
	Order        *OrderResponse        `json:"order"`
	Subscription *SubscriptionResponse `json:"subscription"`
	Refund       *LedgerEntryResponse  `json:"refund,omitempty"`
}

// CancelSubscriptionResponse is returned by the subscription cancel endpoint
type CancelSubscriptionResponse struct {
	Subscription    *SubscriptionResponse `json:"subscription"`
	CancelledOrders int                   `json:"cancelled_orders"`
	Refund          *LedgerEntryResponse  `json:"refund,omitempty"`
}

// ComboChangeResponse is returned by the combo change endpoints
type ComboChangeResponse struct {
	Subscription      *SubscriptionResponse `json:"subscription"`
	UpdatedOrderCount int                   `json:"updated_order_count"`
	Adjustment        *LedgerEntryResponse  `json:"adjustment,omitempty"`
}

func toComboChangeResponse(r *subscriptionapp.ComboChangeResult) ComboChangeResponse {
	return ComboChangeResponse{
		Subscription:      toSubscriptionResponse(r.Subscription),
		UpdatedOrderCount: r.UpdatedOrderCount,
		Adjustment:        toLedgerEntryResponse(r.Adjustment),
	}
}

// BulkUpdateResponse is returned by the bulk combo update endpoint
type BulkUpdateResponse struct {
	UpdatedCount      int      `json:"updated_count"`
	UpdatedOrderCount int      `json:"updated_order_count"`
	Skipped           []string `json:"skipped"`
}

// FreezeRecordResponse is one freeze counted against the weekly quota
type FreezeRecordResponse struct {
	OrderID        string        `json:"order_id"`
	SubscriptionID string        `json:"subscription_id"`
	OriginalDate   calendar.Date `json:"original_date" swaggertype:"string"`
	FrozenAt       time.Time     `json:"frozen_at"`
	Ordinal        int           `json:"ordinal"`
	Reason         string        `json:"reason,omitempty"`
}

// FreezeInfoResponse reports an employee's freeze usage in the current week
type FreezeInfoResponse struct {
	EmployeeID   string                  `json:"employee_id"`
	Week         calendar.ISOWeek        `json:"week"`
	WeekStart    calendar.Date           `json:"week_start" swaggertype:"string"`
	WeekEnd      calendar.Date           `json:"week_end" swaggertype:"string"`
	UsedThisWeek int                     `json:"used_this_week"`
	Limit        int                     `json:"limit"`
	Remaining    int                     `json:"remaining"`
	Records      []*FreezeRecordResponse `json:"records"`
}

func toFreezeInfoResponse(info *subscriptionapp.FreezeInfo) FreezeInfoResponse {
	resp := FreezeInfoResponse{
		EmployeeID:   info.EmployeeID.String(),
		Week:         info.Week,
		WeekStart:    info.WeekStart,
		WeekEnd:      info.WeekEnd,
		UsedThisWeek: info.UsedThisWeek,
		Limit:        info.Limit,
		Remaining:    info.Remaining,
		Records:      make([]*FreezeRecordResponse, 0, len(info.Records)),
	}
	for _, r := range info.Records {
		resp.Records = append(resp.Records, &FreezeRecordResponse{
			OrderID:        r.OrderID.String(),
			SubscriptionID: r.SubscriptionID.String(),
			OriginalDate:   r.OriginalDate,
			FrozenAt:       r.FrozenAt,
			Ordinal:        r.Ordinal,
			Reason:         r.Reason,
		})
	}
	return resp
}
