package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/shopspring/decimal"
)

// SubscriptionModel is the persistence model for the Subscription aggregate root
type SubscriptionModel struct {
	BaseModel
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_subscriptions_employee,priority:1"`
	EmployeeID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_subscriptions_employee,priority:2"`
	AccountID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CreatedBy       *uuid.UUID      `gorm:"type:uuid"`
	Version         int             `gorm:"not null;default:1"`
	StartDate       calendar.Date   `gorm:"type:date;not null;index:idx_subscriptions_employee,priority:3"`
	EndDate         calendar.Date   `gorm:"type:date;not null;index"`
	TotalDays       int             `gorm:"not null"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ComboType       string          `gorm:"type:varchar(50);not null"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Pattern         string          `gorm:"type:varchar(20);not null;default:'EVERY_DAY'"`
	Weekdays        string          `gorm:"type:varchar(20)"`
	Status          string          `gorm:"type:varchar(20);not null;index"`
	PausedAt        *time.Time
	PausedOn        *calendar.Date `gorm:"type:date"`
	PausedDays      int            `gorm:"not null;default:0"`
	OriginalEndDate *calendar.Date `gorm:"type:date"`
	FrozenDays      int            `gorm:"not null;default:0"`
	CompletedAt     *time.Time
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToDomain converts the persistence model to a domain Subscription entity
func (m *SubscriptionModel) ToDomain() *subscription.Subscription {
	return &subscription.Subscription{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: m.BaseModel.entity(),
				Version:    m.Version,
			},
			TenantID:  m.TenantID,
			CreatedBy: m.CreatedBy,
		},
		EmployeeID:      m.EmployeeID,
		AccountID:       m.AccountID,
		StartDate:       m.StartDate,
		EndDate:         m.EndDate,
		TotalDays:       m.TotalDays,
		TotalPrice:      m.TotalPrice,
		ComboType:       subscription.ComboType(m.ComboType),
		Price:           m.Price,
		Pattern:         subscription.SchedulePattern(m.Pattern),
		Weekdays:        DecodeWeekdays(m.Weekdays),
		Status:          subscription.Status(m.Status),
		PausedAt:        m.PausedAt,
		PausedOn:        m.PausedOn,
		PausedDays:      m.PausedDays,
		OriginalEndDate: m.OriginalEndDate,
		FrozenDays:      m.FrozenDays,
		CompletedAt:     m.CompletedAt,
	}
}

// FromDomain populates the persistence model from a domain Subscription entity
func (m *SubscriptionModel) FromDomain(s *subscription.Subscription) {
	m.BaseModel = baseModelOf(s.BaseEntity)
	m.TenantID = s.TenantID
	m.EmployeeID = s.EmployeeID
	m.AccountID = s.AccountID
	m.CreatedBy = s.CreatedBy
	m.Version = s.Version
	m.StartDate = s.StartDate
	m.EndDate = s.EndDate
	m.TotalDays = s.TotalDays
	m.TotalPrice = s.TotalPrice
	m.ComboType = string(s.ComboType)
	m.Price = s.Price
	m.Pattern = string(s.Pattern)
	m.Weekdays = EncodeWeekdays(s.Weekdays)
	m.Status = string(s.Status)
	m.PausedAt = s.PausedAt
	m.PausedOn = s.PausedOn
	m.PausedDays = s.PausedDays
	m.OriginalEndDate = s.OriginalEndDate
	m.FrozenDays = s.FrozenDays
	m.CompletedAt = s.CompletedAt
}

// SubscriptionModelFromDomain creates a new persistence model from a domain Subscription entity
func SubscriptionModelFromDomain(s *subscription.Subscription) *SubscriptionModel {
	m := &SubscriptionModel{}
	m.FromDomain(s)
	return m
}

// EncodeWeekdays stores weekdays as a comma separated list of 0 (Sunday) .. 6
func EncodeWeekdays(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

// DecodeWeekdays parses the EncodeWeekdays format, skipping malformed items
func DecodeWeekdays(s string) []time.Weekday {
	if s == "" {
		return nil
	}
	var days []time.Weekday
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		days = append(days, time.Weekday(n))
	}
	return days
}
