package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for a daily meal order.
// The partial unique index enforces one live order per employee per date.
type OrderModel struct {
	BaseModel
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_meal_orders_employee_date,where:status <> 'CANCELLED'"`
	EmployeeID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_meal_orders_employee_date,where:status <> 'CANCELLED'"`
	Date            calendar.Date   `gorm:"type:date;not null;uniqueIndex:idx_meal_orders_employee_date,where:status <> 'CANCELLED'"`
	SubscriptionID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_meal_orders_account_status"`
	Status          string          `gorm:"type:varchar(20);not null;index:idx_meal_orders_account_status"`
	ComboType       string          `gorm:"type:varchar(50);not null"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IsReplacement   bool            `gorm:"not null;default:false"`
	FrozenAt        *time.Time
	FreezeReason    string         `gorm:"type:varchar(255)"`
	ReplacementDate *calendar.Date `gorm:"type:date"`
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(255)"`
	CompletedAt     *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "meal_orders"
}

// ToDomain converts the persistence model to a domain Order entity
func (m *OrderModel) ToDomain() *subscription.Order {
	return &subscription.Order{
		BaseEntity:      m.BaseModel.entity(),
		TenantID:        m.TenantID,
		SubscriptionID:  m.SubscriptionID,
		EmployeeID:      m.EmployeeID,
		AccountID:       m.AccountID,
		Date:            m.Date,
		ComboType:       subscription.ComboType(m.ComboType),
		Price:           m.Price,
		Status:          subscription.OrderStatus(m.Status),
		IsReplacement:   m.IsReplacement,
		FrozenAt:        m.FrozenAt,
		FreezeReason:    m.FreezeReason,
		ReplacementDate: m.ReplacementDate,
		CancelledAt:     m.CancelledAt,
		CancelReason:    m.CancelReason,
		CompletedAt:     m.CompletedAt,
	}
}

// FromDomain populates the persistence model from a domain Order entity
func (m *OrderModel) FromDomain(o *subscription.Order) {
	m.BaseModel = baseModelOf(o.BaseEntity)
	m.TenantID = o.TenantID
	m.SubscriptionID = o.SubscriptionID
	m.EmployeeID = o.EmployeeID
	m.AccountID = o.AccountID
	m.Date = o.Date
	m.ComboType = string(o.ComboType)
	m.Price = o.Price
	m.Status = string(o.Status)
	m.IsReplacement = o.IsReplacement
	m.FrozenAt = o.FrozenAt
	m.FreezeReason = o.FreezeReason
	m.ReplacementDate = o.ReplacementDate
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
	m.CompletedAt = o.CompletedAt
}

// OrderModelFromDomain creates a new persistence model from a domain Order entity
func OrderModelFromDomain(o *subscription.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}
