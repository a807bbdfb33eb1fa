package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/subscription"
)

// FreezeRecordModel is the persistence model for the freeze audit log.
// The unique ordinal per employee week makes a racing over-quota insert fail.
type FreezeRecordModel struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_freeze_records_week_ordinal"`
	EmployeeID     uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_freeze_records_week_ordinal"`
	WeekYear       int           `gorm:"not null;uniqueIndex:idx_freeze_records_week_ordinal"`
	WeekNumber     int           `gorm:"not null;uniqueIndex:idx_freeze_records_week_ordinal"`
	Ordinal        int           `gorm:"not null;uniqueIndex:idx_freeze_records_week_ordinal"`
	SubscriptionID uuid.UUID     `gorm:"type:uuid;not null;index"`
	OrderID        uuid.UUID     `gorm:"type:uuid;not null;index"`
	OriginalDate   calendar.Date `gorm:"type:date;not null"`
	FrozenAt       time.Time     `gorm:"not null"`
	Reason         string        `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (FreezeRecordModel) TableName() string {
	return "freeze_records"
}

// ToDomain converts the persistence model to a domain FreezeRecord
func (m *FreezeRecordModel) ToDomain() *subscription.FreezeRecord {
	return &subscription.FreezeRecord{
		ID:             m.ID,
		TenantID:       m.TenantID,
		EmployeeID:     m.EmployeeID,
		SubscriptionID: m.SubscriptionID,
		OrderID:        m.OrderID,
		FrozenAt:       m.FrozenAt,
		OriginalDate:   m.OriginalDate,
		WeekYear:       m.WeekYear,
		WeekNumber:     m.WeekNumber,
		Ordinal:        m.Ordinal,
		Reason:         m.Reason,
	}
}

// FreezeRecordModelFromDomain creates a new persistence model from a domain FreezeRecord
func FreezeRecordModelFromDomain(r *subscription.FreezeRecord) *FreezeRecordModel {
	return &FreezeRecordModel{
		ID:             r.ID,
		TenantID:       r.TenantID,
		EmployeeID:     r.EmployeeID,
		SubscriptionID: r.SubscriptionID,
		OrderID:        r.OrderID,
		FrozenAt:       r.FrozenAt,
		OriginalDate:   r.OriginalDate,
		WeekYear:       r.WeekYear,
		WeekNumber:     r.WeekNumber,
		Ordinal:        r.Ordinal,
		Reason:         r.Reason,
	}
}
