package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
)

// DefaultWeeklyFreezeLimit is the number of freezes an employee may use per ISO week
const DefaultWeeklyFreezeLimit = 2

// FreezeRecord is the immutable audit entry of one freeze. Unfreezing does not
// remove it, so a freeze consumes quota permanently.
type FreezeRecord struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	EmployeeID     uuid.UUID
	SubscriptionID uuid.UUID
	OrderID        uuid.UUID
	FrozenAt       time.Time
	OriginalDate   calendar.Date
	WeekYear       int
	WeekNumber     int
	Ordinal        int // 1-based position within the employee's week, unique per week
	Reason         string
}

// Week returns the ISO week the record counts against
func (r *FreezeRecord) Week() calendar.ISOWeek {
	return calendar.ISOWeek{Year: r.WeekYear, Week: r.WeekNumber}
}

// QuotaDecision is the answer to "may this employee freeze one more order this week"
type QuotaDecision struct {
	Week      calendar.ISOWeek
	Used      int
	Limit     int
	Allowed   bool
	Remaining int
}

// FreezeQuota evaluates the weekly freeze limit
type FreezeQuota struct {
	limit int
}

// NewFreezeQuota creates a quota with the given weekly limit; non-positive limits use the default
func NewFreezeQuota(limit int) FreezeQuota {
	if limit <= 0 {
		limit = DefaultWeeklyFreezeLimit
	}
	return FreezeQuota{limit: limit}
}

// Limit returns the weekly limit
func (q FreezeQuota) Limit() int {
	return q.limit
}

// Evaluate decides whether one more freeze is allowed given used freezes in the
// ISO week of proposedDate
func (q FreezeQuota) Evaluate(proposedDate calendar.Date, used int) QuotaDecision {
	remaining := q.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return QuotaDecision{
		Week:      proposedDate.ISOWeek(),
		Used:      used,
		Limit:     q.limit,
		Allowed:   used < q.limit,
		Remaining: remaining,
	}
}

// Require returns QUOTA_EXCEEDED when the decision denies the freeze
func (d QuotaDecision) Require() error {
	if d.Allowed {
		return nil
	}
	return shared.NewDomainError(shared.CodeQuotaExceeded,
		fmt.Sprintf("Weekly freeze limit of %d reached for week %d-W%02d", d.Limit, d.Week.Year, d.Week.Week))
}

// NewFreezeRecord creates the audit record for a freeze approved by decision
func NewFreezeRecord(order *Order, decision QuotaDecision, reason string, now time.Time) *FreezeRecord {
	return &FreezeRecord{
		ID:             uuid.New(),
		TenantID:       order.TenantID,
		EmployeeID:     order.EmployeeID,
		SubscriptionID: order.SubscriptionID,
		OrderID:        order.ID,
		FrozenAt:       now,
		OriginalDate:   order.Date,
		WeekYear:       decision.Week.Year,
		WeekNumber:     decision.Week.Week,
		Ordinal:        decision.Used + 1,
		Reason:         reason,
	}
}
