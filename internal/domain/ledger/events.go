package ledger

import (
	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeAccountLedger is the aggregate type of ledger events
const AggregateTypeAccountLedger = "AccountLedger"

// EventTypeEntryRecorded is raised after an entry is appended
const EventTypeEntryRecorded = "LedgerEntryRecorded"

// EntryRecordedEvent is raised when an entry is appended to an account's ledger
type EntryRecordedEvent struct {
	shared.BaseDomainEvent
	EntryID      uuid.UUID       `json:"entry_id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Sequence     int64           `json:"sequence"`
	EntryType    EntryType       `json:"entry_type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// NewEntryRecordedEvent creates the event for entry
func NewEntryRecordedEvent(e *Entry) *EntryRecordedEvent {
	return &EntryRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEntryRecorded, AggregateTypeAccountLedger, e.AccountID, e.TenantID, e.CreatedAt),
		EntryID:         e.ID,
		AccountID:       e.AccountID,
		Sequence:        e.Sequence,
		EntryType:       e.Type,
		Amount:          e.Amount,
		BalanceAfter:    e.BalanceAfter,
	}
}
