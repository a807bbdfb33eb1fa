package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/shared"
)

// EntryFilter defines filtering options for ledger queries
type EntryFilter struct {
	shared.Filter
	Type *EntryType
}

// Repository defines the interface for ledger persistence. There is no update or delete.
type Repository interface {
	// Append inserts a new entry; a duplicate (account, sequence) is rejected
	Append(ctx context.Context, entry *Entry) error

	// FindLatest returns the newest entry of an account, or nil when it has none
	FindLatest(ctx context.Context, tenantID, accountID uuid.UUID) (*Entry, error)

	// FindByAccount returns a page of an account's entries, newest first
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter EntryFilter) ([]*Entry, int64, error)

	// FindAllByAccount returns every entry of an account in sequence order
	FindAllByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]*Entry, error)
}
