package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChainBreak describes the first entry whose snapshot disagrees with its predecessor
type ChainBreak struct {
	EntryID          uuid.UUID       `json:"entry_id"`
	Sequence         int64           `json:"sequence"`
	ExpectedSequence int64           `json:"expected_sequence"`
	ExpectedBalance  decimal.Decimal `json:"expected_balance"`
	ActualBalance    decimal.Decimal `json:"actual_balance"`
}

// String describes the break
func (b ChainBreak) String() string {
	return fmt.Sprintf("entry %s (seq %d, expected seq %d): balance_after %s, expected %s",
		b.EntryID, b.Sequence, b.ExpectedSequence, b.ActualBalance, b.ExpectedBalance)
}

// VerifyChain replays entries in sequence order starting from opening and returns
// the first break, or nil when every balance snapshot equals the previous
// snapshot plus its own amount
func VerifyChain(entries []*Entry, opening decimal.Decimal) *ChainBreak {
	balance := opening
	for i, e := range entries {
		expectedSeq := int64(i + 1)
		expected := balance.Add(e.Amount)
		if e.Sequence != expectedSeq || !e.BalanceAfter.Equal(expected) {
			return &ChainBreak{
				EntryID:          e.ID,
				Sequence:         e.Sequence,
				ExpectedSequence: expectedSeq,
				ExpectedBalance:  expected,
				ActualBalance:    e.BalanceAfter,
			}
		}
		balance = e.BalanceAfter
	}
	return nil
}
