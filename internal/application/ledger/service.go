// Package ledger records balance-affecting events as an append-only, verifiable
// chain of entries per account.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/infrastructure/logger"
	"github.com/mealplan/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultLockTTL = 10 * time.Second

// Service is the ledger recorder
type Service struct {
	accounts  account.Repository
	entries   ledger.Repository
	txManager shared.TxManager
	locker    shared.Locker
	lockTTL   time.Duration
	publisher shared.EventPublisher
	metrics   *telemetry.BusinessMetrics
	clock     calendar.Clock
	logger    *zap.Logger
}

// ServiceConfig holds the dependencies of Service. Locker, Publisher and
// Metrics are optional.
type ServiceConfig struct {
	Accounts  account.Repository
	Entries   ledger.Repository
	TxManager shared.TxManager
	Locker    shared.Locker
	LockTTL   time.Duration
	Publisher shared.EventPublisher
	Metrics   *telemetry.BusinessMetrics
	Clock     calendar.Clock
	Logger    *zap.Logger
}

// NewService creates a ledger service
func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = calendar.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	return &Service{
		accounts:  cfg.Accounts,
		entries:   cfg.Entries,
		txManager: cfg.TxManager,
		locker:    cfg.Locker,
		lockTTL:   cfg.LockTTL,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Append adds one entry to the account's chain and moves the account balance to
// the new snapshot. It must run inside a transaction: the account row lock taken
// here serializes appends until commit. The caller publishes the entry's event
// once the transaction has committed.
func (s *Service) Append(ctx context.Context, req ledger.Request, now time.Time) (*ledger.Entry, error) {
	acc, err := s.accounts.FindByIDForUpdate(ctx, req.TenantID, req.AccountID)
	if err != nil {
		return nil, err
	}
	previous, err := s.entries.FindLatest(ctx, req.TenantID, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest ledger entry: %w", err)
	}

	if previous != nil && !previous.BalanceAfter.Equal(acc.Budget) {
		logger.Enrich(ctx, s.logger).Warn("Account balance differs from ledger, resyncing from ledger",
			zap.String("account_id", acc.ID.String()),
			zap.String("account_budget", acc.Budget.String()),
			zap.String("ledger_balance", previous.BalanceAfter.String()),
		)
	}

	entry, err := ledger.NewEntry(req, previous, acc.OpeningBalance, now)
	if err != nil {
		return nil, err
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	acc.ApplyBalance(entry.BalanceAfter, now)
	if err := s.accounts.UpdateBalance(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to update account balance: %w", err)
	}
	return entry, nil
}

// Record appends one entry in its own transaction and publishes it
func (s *Service) Record(ctx context.Context, req ledger.Request) (entry *ledger.Entry, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record",
		attribute.String("account_id", req.AccountID.String()),
		attribute.String("entry_type", req.Type.String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()
	defer func() { s.observe(ctx, req.TenantID, "ledger."+req.Type.String(), err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, accountLockKey(req.TenantID, req.AccountID), s.lockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				s.logger.Warn("Failed to release account lock", zap.Error(rerr))
			}
		}()
	}

	now := s.clock.Now()
	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		var appendErr error
		entry, appendErr = s.Append(txCtx, req, now)
		return appendErr
	})
	if err != nil {
		return nil, err
	}

	s.Publish(ctx, entry)
	logger.Enrich(ctx, s.logger).Info("Ledger entry recorded",
		zap.String("account_id", entry.AccountID.String()),
		zap.Int64("sequence", entry.Sequence),
		zap.String("type", entry.Type.String()),
		zap.String("amount", entry.Amount.String()),
		zap.String("balance_after", entry.BalanceAfter.String()),
	)
	return entry, nil
}

// Publish emits the recorded events of committed entries. Publishing failures
// are logged; the entries stay committed.
func (s *Service) Publish(ctx context.Context, entries ...*ledger.Entry) {
	if s.publisher == nil || len(entries) == 0 {
		return
	}
	events := make([]shared.DomainEvent, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			events = append(events, ledger.NewEntryRecordedEvent(e))
		}
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish ledger events", zap.Error(err))
	}
}

// MoneyRequest is the input of the typed ledger operations
type MoneyRequest struct {
	TenantID       uuid.UUID
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	Description    string
	SubscriptionID *uuid.UUID
	OrderID        *uuid.UUID
	InvoiceID      *uuid.UUID
	OperatorID     *uuid.UUID
}

func (r MoneyRequest) typed(t ledger.EntryType) ledger.Request {
	return ledger.Request{
		TenantID:       r.TenantID,
		AccountID:      r.AccountID,
		Type:           t,
		Amount:         r.Amount,
		SubscriptionID: r.SubscriptionID,
		OrderID:        r.OrderID,
		InvoiceID:      r.InvoiceID,
		Description:    r.Description,
		OperatorID:     r.OperatorID,
	}
}

// Deposit adds funds to the account
func (s *Service) Deposit(ctx context.Context, req MoneyRequest) (*ledger.Entry, error) {
	return s.Record(ctx, req.typed(ledger.EntryTypeDeposit))
}

// Deduct charges the account for scheduled meals
func (s *Service) Deduct(ctx context.Context, req MoneyRequest) (*ledger.Entry, error) {
	return s.Record(ctx, req.typed(ledger.EntryTypeDeduction))
}

// ChargeGuestOrder charges the account for an ad-hoc guest meal
func (s *Service) ChargeGuestOrder(ctx context.Context, req MoneyRequest) (*ledger.Entry, error) {
	return s.Record(ctx, req.typed(ledger.EntryTypeGuestOrder))
}

// Refund returns funds to the account
func (s *Service) Refund(ctx context.Context, req MoneyRequest) (*ledger.Entry, error) {
	return s.Record(ctx, req.typed(ledger.EntryTypeRefund))
}

// Adjust applies a signed manual correction
func (s *Service) Adjust(ctx context.Context, req MoneyRequest) (*ledger.Entry, error) {
	return s.Record(ctx, req.typed(ledger.EntryTypeAdjustment))
}

// ListEntries returns a page of the account's entries, newest first
func (s *Service) ListEntries(ctx context.Context, tenantID, accountID uuid.UUID, filter ledger.EntryFilter) (shared.Paginated[*ledger.Entry], error) {
	if _, err := s.accounts.FindByID(ctx, tenantID, accountID); err != nil {
		return shared.Paginated[*ledger.Entry]{}, err
	}
	filter.Filter = filter.Filter.Normalized()
	entries, total, err := s.entries.FindByAccount(ctx, tenantID, accountID, filter)
	if err != nil {
		return shared.Paginated[*ledger.Entry]{}, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return shared.NewPaginated(entries, total, filter.Page, filter.PageSize), nil
}

// Verification is the result of replaying an account's chain
type Verification struct {
	AccountID      uuid.UUID          `json:"account_id"`
	Entries        int                `json:"entries"`
	OpeningBalance decimal.Decimal    `json:"opening_balance"`
	LedgerBalance  decimal.Decimal    `json:"ledger_balance"`
	AccountBalance decimal.Decimal    `json:"account_balance"`
	Valid          bool               `json:"valid"`
	Break          *ledger.ChainBreak `json:"break,omitempty"`
}

// VerifyChain replays every entry of the account and reports the first broken link.
// A break, or an account balance that disagrees with the last snapshot, is an
// integrity violation and raises an alert.
func (s *Service) VerifyChain(ctx context.Context, tenantID, accountID uuid.UUID) (result *Verification, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "verify_chain",
		attribute.String("account_id", accountID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	acc, err := s.accounts.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.FindAllByAccount(ctx, tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}

	result = &Verification{
		AccountID:      accountID,
		Entries:        len(entries),
		OpeningBalance: acc.OpeningBalance,
		LedgerBalance:  acc.OpeningBalance,
		AccountBalance: acc.Budget,
	}
	if n := len(entries); n > 0 {
		result.LedgerBalance = entries[n-1].BalanceAfter
	}
	result.Break = ledger.VerifyChain(entries, acc.OpeningBalance)
	result.Valid = result.Break == nil && result.LedgerBalance.Equal(acc.Budget)

	if !result.Valid {
		violation := shared.NewIntegrityViolationError(fmt.Sprintf("Ledger chain of account %s is inconsistent", accountID))
		fields := []zap.Field{
			zap.String("account_id", accountID.String()),
			zap.String("ledger_balance", result.LedgerBalance.String()),
			zap.String("account_balance", acc.Budget.String()),
		}
		if result.Break != nil {
			fields = append(fields, zap.String("break", result.Break.String()))
		}
		logger.Alert(logger.WithContext(ctx, s.logger), "Ledger chain verification failed", violation, fields...)
		if s.metrics != nil {
			s.metrics.RecordIntegrityViolation(ctx, tenantID, "ledger.verify_chain")
		}
	}
	return result, nil
}

// Balance is the current state of an account's funds
type Balance struct {
	AccountID       uuid.UUID       `json:"account_id"`
	Balance         decimal.Decimal `json:"balance"`
	OverdraftLimit  decimal.Decimal `json:"overdraft_limit"`
	AvailableBudget decimal.Decimal `json:"available_budget"`
	Currency        string          `json:"currency"`
	LastSequence    int64           `json:"last_sequence"`
}

// Balance returns the account's balance as of its latest entry
func (s *Service) Balance(ctx context.Context, tenantID, accountID uuid.UUID) (*Balance, error) {
	acc, err := s.accounts.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	latest, err := s.entries.FindLatest(ctx, tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest ledger entry: %w", err)
	}
	b := &Balance{
		AccountID:      acc.ID,
		Balance:        acc.OpeningBalance,
		OverdraftLimit: acc.OverdraftLimit,
		Currency:       acc.Currency,
	}
	if latest != nil {
		b.Balance = latest.BalanceAfter
		b.LastSequence = latest.Sequence
	}
	b.AvailableBudget = b.Balance.Add(acc.OverdraftLimit)
	return b, nil
}

func (s *Service) observe(ctx context.Context, tenantID uuid.UUID, operation string, err error) {
	if err == nil {
		return
	}
	if shared.IsIntegrityViolation(err) {
		logger.Alert(logger.WithContext(ctx, s.logger), "Ledger invariant violated", err, zap.String("operation", operation))
	}
	s.metrics.RecordOutcome(ctx, tenantID, operation, err)
}

func accountLockKey(tenantID, accountID uuid.UUID) string {
	return "ledger:" + tenantID.String() + ":" + accountID.String()
}
