// Package subscription orchestrates the subscription and order lifecycle: each
// operation loads the aggregate under a row lock, applies the domain transition,
// persists every touched row and ledger entry in one transaction, and publishes
// the resulting events after commit.
package subscription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/logger"
	"github.com/mealplan/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultLockTTL = 15 * time.Second

// LedgerRecorder appends ledger entries inside the caller's transaction and
// publishes them after commit
type LedgerRecorder interface {
	Append(ctx context.Context, req ledger.Request, now time.Time) (*ledger.Entry, error)
	Publish(ctx context.Context, entries ...*ledger.Entry)
}

// Service is the subscription application service
type Service struct {
	txManager     shared.TxManager
	subscriptions subscription.SubscriptionRepository
	orders        subscription.OrderRepository
	freezes       subscription.FreezeRecordRepository
	employees     account.EmployeeRepository
	settings      *account.SettingsResolver
	catalog       account.PriceCatalog
	ledger        LedgerRecorder
	lifecycle     *subscription.Lifecycle
	cutoff        *calendar.CutoffService
	clock         calendar.Clock
	locker        shared.Locker
	lockTTL       time.Duration
	publisher     shared.EventPublisher
	metrics       *telemetry.BusinessMetrics
	logger        *zap.Logger
}

// ServiceConfig holds the dependencies of Service. Locker, Publisher and Metrics
// are optional; Lifecycle, Cutoff and Clock have defaults.
type ServiceConfig struct {
	TxManager     shared.TxManager
	Subscriptions subscription.SubscriptionRepository
	Orders        subscription.OrderRepository
	FreezeRecords subscription.FreezeRecordRepository
	Employees     account.EmployeeRepository
	Settings      *account.SettingsResolver
	Catalog       account.PriceCatalog
	Ledger        LedgerRecorder
	Lifecycle     *subscription.Lifecycle
	Cutoff        *calendar.CutoffService
	Clock         calendar.Clock
	Locker        shared.Locker
	LockTTL       time.Duration
	Publisher     shared.EventPublisher
	Metrics       *telemetry.BusinessMetrics
	Logger        *zap.Logger
}

// NewService creates a subscription service
func NewService(cfg ServiceConfig) *Service {
	if cfg.Lifecycle == nil {
		cfg.Lifecycle = subscription.NewLifecycle(nil, subscription.NewFreezeQuota(subscription.DefaultWeeklyFreezeLimit))
	}
	if cfg.Cutoff == nil {
		cfg.Cutoff = calendar.NewCutoffService()
	}
	if cfg.Clock == nil {
		cfg.Clock = calendar.SystemClock{}
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		txManager:     cfg.TxManager,
		subscriptions: cfg.Subscriptions,
		orders:        cfg.Orders,
		freezes:       cfg.FreezeRecords,
		employees:     cfg.Employees,
		settings:      cfg.Settings,
		catalog:       cfg.Catalog,
		ledger:        cfg.Ledger,
		lifecycle:     cfg.Lifecycle,
		cutoff:        cfg.Cutoff,
		clock:         cfg.Clock,
		locker:        cfg.Locker,
		lockTTL:       cfg.LockTTL,
		publisher:     cfg.Publisher,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}
}

// outcome collects what a transaction produced so it can be published after commit
type outcome struct {
	subs    []*subscription.Subscription
	entries []*ledger.Entry
}

func (o *outcome) track(sub *subscription.Subscription) {
	for _, s := range o.subs {
		if s == sub {
			return
		}
	}
	o.subs = append(o.subs, sub)
}

// run executes fn in one transaction, records the outcome and publishes events
// once the transaction has committed
func (s *Service) run(ctx context.Context, tenantID uuid.UUID, operation string, fn func(ctx context.Context, out *outcome) error) error {
	out := &outcome{}
	err := s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		return fn(txCtx, out)
	})
	s.observe(ctx, tenantID, operation, err)
	if err != nil {
		for _, sub := range out.subs {
			sub.ClearDomainEvents()
		}
		return err
	}
	s.publish(ctx, out)
	return nil
}

func (s *Service) publish(ctx context.Context, out *outcome) {
	if s.publisher != nil {
		var events []shared.DomainEvent
		for _, sub := range out.subs {
			events = append(events, sub.GetDomainEvents()...)
		}
		if len(events) > 0 {
			if err := s.publisher.Publish(ctx, events...); err != nil {
				s.log(ctx).Warn("Failed to publish subscription events", zap.Error(err))
			}
		}
	}
	for _, sub := range out.subs {
		sub.ClearDomainEvents()
	}
	if s.ledger != nil {
		s.ledger.Publish(ctx, out.entries...)
	}
}

// observe logs and counts a failed operation. Integrity violations raise an alert;
// business rejections are expected and logged at info.
func (s *Service) observe(ctx context.Context, tenantID uuid.UUID, operation string, err error) {
	if err == nil {
		return
	}
	switch {
	case shared.IsIntegrityViolation(err):
		logger.Alert(logger.WithContext(ctx, s.logger), "Subscription invariant violated", err,
			zap.String("operation", operation))
	case shared.IsBusinessRejection(err):
		s.log(ctx).Info("Operation rejected",
			zap.String("operation", operation),
			zap.String("code", shared.ErrorCode(err)),
			zap.String("reason", err.Error()))
	}
	s.metrics.RecordOutcome(ctx, tenantID, operation, err)
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.Enrich(ctx, s.logger)
}

// cutoffFor evaluates the cutoff of the account at now
func (s *Service) cutoffFor(ctx context.Context, tenantID, accountID uuid.UUID, now time.Time) (calendar.CutoffStatus, error) {
	_, settings, err := s.settings.Resolve(ctx, tenantID, accountID)
	if err != nil {
		return calendar.CutoffStatus{}, err
	}
	status := s.cutoff.Evaluate(now, settings.Timezone, settings.Cutoff)
	if status.Fallback {
		s.log(ctx).Warn("Unknown account timezone, using UTC",
			zap.String("account_id", accountID.String()),
			zap.String("timezone", settings.Timezone))
	}
	return status, nil
}

// persist writes the subscription and every order a transition touched
func (s *Service) persist(ctx context.Context, sub *subscription.Subscription, changes subscription.Changes) error {
	if err := s.subscriptions.SaveWithLock(ctx, sub); err != nil {
		return err
	}
	if len(changes.Updated) > 0 {
		if err := s.orders.SaveBatch(ctx, changes.Updated); err != nil {
			return fmt.Errorf("failed to save orders: %w", err)
		}
	}
	if len(changes.Created) > 0 {
		if err := s.orders.CreateBatch(ctx, changes.Created); err != nil {
			return err
		}
	}
	if changes.FreezeRecord != nil {
		if err := s.freezes.Create(ctx, changes.FreezeRecord); err != nil {
			return err
		}
	}
	return nil
}

// charge appends a ledger entry for amount to the subscription's account. Zero
// amounts record nothing; the entry type follows the sign for adjustments.
func (s *Service) charge(ctx context.Context, out *outcome, sub *subscription.Subscription, t ledger.EntryType, amount decimal.Decimal, orderID, operatorID *uuid.UUID, description string, now time.Time) (*ledger.Entry, error) {
	if amount.IsZero() || s.ledger == nil {
		return nil, nil
	}
	subID := sub.ID
	entry, err := s.ledger.Append(ctx, ledger.Request{
		TenantID:       sub.TenantID,
		AccountID:      sub.AccountID,
		Type:           t,
		Amount:         amount,
		SubscriptionID: &subID,
		OrderID:        orderID,
		Description:    description,
		OperatorID:     operatorID,
	}, now)
	if err != nil {
		return nil, err
	}
	out.entries = append(out.entries, entry)
	return entry, nil
}

// lockSubscription loads the subscription under a row lock together with its orders
func (s *Service) lockSubscription(ctx context.Context, tenantID, id uuid.UUID) (*subscription.Subscription, []*subscription.Order, error) {
	sub, err := s.subscriptions.FindByIDForUpdate(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	orders, err := s.orders.FindBySubscription(ctx, tenantID, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return sub, orders, nil
}

func (s *Service) price(combo string) (subscription.ComboType, decimal.Decimal, error) {
	combo = strings.ToUpper(strings.TrimSpace(combo))
	if combo == "" {
		return "", decimal.Zero, shared.NewValidationError("Combo type is required")
	}
	price, err := s.catalog.Price(combo)
	if err != nil {
		return "", decimal.Zero, err
	}
	return subscription.ComboType(combo), price, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Create configures a subscription for every requested employee. All employees
// succeed or none do.
func (s *Service) Create(ctx context.Context, req CreateRequest) (subs []*subscription.Subscription, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "create",
		attribute.Int("employee_count", len(req.EmployeeIDs)))
	defer func() { telemetry.EndSpan(span, err) }()

	employeeIDs := uniqueIDs(req.EmployeeIDs)
	if len(employeeIDs) == 0 {
		return nil, shared.NewValidationError("At least one employee is required")
	}
	if (req.EndDate == nil) == (req.TotalDays <= 0) {
		return nil, shared.NewValidationError("Exactly one of end date and total days is required")
	}
	combo, price, err := s.price(req.ComboType)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.run(ctx, req.TenantID, "subscription.create", func(ctx context.Context, out *outcome) error {
		employees, err := s.employees.FindByIDs(ctx, req.TenantID, employeeIDs)
		if err != nil {
			return fmt.Errorf("failed to load employees: %w", err)
		}
		byID := make(map[uuid.UUID]*account.Employee, len(employees))
		for _, e := range employees {
			byID[e.ID] = e
		}

		for _, id := range employeeIDs {
			emp, ok := byID[id]
			if !ok {
				return shared.NewNotFoundError(fmt.Sprintf("Employee %s not found", id))
			}
			sub, err := s.createOne(ctx, out, req, emp, combo, price, now)
			if err != nil {
				return err
			}
			subs = append(subs, sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx).Info("Subscriptions created",
		zap.Int("count", len(subs)),
		zap.String("combo_type", combo.String()),
		zap.String("start_date", req.StartDate.String()))
	return subs, nil
}

func (s *Service) createOne(ctx context.Context, out *outcome, req CreateRequest, emp *account.Employee, combo subscription.ComboType, price decimal.Decimal, now time.Time) (*subscription.Subscription, error) {
	if err := emp.RequireActive(); err != nil {
		return nil, err
	}
	today, err := s.cutoffFor(ctx, req.TenantID, emp.AccountID, now)
	if err != nil {
		return nil, err
	}

	params := subscription.NewSubscriptionParams{
		TenantID:   req.TenantID,
		EmployeeID: emp.ID,
		AccountID:  emp.AccountID,
		StartDate:  req.StartDate,
		TotalDays:  req.TotalDays,
		ComboType:  combo,
		Price:      price,
		Pattern:    req.Pattern,
		Weekdays:   req.Weekdays,
		CreatedBy:  req.OperatorID,
	}
	if params.Pattern == "" {
		params.Pattern = subscription.ScheduleEveryDay
	}
	if req.EndDate != nil {
		days, err := s.lifecycle.TotalDaysForWindow(params, *req.EndDate)
		if err != nil {
			return nil, err
		}
		params.TotalDays = days
	}

	sub, orders, err := s.lifecycle.Create(params, now, today.Today)
	if err != nil {
		return nil, err
	}
	out.track(sub)

	occupied, err := s.orders.FindOccupiedDates(ctx, req.TenantID, emp.ID, sub.StartDate, sub.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing orders: %w", err)
	}
	if len(occupied) > 0 {
		return nil, shared.NewInvalidTransitionError(
			fmt.Sprintf("Employee %s already has an order on %s", emp.ID, occupied[0]))
	}

	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.orders.CreateBatch(ctx, orders); err != nil {
		return nil, err
	}
	description := fmt.Sprintf("Subscription %s: %d days of %s", sub.ID, sub.TotalDays, sub.ComboType)
	if _, err := s.charge(ctx, out, sub, ledger.EntryTypeDeduction, sub.TotalPrice, nil, req.OperatorID, description, now); err != nil {
		return nil, err
	}
	return sub, nil
}

// Get returns one subscription
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*subscription.Subscription, error) {
	return s.subscriptions.FindByID(ctx, tenantID, id)
}

// List returns a page of the tenant's subscriptions
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*subscription.Subscription], error) {
	filter = filter.Normalized()
	subs, total, err := s.subscriptions.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*subscription.Subscription]{}, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return shared.NewPaginated(subs, total, filter.Page, filter.PageSize), nil
}

// ListOrders returns every order of a subscription ordered by date
func (s *Service) ListOrders(ctx context.Context, tenantID, id uuid.UUID) ([]*subscription.Order, error) {
	if _, err := s.subscriptions.FindByID(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return s.orders.FindBySubscription(ctx, tenantID, id)
}
