// Package dashboard assembles the read-only budget dashboard of an account.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/mealplan/backend/internal/domain/budget"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/logger"
	"github.com/mealplan/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Dashboard is the budget view of one account. A company aggregates the orders
// of all of its projects against its own budget.
type Dashboard struct {
	AccountID          uuid.UUID
	Kind               account.Kind
	Name               string
	Currency           string
	Forecast           decimal.Decimal
	TotalOrders        int64
	Budget             decimal.Decimal
	OverdraftLimit     decimal.Decimal
	AvailableBudget    decimal.Decimal
	ConsumptionPercent decimal.Decimal
	RemainingPercent   decimal.Decimal
	IsLowBudget        bool
	WarningLevel       budget.WarningLevel
	WarningMessage     string
	Today              calendar.Date
	Timezone           string
	TimezoneFallback   bool
	CutoffTime         string
	CutoffAt           time.Time
	IsCutoffPassed     bool
	OrdersToday        int64
	OrdersYesterday    int64
	DayOverDayPercent  decimal.Decimal
}

// Service builds dashboards
type Service struct {
	accounts   account.Repository
	orders     subscription.OrderRepository
	settings   *account.SettingsResolver
	cutoff     *calendar.CutoffService
	calculator *budget.Calculator
	clock      calendar.Clock
	logger     *zap.Logger
}

// ServiceConfig holds the dependencies of Service
type ServiceConfig struct {
	Accounts   account.Repository
	Orders     subscription.OrderRepository
	Settings   *account.SettingsResolver
	Cutoff     *calendar.CutoffService
	Calculator *budget.Calculator
	Clock      calendar.Clock
	Logger     *zap.Logger
}

// NewService creates a dashboard service
func NewService(cfg ServiceConfig) *Service {
	if cfg.Cutoff == nil {
		cfg.Cutoff = calendar.NewCutoffService()
	}
	if cfg.Calculator == nil {
		cfg.Calculator = budget.NewCalculator(language.English)
	}
	if cfg.Clock == nil {
		cfg.Clock = calendar.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		accounts:   cfg.Accounts,
		orders:     cfg.Orders,
		settings:   cfg.Settings,
		cutoff:     cfg.Cutoff,
		calculator: cfg.Calculator,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// Get returns the dashboard of an account
func (s *Service) Get(ctx context.Context, tenantID, accountID uuid.UUID) (result *Dashboard, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dashboard", "get",
		attribute.String("account_id", accountID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	acc, settings, err := s.settings.Resolve(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}

	scope := []uuid.UUID{acc.ID}
	if acc.Kind == account.KindCompany {
		children, err := s.accounts.FindChildren(ctx, tenantID, acc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load projects: %w", err)
		}
		for _, child := range children {
			scope = append(scope, child.ID)
		}
	}

	total, count, err := s.orders.SumActiveByAccounts(ctx, tenantID, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to sum active orders: %w", err)
	}
	forecast := s.calculator.Calculate(budget.Input{
		Budget:         acc.Budget,
		OverdraftLimit: acc.OverdraftLimit,
		Currency:       settings.Currency,
		ActiveTotal:    total,
		ActiveCount:    count,
	})

	status := s.cutoff.Evaluate(s.clock.Now(), settings.Timezone, settings.Cutoff)
	if status.Fallback {
		logger.Enrich(ctx, s.logger).Warn("Unknown account timezone, using UTC",
			zap.String("account_id", acc.ID.String()),
			zap.String("timezone", settings.Timezone))
	}
	today, err := s.orders.CountByAccountsAndDate(ctx, tenantID, scope, status.Today)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's orders: %w", err)
	}
	yesterday, err := s.orders.CountByAccountsAndDate(ctx, tenantID, scope, status.Yesterday())
	if err != nil {
		return nil, fmt.Errorf("failed to count yesterday's orders: %w", err)
	}
	dod := budget.CompareDays(today, yesterday)

	return &Dashboard{
		AccountID:          acc.ID,
		Kind:               acc.Kind,
		Name:               acc.Name,
		Currency:           settings.Currency,
		Forecast:           forecast.Forecast,
		TotalOrders:        forecast.TotalOrders,
		Budget:             forecast.Budget,
		OverdraftLimit:     forecast.OverdraftLimit,
		AvailableBudget:    forecast.AvailableBudget,
		ConsumptionPercent: forecast.ConsumptionPercent,
		RemainingPercent:   forecast.RemainingPercent,
		IsLowBudget:        forecast.IsLowBudget,
		WarningLevel:       forecast.WarningLevel,
		WarningMessage:     forecast.WarningMessage,
		Today:              status.Today,
		Timezone:           status.Location.String(),
		TimezoneFallback:   status.Fallback,
		CutoffTime:         status.Cutoff.String(),
		CutoffAt:           status.CutoffAt,
		IsCutoffPassed:     status.Passed,
		OrdersToday:        dod.Today,
		OrdersYesterday:    dod.Yesterday,
		DayOverDayPercent:  dod.ChangePercent,
	}, nil
}
