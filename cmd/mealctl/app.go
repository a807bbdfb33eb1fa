package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	ledgerapp "github.com/mealplan/backend/internal/application/ledger"
	subscriptionapp "github.com/mealplan/backend/internal/application/subscription"
	"github.com/mealplan/backend/internal/application/sweep"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/config"
	"github.com/mealplan/backend/internal/infrastructure/event"
	"github.com/mealplan/backend/internal/infrastructure/logger"
	"github.com/mealplan/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// app holds the services a command needs
type app struct {
	cfg          *config.Config
	log          *zap.Logger
	db           *persistence.Database
	ledger       *ledgerapp.Service
	subscription *subscriptionapp.Service
	completion   *sweep.CompletionJob
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{Level: flagLogLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := persistence.Open(ctx, &cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(flagLogLevel)))
	if err != nil {
		return nil, err
	}

	cutoff, err := calendar.ParseTimeOfDay(cfg.Meal.DefaultCutoff)
	if err != nil {
		return nil, err
	}
	defaults := account.Defaults{Timezone: cfg.Meal.DefaultTimezone, Cutoff: cutoff, Currency: cfg.Meal.DefaultCurrency}
	catalog, err := account.ParseCatalog(cfg.Meal.Combos)
	if err != nil {
		return nil, err
	}
	lifecycle := subscription.NewLifecycle(
		subscription.NewGenerator(subscription.WithSkipWeekends(cfg.Meal.SkipWeekends)),
		subscription.NewFreezeQuota(cfg.Meal.WeeklyFreezeLimit),
	)

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditLogHandler(log))

	accounts := persistence.NewGormAccountRepository(db.DB)
	subscriptions := persistence.NewGormSubscriptionRepository(db.DB)
	orders := persistence.NewGormOrderRepository(db.DB)
	tx := persistence.NewGormTxManager(db.DB)

	ledgerSvc := ledgerapp.NewService(ledgerapp.ServiceConfig{
		Accounts:  accounts,
		Entries:   persistence.NewGormLedgerRepository(db.DB),
		TxManager: tx,
		Publisher: bus,
		Logger:    log,
	})
	return &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		ledger: ledgerSvc,
		subscription: subscriptionapp.NewService(subscriptionapp.ServiceConfig{
			TxManager:     tx,
			Subscriptions: subscriptions,
			Orders:        orders,
			FreezeRecords: persistence.NewGormFreezeRecordRepository(db.DB),
			Employees:     persistence.NewGormEmployeeRepository(db.DB),
			Settings:      account.NewSettingsResolver(accounts, defaults),
			Catalog:       catalog,
			Ledger:        ledgerSvc,
			Lifecycle:     lifecycle,
			Publisher:     bus,
			Logger:        log,
		}),
		completion: sweep.NewCompletionJob(sweep.Config{
			TxManager:     tx,
			Accounts:      accounts,
			Subscriptions: subscriptions,
			Orders:        orders,
			Defaults:      defaults,
			Lifecycle:     lifecycle,
			BatchSize:     cfg.Scheduler.SweepBatchSize,
			Publisher:     bus,
			Logger:        log,
		}),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("Error closing database", zap.Error(err))
	}
	_ = a.log.Sync()
}

func tenantID() (uuid.UUID, error) {
	if flagTenant == "" {
		return uuid.Nil, fmt.Errorf("--tenant is required")
	}
	id, err := uuid.Parse(flagTenant)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --tenant: %w", err)
	}
	return id, nil
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
