package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/mealplan/backend/internal/application/dashboard"
	ledgerapp "github.com/mealplan/backend/internal/application/ledger"
	subscriptionapp "github.com/mealplan/backend/internal/application/subscription"
	"github.com/mealplan/backend/internal/application/sweep"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/mealplan/backend/internal/domain/budget"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/auth"
	"github.com/mealplan/backend/internal/infrastructure/cache"
	"github.com/mealplan/backend/internal/infrastructure/config"
	"github.com/mealplan/backend/internal/infrastructure/event"
	"github.com/mealplan/backend/internal/infrastructure/logger"
	"github.com/mealplan/backend/internal/infrastructure/migration"
	"github.com/mealplan/backend/internal/infrastructure/persistence"
	"github.com/mealplan/backend/internal/infrastructure/scheduler"
	"github.com/mealplan/backend/internal/infrastructure/telemetry"
	"github.com/mealplan/backend/internal/interfaces/http/handler"
	"github.com/mealplan/backend/internal/interfaces/http/middleware"
	"github.com/mealplan/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Meal Plan Backend API
//	@version		1.0
//	@description	Meal subscription lifecycle and budget ledger API
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/mealplan/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}

	// The log exporter needs a logger of its own before the real one exists
	bootLog, err := logger.New(&logger.Config{Level: "warn", Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, telCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, logProvider.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting meal plan backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	metricsCfg := telCfg
	metricsCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled
	meterProvider, err := telemetry.NewMeterProvider(ctx, metricsCfg, cfg.Telemetry.MetricsInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrations(cfg, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	var plugins []gorm.Plugin
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTrace := telemetry.DefaultDBTracingConfig()
		dbTrace.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		dbTrace.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		dbTrace.DBName = cfg.Database.DBName
		plugins = append(plugins, telemetry.NewDBTracingPlugin(dbTrace, log))
	}
	db, err := persistence.Open(ctx, &cfg.Database, gormLog, plugins...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	lockers := cache.NewLockerFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	locker, closeLocker, err := lockers.CreateLocker(ctx)
	if err != nil {
		log.Fatal("Failed to create locker", zap.Error(err))
	}
	defer func() {
		if err := closeLocker(); err != nil {
			log.Warn("Error closing locker", zap.Error(err))
		}
	}()

	// Event bus: audit log and business metrics listen to every domain event
	bus := event.NewInMemoryEventBus(log)
	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  meterProvider.Meter(cfg.Telemetry.ServiceName),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}
	bus.Subscribe(businessMetrics)
	bus.Subscribe(event.NewAuditLogHandler(log))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Domain configuration
	catalog, err := account.ParseCatalog(cfg.Meal.Combos)
	if err != nil {
		log.Fatal("Invalid combo catalog", zap.Error(err))
	}
	defaultCutoff, err := calendar.ParseTimeOfDay(cfg.Meal.DefaultCutoff)
	if err != nil {
		log.Fatal("Invalid default cutoff", zap.Error(err))
	}
	defaults := account.Defaults{
		Timezone: cfg.Meal.DefaultTimezone,
		Cutoff:   defaultCutoff,
		Currency: cfg.Meal.DefaultCurrency,
	}
	locale, err := language.Parse(cfg.Meal.Locale)
	if err != nil {
		log.Warn("Unknown locale, falling back to English", zap.String("locale", cfg.Meal.Locale))
		locale = language.English
	}
	lifecycle := subscription.NewLifecycle(
		subscription.NewGenerator(subscription.WithSkipWeekends(cfg.Meal.SkipWeekends)),
		subscription.NewFreezeQuota(cfg.Meal.WeeklyFreezeLimit),
	)
	cutoff := calendar.NewCutoffService()
	clock := calendar.SystemClock{}

	// Repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	employeeRepo := persistence.NewGormEmployeeRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	freezeRepo := persistence.NewGormFreezeRecordRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)
	txManager := persistence.NewGormTxManager(db.DB)
	settings := account.NewSettingsResolver(accountRepo, defaults)

	// Application services
	ledgerService := ledgerapp.NewService(ledgerapp.ServiceConfig{
		Accounts:  accountRepo,
		Entries:   ledgerRepo,
		TxManager: txManager,
		Locker:    locker,
		LockTTL:   cfg.Redis.LockTTL,
		Publisher: bus,
		Metrics:   businessMetrics,
		Clock:     clock,
		Logger:    log,
	})
	subscriptionService := subscriptionapp.NewService(subscriptionapp.ServiceConfig{
		TxManager:     txManager,
		Subscriptions: subscriptionRepo,
		Orders:        orderRepo,
		FreezeRecords: freezeRepo,
		Employees:     employeeRepo,
		Settings:      settings,
		Catalog:       catalog,
		Ledger:        ledgerService,
		Lifecycle:     lifecycle,
		Cutoff:        cutoff,
		Clock:         clock,
		Locker:        locker,
		LockTTL:       cfg.Redis.LockTTL,
		Publisher:     bus,
		Metrics:       businessMetrics,
		Logger:        log,
	})
	dashboardService := dashboard.NewService(dashboard.ServiceConfig{
		Accounts:   accountRepo,
		Orders:     orderRepo,
		Settings:   settings,
		Cutoff:     cutoff,
		Calculator: budget.NewCalculator(locale),
		Clock:      clock,
		Logger:     log,
	})

	// Completion sweep
	completion := sweep.NewCompletionJob(sweep.Config{
		TxManager:     txManager,
		Accounts:      accountRepo,
		Subscriptions: subscriptionRepo,
		Orders:        orderRepo,
		Defaults:      defaults,
		Lifecycle:     lifecycle,
		Cutoff:        cutoff,
		Clock:         clock,
		BatchSize:     cfg.Scheduler.SweepBatchSize,
		Publisher:     bus,
		Metrics:       businessMetrics,
		Logger:        log,
	})
	var (
		jobScheduler *scheduler.Scheduler
		cronTrigger  *scheduler.CronTrigger
	)
	if cfg.Scheduler.Enabled {
		schedCfg := scheduler.DefaultConfig()
		schedCfg.MaxConcurrentJobs = cfg.Scheduler.MaxConcurrentJobs
		schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
		schedCfg.RetryAttempts = cfg.Scheduler.RetryAttempts
		schedCfg.RetryDelay = cfg.Scheduler.RetryDelay
		jobScheduler = scheduler.NewScheduler(schedCfg, completion, log)
		if err := jobScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}

		triggerCfg := scheduler.DefaultCronTriggerConfig()
		triggerCfg.Schedule = cfg.Scheduler.SweepCronSchedule
		cronTrigger, err = scheduler.NewCronTrigger(triggerCfg, jobScheduler, accountRepo, log)
		if err != nil {
			log.Fatal("Invalid sweep schedule", zap.Error(err))
		}
		if err := cronTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sweep trigger", zap.Error(err))
		}
		log.Info("Completion sweep scheduled", zap.String("schedule", triggerCfg.Schedule))
	} else {
		log.Info("Scheduler disabled, orders are completed only by mealctl sweep")
	}

	// HTTP layer
	if err := middleware.SetupValidator(catalog); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	httpMetrics, err := middleware.HTTPMetrics(meterProvider.Meter(cfg.Telemetry.ServiceName + "/http"))
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		}),
		logger.GinMiddleware(log),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		httpMetrics,
	)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	publicPaths := []string{"/api/v1/health", "/api/v1/system"}
	if cfg.JWT.Enabled {
		jwtCfg := middleware.DefaultJWTConfig(auth.NewJWTService(cfg.JWT))
		jwtCfg.SkipPaths = publicPaths
		jwtCfg.Logger = log
		r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))
	} else {
		log.Warn("JWT authentication disabled, tenants are taken from the X-Tenant-ID header")
	}
	r.Use(
		middleware.TenantMiddleware(middleware.TenantMiddlewareConfig{
			HeaderEnabled: !cfg.JWT.Enabled,
			SkipPaths:     publicPaths,
		}),
		middleware.SpanEnricher(),
	)
	router.RegisterMealRoutes(r, router.Handlers{
		Subscriptions: handler.NewSubscriptionHandler(subscriptionService),
		Orders:        handler.NewOrderHandler(subscriptionService),
		Employees:     handler.NewEmployeeHandler(subscriptionService),
		Accounts:      handler.NewAccountHandler(ledgerService, dashboardService),
		System:        handler.NewSystemHandler(cfg.App.Name, version, db.SQL()),
	})
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cronTrigger != nil {
		if err := cronTrigger.Stop(shutdownCtx); err != nil {
			log.Warn("Sweep trigger did not stop", zap.Error(err))
		}
	}
	if jobScheduler != nil {
		if err := jobScheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler did not drain", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Error stopping event bus", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing traces", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing logs", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runMigrations applies the embedded schema over a dedicated connection,
// which the migrator closes when done
func runMigrations(cfg *config.Config, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer m.Close()
	return m.Up()
}
