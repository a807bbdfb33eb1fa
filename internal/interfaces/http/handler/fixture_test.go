package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/application/dashboard"
	ledgerapp "github.com/mealplan/backend/internal/application/ledger"
	subscriptionapp "github.com/mealplan/backend/internal/application/subscription"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/infrastructure/persistence"
	"github.com/mealplan/backend/internal/infrastructure/persistence/models"
	"github.com/mealplan/backend/internal/interfaces/http/dto"
	"github.com/mealplan/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// apiFixture serves the meal API over an in-memory database. The clock is fixed
// at 2024-12-01 08:00 UTC, two hours before the cutoff.
type apiFixture struct {
	engine   *gin.Engine
	tenantID uuid.UUID
	company  *account.Account
	alice    *account.Employee
	bob      *account.Employee
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	ctx := context.Background()
	now := calendar.MustParseDate("2024-12-01").Time().Add(8 * time.Hour)
	clock := calendar.FixedClock{At: now}

	f := &apiFixture{tenantID: uuid.New()}
	accounts := persistence.NewGormAccountRepository(db)
	employees := persistence.NewGormEmployeeRepository(db)
	orders := persistence.NewGormOrderRepository(db)

	f.company = &account.Account{
		ID: uuid.New(), TenantID: f.tenantID, Kind: account.KindCompany, Name: "Acme",
		Budget: decimal.NewFromInt(1000), OpeningBalance: decimal.NewFromInt(1000),
		OverdraftLimit: decimal.NewFromInt(200), Currency: "USD", Timezone: "UTC", CutoffTime: "10:00",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, accounts.Create(ctx, f.company))
	f.alice = &account.Employee{ID: uuid.New(), TenantID: f.tenantID, AccountID: f.company.ID, Name: "Alice", Active: true}
	f.bob = &account.Employee{ID: uuid.New(), TenantID: f.tenantID, AccountID: f.company.ID, Name: "Bob", Active: true}
	require.NoError(t, employees.Create(ctx, f.alice, now))
	require.NoError(t, employees.Create(ctx, f.bob, now))

	catalog := account.NewStaticCatalog(map[string]decimal.Decimal{
		"STANDARD": decimal.NewFromInt(10),
		"PREMIUM":  decimal.NewFromInt(15),
	})
	require.NoError(t, middleware.SetupValidator(catalog))

	settings := account.NewSettingsResolver(accounts, account.Defaults{
		Timezone: "UTC", Cutoff: calendar.TimeOfDay{Hour: 10}, Currency: "USD",
	})
	tx := persistence.NewGormTxManager(db)
	ledgerSvc := ledgerapp.NewService(ledgerapp.ServiceConfig{
		Accounts:  accounts,
		Entries:   persistence.NewGormLedgerRepository(db),
		TxManager: tx,
		Clock:     clock,
	})
	subSvc := subscriptionapp.NewService(subscriptionapp.ServiceConfig{
		TxManager:     tx,
		Subscriptions: persistence.NewGormSubscriptionRepository(db),
		Orders:        orders,
		FreezeRecords: persistence.NewGormFreezeRecordRepository(db),
		Employees:     employees,
		Settings:      settings,
		Catalog:       catalog,
		Ledger:        ledgerSvc,
		Clock:         clock,
	})
	dashSvc := dashboard.NewService(dashboard.ServiceConfig{
		Accounts: accounts,
		Orders:   orders,
		Settings: settings,
		Clock:    clock,
	})

	subs := NewSubscriptionHandler(subSvc)
	ords := NewOrderHandler(subSvc)
	emps := NewEmployeeHandler(subSvc)
	accs := NewAccountHandler(ledgerSvc, dashSvc)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.TenantMiddleware(middleware.TenantMiddlewareConfig{HeaderEnabled: true}))
	api := engine.Group("/api/v1")
	api.POST("/subscriptions", subs.Create)
	api.GET("/subscriptions", subs.List)
	api.POST("/subscriptions/bulk-update", subs.BulkUpdate)
	api.GET("/subscriptions/:id", subs.Get)
	api.GET("/subscriptions/:id/orders", subs.ListOrders)
	api.POST("/subscriptions/:id/pause", subs.Pause)
	api.POST("/subscriptions/:id/resume", subs.Resume)
	api.POST("/subscriptions/:id/extend", subs.Extend)
	api.POST("/subscriptions/:id/cancel", subs.Cancel)
	api.POST("/subscriptions/:id/combo", subs.ChangeCombo)
	api.POST("/orders/:id/freeze", ords.Freeze)
	api.POST("/orders/:id/unfreeze", ords.Unfreeze)
	api.POST("/orders/:id/cancel", ords.Cancel)
	api.POST("/employees/:id/combo", emps.ChangeCombo)
	api.GET("/employees/:id/freeze-info", emps.FreezeInfo)
	api.GET("/accounts/:id/dashboard", accs.Dashboard)
	api.GET("/accounts/:id/ledger", accs.ListEntries)
	api.GET("/accounts/:id/ledger/verify", accs.Verify)
	api.GET("/accounts/:id/ledger/balance", accs.Balance)
	api.POST("/accounts/:id/ledger/deposits", accs.Deposit)
	api.POST("/accounts/:id/ledger/refunds", accs.Refund)
	api.POST("/accounts/:id/ledger/guest-orders", accs.GuestOrder)
	f.engine = engine
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeaderKey, f.tenantID.String())
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

// data decodes the success envelope's data into out
func data(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *dto.ErrorInfo  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func (f *apiFixture) subscribe(t *testing.T, employee *account.Employee, startDate string, days int) SubscriptionResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/subscriptions", map[string]any{
		"employee_ids": []string{employee.ID.String()},
		"combo_type":   "STANDARD",
		"start_date":   startDate,
		"total_days":   days,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var subs []SubscriptionResponse
	data(t, w, &subs)
	require.Len(t, subs, 1)
	return subs[0]
}

func (f *apiFixture) orderOn(t *testing.T, subID, date string) OrderResponse {
	t.Helper()
	w := f.do(t, http.MethodGet, "/subscriptions/"+subID+"/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []OrderResponse
	data(t, w, &orders)
	for _, o := range orders {
		if o.Date.String() == date && o.Status != "CANCELLED" {
			return o
		}
	}
	t.Fatalf("no live order on %s", date)
	return OrderResponse{}
}
