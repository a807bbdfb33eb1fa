package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory SQLite database with the production models.
// A single connection keeps every statement on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

var testNow = time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)

func newTestSubscription(t *testing.T, tenantID, employeeID, accountID uuid.UUID, days int) (*subscription.Subscription, []*subscription.Order) {
	t.Helper()
	lc := subscription.NewLifecycle(subscription.NewGenerator(), subscription.NewFreezeQuota(0))
	sub, orders, err := lc.Create(subscription.NewSubscriptionParams{
		TenantID:   tenantID,
		EmployeeID: employeeID,
		AccountID:  accountID,
		StartDate:  calendar.MustParseDate("2024-12-01"),
		TotalDays:  days,
		ComboType:  "STANDARD",
		Price:      decimal.NewFromInt(10),
	}, testNow, calendar.MustParseDate("2024-12-01"))
	require.NoError(t, err)
	return sub, orders
}

func seedSubscription(t *testing.T, db *gorm.DB, days int) (*subscription.Subscription, []*subscription.Order) {
	t.Helper()
	sub, orders := newTestSubscription(t, uuid.New(), uuid.New(), uuid.New(), days)
	ctx := context.Background()
	require.NoError(t, NewGormSubscriptionRepository(db).Create(ctx, sub))
	require.NoError(t, NewGormOrderRepository(db).CreateBatch(ctx, orders))
	return sub, orders
}

// ============================================
// Subscription repository
// ============================================

func TestGormSubscriptionRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSubscriptionRepository(db)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db, 10)

	found, err := repo.FindByID(ctx, sub.TenantID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)
	assert.Equal(t, "2024-12-10", found.EndDate.String())
	assert.Equal(t, 10, found.TotalDays)
	assert.True(t, decimal.NewFromInt(100).Equal(found.TotalPrice))
	assert.Equal(t, subscription.StatusActive, found.Status)
	assert.Equal(t, 1, found.Version)

	_, err = repo.FindByID(ctx, uuid.New(), sub.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormSubscriptionRepository_SaveWithLock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSubscriptionRepository(db)
	ctx := context.Background()
	sub, _ := seedSubscription(t, db, 5)

	stale, err := repo.FindByID(ctx, sub.TenantID, sub.ID)
	require.NoError(t, err)

	today := calendar.MustParseDate("2024-12-02")
	require.NoError(t, sub.Pause(testNow.Add(24*time.Hour), today))
	require.NoError(t, repo.SaveWithLock(ctx, sub))
	assert.Equal(t, 2, sub.Version)

	reloaded, err := repo.FindByID(ctx, sub.TenantID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPaused, reloaded.Status)
	require.NotNil(t, reloaded.PausedOn)
	assert.Equal(t, today, *reloaded.PausedOn)
	assert.Equal(t, 2, reloaded.Version)

	t.Run("stale version is rejected", func(t *testing.T) {
		stale.TotalDays = 99
		err := repo.SaveWithLock(ctx, stale)
		assert.Equal(t, shared.CodeConcurrentModification, shared.ErrorCode(err))
		assert.Equal(t, 1, stale.Version)
	})
}

func TestGormSubscriptionRepository_FindCurrentByEmployee(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSubscriptionRepository(db)
	ctx := context.Background()
	first, _ := seedSubscription(t, db, 5)

	lc := subscription.NewLifecycle(subscription.NewGenerator(), subscription.NewFreezeQuota(0))
	next, _, err := lc.Create(subscription.NewSubscriptionParams{
		TenantID:   first.TenantID,
		EmployeeID: first.EmployeeID,
		AccountID:  first.AccountID,
		StartDate:  calendar.MustParseDate("2025-01-01"),
		TotalDays:  5,
		ComboType:  "STANDARD",
		Price:      decimal.NewFromInt(10),
	}, testNow, calendar.MustParseDate("2024-12-01"))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, next))

	tests := []struct {
		name  string
		today string
		want  uuid.UUID
	}{
		{name: "window covers today", today: "2024-12-03", want: first.ID},
		{name: "ended but not swept", today: "2024-12-20", want: next.ID},
		{name: "second window", today: "2025-01-05", want: next.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, err := repo.FindCurrentByEmployee(ctx, first.TenantID, first.EmployeeID, calendar.MustParseDate(tt.today))
			require.NoError(t, err)
			assert.Equal(t, tt.want, current.ID)
		})
	}

	_, err = repo.FindCurrentByEmployee(ctx, first.TenantID, first.EmployeeID, calendar.MustParseDate("2025-01-06"))
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	require.NoError(t, next.Complete(testNow, subscription.ReasonCancelledByAdmin))
	require.NoError(t, repo.SaveWithLock(ctx, next))
	_, err = repo.FindCurrentByEmployee(ctx, first.TenantID, first.EmployeeID, calendar.MustParseDate("2024-12-20"))
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	_, err = repo.FindCurrentByEmployee(ctx, first.TenantID, uuid.New(), calendar.MustParseDate("2024-12-03"))
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormSubscriptionRepository_Queries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSubscriptionRepository(db)
	ctx := context.Background()

	tenantID, accountID := uuid.New(), uuid.New()
	for _, days := range []int{3, 5, 20} {
		sub, orders := newTestSubscription(t, tenantID, uuid.New(), accountID, days)
		require.NoError(t, repo.Create(ctx, sub))
		require.NoError(t, NewGormOrderRepository(db).CreateBatch(ctx, orders))
	}

	t.Run("FindExpiredActive", func(t *testing.T) {
		expired, err := repo.FindExpiredActive(ctx, tenantID, accountID, calendar.MustParseDate("2024-12-06"), nil, 10)
		require.NoError(t, err)
		require.Len(t, expired, 2)
		assert.Equal(t, "2024-12-03", expired[0].EndDate.String())
	})

	t.Run("FindExpiredActive excludes", func(t *testing.T) {
		all, err := repo.FindExpiredActive(ctx, tenantID, accountID, calendar.MustParseDate("2024-12-06"), nil, 10)
		require.NoError(t, err)
		require.Len(t, all, 2)

		rest, err := repo.FindExpiredActive(ctx, tenantID, accountID, calendar.MustParseDate("2024-12-06"), []uuid.UUID{all[0].ID}, 10)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, all[1].ID, rest[0].ID)
	})

	t.Run("FindAllForTenant paginates", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.PageSize = 2
		filter.OrderBy = "end_date"
		filter.OrderDir = "asc"
		filter.Filters["account_id"] = accountID

		subs, total, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, subs, 2)
		assert.Equal(t, 3, subs[0].TotalDays)
	})
}

// ============================================
// Order repository
// ============================================

func TestGormOrderRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	sub, orders := seedSubscription(t, db, 4)

	t.Run("FindBySubscription orders by date", func(t *testing.T) {
		found, err := repo.FindBySubscription(ctx, sub.TenantID, sub.ID)
		require.NoError(t, err)
		require.Len(t, found, 4)
		assert.Equal(t, "2024-12-01", found[0].Date.String())
		assert.Equal(t, "2024-12-04", found[3].Date.String())
		assert.True(t, decimal.NewFromInt(10).Equal(found[0].Price))
	})

	t.Run("double booking a date is rejected", func(t *testing.T) {
		dup := subscription.NewOrder(sub, orders[1].Date, testNow)
		err := repo.CreateBatch(ctx, []*subscription.Order{dup})
		assert.Equal(t, shared.CodeConcurrentModification, shared.ErrorCode(err))
	})

	t.Run("SaveBatch persists state and frees cancelled dates", func(t *testing.T) {
		cutoff := calendar.CutoffStatus{Today: calendar.MustParseDate("2024-12-01"), Evaluated: testNow}
		require.NoError(t, orders[2].Cancel(cutoff, "sick"))
		require.NoError(t, repo.SaveBatch(ctx, []*subscription.Order{orders[2]}))

		reloaded, err := repo.FindByID(ctx, sub.TenantID, orders[2].ID)
		require.NoError(t, err)
		assert.Equal(t, subscription.OrderStatusCancelled, reloaded.Status)
		assert.Equal(t, "sick", reloaded.CancelReason)

		dates, err := repo.FindOccupiedDates(ctx, sub.TenantID, sub.EmployeeID,
			calendar.MustParseDate("2024-12-01"), calendar.MustParseDate("2024-12-31"))
		require.NoError(t, err)
		assert.Len(t, dates, 3)
		assert.NotContains(t, dates, orders[2].Date)

		again := subscription.NewOrder(sub, orders[2].Date, testNow)
		assert.NoError(t, repo.CreateBatch(ctx, []*subscription.Order{again}))
	})

	t.Run("SaveBatch unknown order", func(t *testing.T) {
		ghost := subscription.NewOrder(sub, calendar.MustParseDate("2025-01-10"), testNow)
		err := repo.SaveBatch(ctx, []*subscription.Order{ghost})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("aggregates", func(t *testing.T) {
		total, count, err := repo.SumActiveByAccounts(ctx, sub.TenantID, []uuid.UUID{sub.AccountID})
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
		assert.True(t, decimal.NewFromInt(40).Equal(total), total.String())

		n, err := repo.CountByAccountsAndDate(ctx, sub.TenantID, []uuid.UUID{sub.AccountID}, calendar.MustParseDate("2024-12-01"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		total, count, err = repo.SumActiveByAccounts(ctx, sub.TenantID, []uuid.UUID{uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.True(t, total.IsZero())
	})

	t.Run("FindDueActive", func(t *testing.T) {
		due, err := repo.FindDueActive(ctx, sub.TenantID, sub.AccountID, calendar.MustParseDate("2024-12-03"), nil, 0)
		require.NoError(t, err)
		assert.Len(t, due, 2)

		due, err = repo.FindDueActive(ctx, sub.TenantID, sub.AccountID, calendar.MustParseDate("2024-12-03"), []uuid.UUID{sub.ID}, 0)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}

// ============================================
// Freeze records
// ============================================

func TestGormFreezeRecordRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormFreezeRecordRepository(db)
	ctx := context.Background()
	sub, orders := newTestSubscription(t, uuid.New(), uuid.New(), uuid.New(), 7)

	quota := subscription.NewFreezeQuota(2)
	week := orders[2].Date.ISOWeek()

	decision := quota.Evaluate(orders[2].Date, 0)
	first := subscription.NewFreezeRecord(orders[2], decision, "trip", testNow)
	require.NoError(t, repo.Create(ctx, first))

	used, err := repo.CountByEmployeeWeek(ctx, sub.TenantID, sub.EmployeeID, week)
	require.NoError(t, err)
	assert.Equal(t, 1, used)

	t.Run("same ordinal loses the race", func(t *testing.T) {
		racing := subscription.NewFreezeRecord(orders[3], decision, "trip", testNow)
		err := repo.Create(ctx, racing)
		assert.Equal(t, shared.CodeConcurrentModification, shared.ErrorCode(err))
	})

	second := subscription.NewFreezeRecord(orders[3], quota.Evaluate(orders[3].Date, used), "", testNow)
	require.NoError(t, repo.Create(ctx, second))

	records, err := repo.FindByEmployeeWeek(ctx, sub.TenantID, sub.EmployeeID, week)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Ordinal)
	assert.Equal(t, 2, records[1].Ordinal)
	assert.Equal(t, orders[2].Date, records[0].OriginalDate)
}

// ============================================
// Ledger
// ============================================

func TestGormLedgerRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormLedgerRepository(db)
	ctx := context.Background()
	tenantID, accountID := uuid.New(), uuid.New()

	latest, err := repo.FindLatest(ctx, tenantID, accountID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	requests := []ledger.Request{
		{TenantID: tenantID, AccountID: accountID, Type: ledger.EntryTypeDeposit, Amount: decimal.NewFromInt(500)},
		{TenantID: tenantID, AccountID: accountID, Type: ledger.EntryTypeDeduction, Amount: decimal.NewFromInt(100)},
		{TenantID: tenantID, AccountID: accountID, Type: ledger.EntryTypeRefund, Amount: decimal.NewFromInt(20)},
	}
	var prev *ledger.Entry
	for _, req := range requests {
		entry, err := ledger.NewEntry(req, prev, decimal.Zero, testNow)
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, entry))
		prev = entry
	}

	latest, err = repo.FindLatest(ctx, tenantID, accountID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(3), latest.Sequence)
	assert.True(t, decimal.NewFromInt(420).Equal(latest.BalanceAfter))

	t.Run("duplicate sequence rejected", func(t *testing.T) {
		dup := *latest
		dup.ID = uuid.New()
		err := repo.Append(ctx, &dup)
		assert.Equal(t, shared.CodeConcurrentModification, shared.ErrorCode(err))
	})

	t.Run("chain verifies", func(t *testing.T) {
		all, err := repo.FindAllByAccount(ctx, tenantID, accountID)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Empty(t, ledger.VerifyChain(all, decimal.Zero))
	})

	t.Run("paged and filtered", func(t *testing.T) {
		deductions := ledger.EntryTypeDeduction
		page, total, err := repo.FindByAccount(ctx, tenantID, accountID, ledger.EntryFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10},
			Type:   &deductions,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, page, 1)
		assert.True(t, decimal.NewFromInt(-100).Equal(page[0].Amount))

		page, total, err = repo.FindByAccount(ctx, tenantID, accountID, ledger.EntryFilter{
			Filter: shared.Filter{Page: 1, PageSize: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, page, 2)
		assert.Equal(t, int64(3), page[0].Sequence)
	})
}

// ============================================
// Accounts and employees
// ============================================

func TestGormAccountRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	company := &account.Account{ID: uuid.New(), TenantID: tenantID, Kind: account.KindCompany, Name: "Acme",
		Budget: decimal.NewFromInt(1000), Currency: "USD", Timezone: "Asia/Almaty", CutoffTime: "10:00",
		CreatedAt: testNow, UpdatedAt: testNow}
	project := &account.Account{ID: uuid.New(), TenantID: tenantID, Kind: account.KindProject, ParentID: &company.ID,
		Name: "Rocket", CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, repo.Create(ctx, company))
	require.NoError(t, repo.Create(ctx, project))

	children, err := repo.FindChildren(ctx, tenantID, company.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, project.ID, children[0].ID)

	company.ApplyBalance(decimal.NewFromInt(750), testNow.Add(time.Hour))
	require.NoError(t, repo.UpdateBalance(ctx, company))

	locked, err := repo.FindByIDForUpdate(ctx, tenantID, company.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(750).Equal(locked.Budget))
	assert.Equal(t, "Asia/Almaty", locked.Timezone)

	ids, err := repo.ListTenantIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tenantID}, ids)

	_, err = repo.FindByID(ctx, uuid.New(), company.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormEmployeeRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormEmployeeRepository(db)
	ctx := context.Background()
	tenantID, accountID := uuid.New(), uuid.New()

	alice := &account.Employee{ID: uuid.New(), TenantID: tenantID, AccountID: accountID, Name: "Alice", Active: true}
	bob := &account.Employee{ID: uuid.New(), TenantID: tenantID, AccountID: accountID, Name: "Bob", Active: true}
	require.NoError(t, repo.Create(ctx, alice, testNow))
	require.NoError(t, repo.Create(ctx, bob, testNow))

	found, err := repo.FindByIDs(ctx, tenantID, []uuid.UUID{alice.ID, bob.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	locked, err := repo.LockForUpdate(ctx, tenantID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", locked.Name)
	assert.True(t, locked.Active)
}

// ============================================
// Transactions
// ============================================

func TestGormTxManager(t *testing.T) {
	db := setupTestDB(t)
	tx := NewGormTxManager(db)
	repo := NewGormSubscriptionRepository(db)
	ctx := context.Background()

	sub, _ := newTestSubscription(t, uuid.New(), uuid.New(), uuid.New(), 2)
	boom := errors.New("boom")

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.Create(ctx, sub))
		// nested call joins the outer transaction
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			_, err := repo.FindByID(ctx, sub.TenantID, sub.ID)
			require.NoError(t, err)
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.FindByID(ctx, sub.TenantID, sub.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound), "rolled back insert must not be visible")

	require.NoError(t, tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return repo.Create(ctx, sub)
	}))
	_, err = repo.FindByID(ctx, sub.TenantID, sub.ID)
	assert.NoError(t, err)
}
