package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testNow = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), uuid.New(), testNow),
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	types   []string
	handled []shared.DomainEvent
	err     error
	panics  bool
}

func (h *recordingHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, ev)
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// ============================================
// InMemoryEventBus
// ============================================

func TestInMemoryEventBus_Routing(t *testing.T) {
	tests := []struct {
		name      string
		subscribe []string
		handlerTy []string
		published string
		want      int
	}{
		{"explicit type matches", []string{"A"}, nil, "A", 1},
		{"explicit type does not match", []string{"A"}, nil, "B", 0},
		{"handler's own types", nil, []string{"B"}, "B", 1},
		{"wildcard receives everything", nil, nil, "Anything", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewInMemoryEventBus(zap.NewNop())
			h := &recordingHandler{types: tt.handlerTy}
			bus.Subscribe(h, tt.subscribe...)

			require.NoError(t, bus.Publish(context.Background(), newTestEvent(tt.published)))
			assert.Equal(t, tt.want, h.count())
		})
	}
}

func TestInMemoryEventBus_FailingHandlersAreIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := &recordingHandler{err: errors.New("handler error")}
	panicking := &recordingHandler{panics: true}
	healthy := &recordingHandler{}
	bus.Subscribe(failing, "A")
	bus.Subscribe(panicking, "A")
	bus.Subscribe(healthy, "A")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A"), newTestEvent("A")))
	assert.Equal(t, 2, healthy.count())
	assert.Equal(t, int64(4), bus.Failures())
	assert.Equal(t, 4, logs.FilterMessage("Event handler failed").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{}
	bus.Subscribe(h, "A", "B")
	bus.Subscribe(h)

	bus.Unsubscribe(h)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A"), newTestEvent("B")))
	assert.Equal(t, 0, h.count())
}

func TestInMemoryEventBus_StopDropsEvents(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{}
	bus.Subscribe(h, "A")
	ctx := context.Background()

	require.NoError(t, bus.Stop(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent("A")))
	assert.Equal(t, 0, h.count())

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent("A")))
	assert.Equal(t, 1, h.count())
}

func TestHandlerFunc(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	var got []string
	bus.Subscribe(&HandlerFunc{
		Types: []string{"A"},
		Fn: func(_ context.Context, ev shared.DomainEvent) error {
			got = append(got, ev.EventType())
			return nil
		},
	})

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A"), newTestEvent("B")))
	assert.Equal(t, []string{"A"}, got)
}

// ============================================
// AuditLogHandler
// ============================================

func TestAuditLogHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	assert.Empty(t, h.EventTypes())

	sub, err := subscription.NewSubscription(subscription.NewSubscriptionParams{
		TenantID:   uuid.New(),
		EmployeeID: uuid.New(),
		AccountID:  uuid.New(),
		StartDate:  calendar.MustParseDate("2025-03-03"),
		TotalDays:  5,
		ComboType:  "STANDARD",
		Price:      decimal.NewFromInt(10),
	}, testNow)
	require.NoError(t, err)

	entry, err := ledger.NewEntry(ledger.Request{
		TenantID:  sub.TenantID,
		AccountID: sub.AccountID,
		Type:      ledger.EntryTypeDeduction,
		Amount:    decimal.NewFromInt(50),
	}, nil, decimal.NewFromInt(200), testNow)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, subscription.NewSubscriptionCreatedEvent(sub, testNow)))
	require.NoError(t, h.Handle(ctx, ledger.NewEntryRecordedEvent(entry)))

	entries := logs.FilterMessage("Domain event").All()
	require.Len(t, entries, 2)

	created := entries[0].ContextMap()
	assert.Equal(t, subscription.EventTypeSubscriptionCreated, created["event_type"])
	assert.Equal(t, int64(5), created["total_days"])
	assert.Equal(t, "50", created["total_price"])

	recorded := entries[1].ContextMap()
	assert.Equal(t, "DEDUCTION", recorded["entry_type"])
	assert.Equal(t, "-50", recorded["amount"])
	assert.Equal(t, "150", recorded["balance_after"])
}
