package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mealplan/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, body []byte) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestSubscriptionHandler_Create(t *testing.T) {
	f := newAPIFixture(t)

	sub := f.subscribe(t, f.alice, "2024-12-02", 5)

	assert.Equal(t, f.alice.ID.String(), sub.EmployeeID)
	assert.Equal(t, "ACTIVE", sub.Status)
	assert.Equal(t, "2024-12-06", sub.EndDate.String())
	assert.True(t, decimal.NewFromInt(50).Equal(sub.TotalPrice))

	w := f.do(t, http.MethodGet, "/accounts/"+f.company.ID.String()+"/ledger/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var balance struct {
		Balance decimal.Decimal `json:"balance"`
	}
	data(t, w, &balance)
	assert.True(t, decimal.NewFromInt(950).Equal(balance.Balance), balance.Balance.String())
}

func TestSubscriptionHandler_Create_Validation(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name      string
		body      map[string]any
		wantField string
	}{
		{
			name:      "missing combo",
			body:      map[string]any{"employee_ids": []string{f.alice.ID.String()}, "start_date": "2024-12-02", "total_days": 3},
			wantField: "combo_type",
		},
		{
			name:      "unknown combo",
			body:      map[string]any{"employee_ids": []string{f.alice.ID.String()}, "combo_type": "CAVIAR", "start_date": "2024-12-02", "total_days": 3},
			wantField: "combo_type",
		},
		{
			name:      "bad date",
			body:      map[string]any{"employee_ids": []string{f.alice.ID.String()}, "combo_type": "STANDARD", "start_date": "02.12.2024", "total_days": 3},
			wantField: "start_date",
		},
		{
			name:      "neither end date nor days",
			body:      map[string]any{"employee_ids": []string{f.alice.ID.String()}, "combo_type": "STANDARD", "start_date": "2024-12-02"},
			wantField: "end_date",
		},
		{
			name:      "malformed employee id",
			body:      map[string]any{"employee_ids": []string{"nope"}, "combo_type": "STANDARD", "start_date": "2024-12-02", "total_days": 3},
			wantField: "employee_ids[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/subscriptions", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			errInfo := decodeError(t, w.Body.Bytes())
			assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
			fields := make([]string, 0, len(errInfo.Details))
			for _, d := range errInfo.Details {
				fields = append(fields, d.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestSubscriptionHandler_Create_PastStart(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/subscriptions", map[string]any{
		"employee_ids": []string{f.alice.ID.String()},
		"combo_type":   "STANDARD",
		"start_date":   "2024-11-20",
		"total_days":   3,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodePastDate, decodeError(t, w.Body.Bytes()).Code)
}

func TestSubscriptionHandler_PauseTwice(t *testing.T) {
	f := newAPIFixture(t)
	sub := f.subscribe(t, f.alice, "2024-12-02", 5)

	w := f.do(t, http.MethodPost, "/subscriptions/"+sub.ID+"/pause", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var paused SubscriptionResponse
	data(t, w, &paused)
	assert.Equal(t, "PAUSED", paused.Status)

	w = f.do(t, http.MethodPost, "/subscriptions/"+sub.ID+"/pause", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidTransition, decodeError(t, w.Body.Bytes()).Code)
}

func TestSubscriptionHandler_Get(t *testing.T) {
	f := newAPIFixture(t)
	sub := f.subscribe(t, f.alice, "2024-12-02", 5)

	w := f.do(t, http.MethodGet, "/subscriptions/"+sub.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/subscriptions/00000000-0000-0000-0000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/subscriptions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, decodeError(t, w.Body.Bytes()).Code)
}

func TestSubscriptionHandler_List(t *testing.T) {
	f := newAPIFixture(t)
	f.subscribe(t, f.alice, "2024-12-02", 5)
	f.subscribe(t, f.bob, "2024-12-02", 5)

	w := f.do(t, http.MethodGet, "/subscriptions?employee_id="+f.bob.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)

	w = f.do(t, http.MethodGet, "/subscriptions?status=BOGUS", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionHandler_ChangeCombo(t *testing.T) {
	f := newAPIFixture(t)
	sub := f.subscribe(t, f.alice, "2024-12-02", 5)

	w := f.do(t, http.MethodPost, "/subscriptions/"+sub.ID+"/combo", map[string]any{"combo_type": "PREMIUM"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result ComboChangeResponse
	data(t, w, &result)
	assert.Equal(t, "PREMIUM", result.Subscription.ComboType)
	assert.Equal(t, 5, result.UpdatedOrderCount)
	require.NotNil(t, result.Adjustment)
	assert.True(t, decimal.NewFromInt(-25).Equal(result.Adjustment.Amount), result.Adjustment.Amount.String())
}

func TestSubscriptionHandler_BulkUpdate_ReportsSkipped(t *testing.T) {
	f := newAPIFixture(t)
	f.subscribe(t, f.alice, "2024-12-02", 5)

	w := f.do(t, http.MethodPost, "/subscriptions/bulk-update", map[string]any{
		"employee_ids": []string{f.alice.ID.String(), f.bob.ID.String()},
		"combo_type":   "PREMIUM",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result BulkUpdateResponse
	data(t, w, &result)
	assert.Equal(t, 1, result.UpdatedCount)
	assert.Equal(t, []string{f.bob.ID.String()}, result.Skipped)
}

func TestSubscriptionHandler_Cancel(t *testing.T) {
	f := newAPIFixture(t)
	sub := f.subscribe(t, f.alice, "2024-12-02", 5)

	w := f.do(t, http.MethodPost, "/subscriptions/"+sub.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result CancelSubscriptionResponse
	data(t, w, &result)
	assert.Equal(t, "COMPLETED", result.Subscription.Status)
	assert.Equal(t, 5, result.CancelledOrders)
	require.NotNil(t, result.Refund)
	assert.True(t, decimal.NewFromInt(50).Equal(result.Refund.Amount))
}

func TestSubscriptionHandler_Extend(t *testing.T) {
	f := newAPIFixture(t)
	sub := f.subscribe(t, f.alice, "2024-12-02", 5)

	w := f.do(t, http.MethodPost, "/subscriptions/"+sub.ID+"/extend", map[string]any{"days": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var extended SubscriptionResponse
	data(t, w, &extended)
	assert.Equal(t, 7, extended.TotalDays)
	assert.Equal(t, "2024-12-08", extended.EndDate.String())

	w = f.do(t, http.MethodPost, "/subscriptions/"+sub.ID+"/extend", map[string]any{"days": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionHandler_RequiresTenant(t *testing.T) {
	f := newAPIFixture(t)

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, decodeError(t, w.Body.Bytes()).Code)
}
