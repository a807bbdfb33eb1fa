package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountHandler_DepositAndList(t *testing.T) {
	f := newAPIFixture(t)
	base := "/accounts/" + f.company.ID.String() + "/ledger"

	w := f.do(t, http.MethodPost, base+"/deposits", map[string]any{"amount": "250.00", "description": "December top-up"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var entry LedgerEntryResponse
	data(t, w, &entry)
	assert.Equal(t, "DEPOSIT", entry.Type)
	assert.Equal(t, int64(1), entry.Sequence)
	assert.True(t, decimal.NewFromInt(1250).Equal(entry.BalanceAfter))

	w = f.do(t, http.MethodPost, base+"/guest-orders", map[string]any{"amount": 12})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data(t, w, &entry)
	assert.True(t, decimal.NewFromInt(-12).Equal(entry.Amount))

	w = f.do(t, http.MethodGet, base+"?type=DEPOSIT", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []LedgerEntryResponse
	data(t, w, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "December top-up", entries[0].Description)

	w = f.do(t, http.MethodGet, base+"?page_size=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
}

func TestAccountHandler_Deposit_Rejections(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/accounts/"+f.company.ID.String()+"/ledger/deposits", map[string]any{"amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeError(t, w.Body.Bytes()).Code)

	w = f.do(t, http.MethodPost, "/accounts/"+uuid.NewString()+"/ledger/deposits", map[string]any{"amount": "5"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/accounts/"+f.company.ID.String()+"/ledger?type=BRIBE", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountHandler_Verify(t *testing.T) {
	f := newAPIFixture(t)
	f.subscribe(t, f.alice, "2024-12-02", 5)
	w := f.do(t, http.MethodPost, "/accounts/"+f.company.ID.String()+"/ledger/refunds", map[string]any{"amount": "10"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/accounts/"+f.company.ID.String()+"/ledger/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		Valid         bool            `json:"valid"`
		Entries       int             `json:"entries"`
		LedgerBalance decimal.Decimal `json:"ledger_balance"`
	}
	data(t, w, &result)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Entries)
	assert.True(t, decimal.NewFromInt(960).Equal(result.LedgerBalance))
}

func TestAccountHandler_Dashboard(t *testing.T) {
	f := newAPIFixture(t)
	f.subscribe(t, f.alice, "2024-12-02", 5)

	w := f.do(t, http.MethodGet, "/accounts/"+f.company.ID.String()+"/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dash DashboardResponse
	data(t, w, &dash)
	assert.Equal(t, f.company.ID.String(), dash.AccountID)
	assert.Equal(t, "USD", dash.Currency)
	assert.Equal(t, "2024-12-01", dash.Today.String())
	assert.False(t, dash.IsCutoffPassed)
	assert.Equal(t, "10:00", dash.CutoffTime)
}
