package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/application/dashboard"
	ledgerapp "github.com/mealplan/backend/internal/application/ledger"
	"github.com/mealplan/backend/internal/domain/ledger"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// AccountHandler handles account ledger and dashboard endpoints
type AccountHandler struct {
	BaseHandler
	ledger    *ledgerapp.Service
	dashboard *dashboard.Service
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(ledger *ledgerapp.Service, dashboard *dashboard.Service) *AccountHandler {
	return &AccountHandler{ledger: ledger, dashboard: dashboard}
}

// MoneyRequest represents a deposit, refund or guest order charge
type MoneyRequest struct {
	Amount         decimal.Decimal `json:"amount" swaggertype:"string" example:"250.00"`
	Description    string          `json:"description" binding:"max=500"`
	SubscriptionID string          `json:"subscription_id" binding:"omitempty,uuid"`
	OrderID        string          `json:"order_id" binding:"omitempty,uuid"`
	InvoiceID      string          `json:"invoice_id" binding:"omitempty,uuid"`
}

// ListEntriesQuery represents the ledger list filters
type ListEntriesQuery struct {
	dto.ListRequest
	Type string `form:"type" binding:"omitempty,oneof=DEPOSIT DEDUCTION GUEST_ORDER REFUND ADJUSTMENT"`
}

func optionalUUID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id := uuid.MustParse(raw)
	return &id
}

func (h *AccountHandler) moneyRequest(c *gin.Context) (ledgerapp.MoneyRequest, bool) {
	tenantID, id, ok := h.scope(c, "account")
	if !ok {
		return ledgerapp.MoneyRequest{}, false
	}
	var req MoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return ledgerapp.MoneyRequest{}, false
	}
	return ledgerapp.MoneyRequest{
		TenantID:       tenantID,
		AccountID:      id,
		Amount:         req.Amount,
		Description:    req.Description,
		SubscriptionID: optionalUUID(req.SubscriptionID),
		OrderID:        optionalUUID(req.OrderID),
		InvoiceID:      optionalUUID(req.InvoiceID),
		OperatorID:     getOperatorID(c),
	}, true
}

func (h *AccountHandler) record(c *gin.Context, op func(*gin.Context, ledgerapp.MoneyRequest) (*ledger.Entry, error)) {
	req, ok := h.moneyRequest(c)
	if !ok {
		return
	}
	entry, err := op(c, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toLedgerEntryResponse(entry))
}

// Dashboard godoc
// @ID           getAccountDashboard
//
//	@Summary		Get the budget dashboard of an account
//	@Description	Forecast, budget warnings, cutoff state and day-over-day order counts
//	@Tags			accounts
//	@Produce		json
//	@Param			id	path		string	true	"Account ID"	format(uuid)
//	@Success		200	{object}	Envelope[DashboardResponse]
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/accounts/{id}/dashboard [get]
func (h *AccountHandler) Dashboard(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "account")
	if !ok {
		return
	}
	d, err := h.dashboard.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDashboardResponse(d))
}

// Deposit godoc
// @ID           depositToAccount
//
//	@Summary		Deposit funds
//	@Tags			accounts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Account ID"	format(uuid)
//	@Param			request	body		MoneyRequest	true	"Deposit"
//	@Success		201		{object}	Envelope[LedgerEntryResponse]
//	@Failure		400		{object}	ErrorEnvelope
//	@Failure		404		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/accounts/{id}/ledger/deposits [post]
func (h *AccountHandler) Deposit(c *gin.Context) {
	h.record(c, func(c *gin.Context, req ledgerapp.MoneyRequest) (*ledger.Entry, error) {
		return h.ledger.Deposit(c.Request.Context(), req)
	})
}

// Refund godoc
// @ID           refundToAccount
//
//	@Summary		Refund funds
//	@Tags			accounts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Account ID"	format(uuid)
//	@Param			request	body		MoneyRequest	true	"Refund"
//	@Success		201		{object}	Envelope[LedgerEntryResponse]
//	@Failure		400		{object}	ErrorEnvelope
//	@Failure		404		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/accounts/{id}/ledger/refunds [post]
func (h *AccountHandler) Refund(c *gin.Context) {
	h.record(c, func(c *gin.Context, req ledgerapp.MoneyRequest) (*ledger.Entry, error) {
		return h.ledger.Refund(c.Request.Context(), req)
	})
}

// GuestOrder godoc
// @ID           chargeGuestOrder
//
//	@Summary		Charge a guest order
//	@Tags			accounts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Account ID"	format(uuid)
//	@Param			request	body		MoneyRequest	true	"Guest order charge"
//	@Success		201		{object}	Envelope[LedgerEntryResponse]
//	@Failure		400		{object}	ErrorEnvelope
//	@Failure		404		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/accounts/{id}/ledger/guest-orders [post]
func (h *AccountHandler) GuestOrder(c *gin.Context) {
	h.record(c, func(c *gin.Context, req ledgerapp.MoneyRequest) (*ledger.Entry, error) {
		return h.ledger.ChargeGuestOrder(c.Request.Context(), req)
	})
}

// Adjust godoc
// @ID           adjustAccount
//
//	@Summary		Apply a manual correction
//	@Description	The amount is signed
//	@Tags			accounts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Account ID"	format(uuid)
//	@Param			request	body		MoneyRequest	true	"Adjustment"
//	@Success		201		{object}	Envelope[LedgerEntryResponse]
//	@Failure		400		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/accounts/{id}/ledger/adjustments [post]
func (h *AccountHandler) Adjust(c *gin.Context) {
	h.record(c, func(c *gin.Context, req ledgerapp.MoneyRequest) (*ledger.Entry, error) {
		return h.ledger.Adjust(c.Request.Context(), req)
	})
}

// ListEntries godoc
// @ID           listLedgerEntries
//
//	@Summary		List ledger entries
//	@Description	Newest first
//	@Tags			accounts
//	@Produce		json
//	@Param			id			path		string	true	"Account ID"	format(uuid)
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)
//	@Param			type		query		string	false	"Entry type"	Enums(DEPOSIT, DEDUCTION, GUEST_ORDER, REFUND, ADJUSTMENT)
//	@Success		200			{object}	Envelope[[]LedgerEntryResponse]
//	@Failure		404			{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/accounts/{id}/ledger [get]
func (h *AccountHandler) ListEntries(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "account")
	if !ok {
		return
	}
	var q ListEntriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := ledger.EntryFilter{Filter: shared.Filter{Page: q.Page, PageSize: q.PageSize}}
	if q.Type != "" {
		t := ledger.EntryType(q.Type)
		filter.Type = &t
	}

	page, err := h.ledger.ListEntries(c.Request.Context(), tenantID, id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items := make([]*LedgerEntryResponse, 0, len(page.Items))
	for _, e := range page.Items {
		items = append(items, toLedgerEntryResponse(e))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// Verify godoc
// @ID           verifyLedger
//
//	@Summary		Verify the ledger chain of an account
//	@Description	Replays every entry; a broken chain is reported with valid=false
//	@Tags			accounts
//	@Produce		json
//	@Param			id	path		string	true	"Account ID"	format(uuid)
//	@Success		200	{object}	Envelope[ledgerapp.Verification]
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/accounts/{id}/ledger/verify [get]
func (h *AccountHandler) Verify(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "account")
	if !ok {
		return
	}
	result, err := h.ledger.VerifyChain(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Balance godoc
// @ID           getAccountBalance
//
//	@Summary		Get the balance of an account
//	@Tags			accounts
//	@Produce		json
//	@Param			id	path		string	true	"Account ID"	format(uuid)
//	@Success		200	{object}	Envelope[ledgerapp.Balance]
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/accounts/{id}/ledger/balance [get]
func (h *AccountHandler) Balance(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "account")
	if !ok {
		return
	}
	b, err := h.ledger.Balance(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}
