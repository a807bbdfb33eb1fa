package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	subscriptionapp "github.com/mealplan/backend/internal/application/subscription"
	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/domain/subscription"
	"github.com/mealplan/backend/internal/interfaces/http/dto"
)

// SubscriptionHandler handles subscription lifecycle endpoints
type SubscriptionHandler struct {
	BaseHandler
	service *subscriptionapp.Service
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(service *subscriptionapp.Service) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// CreateSubscriptionRequest represents a request to subscribe employees to a meal plan
// @Description Exactly one of end_date and total_days must be given
type CreateSubscriptionRequest struct {
	EmployeeIDs []string `json:"employee_ids" binding:"required,min=1,dive,uuid"`
	ComboType   string   `json:"combo_type" binding:"required,combo" example:"STANDARD"`
	StartDate   string   `json:"start_date" binding:"required,isodate" example:"2024-12-02"`
	EndDate     string   `json:"end_date" binding:"required_without=TotalDays,excluded_with=TotalDays,omitempty,isodate" example:"2024-12-11"`
	TotalDays   int      `json:"total_days" binding:"omitempty,gt=0,max=366" example:"10"`
	Pattern     string   `json:"pattern" binding:"omitempty,oneof=EVERY_DAY EVERY_OTHER_DAY CUSTOM" example:"EVERY_DAY"`
	Weekdays    []int    `json:"weekdays" binding:"omitempty,dive,min=0,max=6"`
}

// ChangeComboRequest represents a request to switch the combo of future orders
type ChangeComboRequest struct {
	ComboType string `json:"combo_type" binding:"required,combo" example:"PREMIUM"`
}

// BulkUpdateRequest represents a request to switch the combo of several employees
type BulkUpdateRequest struct {
	EmployeeIDs []string `json:"employee_ids" binding:"required,min=1,dive,uuid"`
	ComboType   string   `json:"combo_type" binding:"required,combo" example:"LIGHT"`
}

// ExtendRequest represents a request to add days to the end of a subscription
type ExtendRequest struct {
	Days int `json:"days" binding:"required,gt=0,max=366" example:"5"`
}

// ListSubscriptionsQuery represents the list filters
type ListSubscriptionsQuery struct {
	dto.ListRequest
	Status     string `form:"status" binding:"omitempty,oneof=ACTIVE PAUSED COMPLETED"`
	AccountID  string `form:"account_id" binding:"omitempty,uuid"`
	EmployeeID string `form:"employee_id" binding:"omitempty,uuid"`
}

func parseUUIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		// validated by the binding tags
		ids = append(ids, uuid.MustParse(s))
	}
	return ids
}

// Create godoc
// @ID           createSubscription
//
//	@Summary		Create subscriptions
//	@Description	Create one subscription per employee, generate its daily orders and charge the account
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateSubscriptionRequest	true	"Subscription request"
//	@Success		201		{object}	Envelope[[]SubscriptionResponse]
//	@Failure		400		{object}	ErrorEnvelope
//	@Failure		404		{object}	ErrorEnvelope
//	@Failure		422		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/subscriptions [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	appReq := subscriptionapp.CreateRequest{
		TenantID:    tenantID,
		EmployeeIDs: parseUUIDs(req.EmployeeIDs),
		ComboType:   req.ComboType,
		StartDate:   calendar.MustParseDate(req.StartDate),
		TotalDays:   req.TotalDays,
		Pattern:     subscription.SchedulePattern(req.Pattern),
		OperatorID:  getOperatorID(c),
	}
	if req.EndDate != "" {
		end := calendar.MustParseDate(req.EndDate)
		appReq.EndDate = &end
	}
	for _, wd := range req.Weekdays {
		appReq.Weekdays = append(appReq.Weekdays, time.Weekday(wd))
	}

	subs, err := h.service.Create(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toSubscriptionResponses(subs))
}

// Get godoc
// @ID           getSubscription
//
//	@Summary		Get a subscription
//	@Tags			subscriptions
//	@Produce		json
//	@Param			id	path		string	true	"Subscription ID"	format(uuid)
//	@Success		200	{object}	Envelope[SubscriptionResponse]
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/subscriptions/{id} [get]
func (h *SubscriptionHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "subscription")
	if !ok {
		return
	}
	sub, err := h.service.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSubscriptionResponse(sub))
}

// List godoc
// @ID           listSubscriptions
//
//	@Summary		List subscriptions
//	@Tags			subscriptions
//	@Produce		json
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)
//	@Param			status		query		string	false	"Status filter"	Enums(ACTIVE, PAUSED, COMPLETED)
//	@Success		200			{object}	Envelope[[]SubscriptionResponse]
//	@Security		BearerAuth
//	@Router			/subscriptions [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var q ListSubscriptionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := shared.Filter{Page: q.Page, PageSize: q.PageSize, Filters: map[string]interface{}{}}
	if q.Status != "" {
		filter.Filters["status"] = q.Status
	}
	if q.AccountID != "" {
		filter.Filters["account_id"] = q.AccountID
	}
	if q.EmployeeID != "" {
		filter.Filters["employee_id"] = q.EmployeeID
	}

	page, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toSubscriptionResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// ListOrders godoc
// @ID           listSubscriptionOrders
//
//	@Summary		List the orders of a subscription
//	@Tags			subscriptions
//	@Produce		json
//	@Param			id	path		string	true	"Subscription ID"	format(uuid)
//	@Success		200	{object}	Envelope[[]OrderResponse]
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/subscriptions/{id}/orders [get]
func (h *SubscriptionHandler) ListOrders(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "subscription")
	if !ok {
		return
	}
	orders, err := h.service.ListOrders(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponses(orders))
}

// Pause godoc
// @ID           pauseSubscription
//
//	@Summary		Pause a subscription
//	@Description	Suspends every future order; resuming shifts them forward by the paused days
//	@Tags			subscriptions
//	@Produce		json
//	@Param			id	path		string	true	"Subscription ID"	format(uuid)
//	@Success		200	{object}	Envelope[SubscriptionResponse]
//	@Failure		404	{object}	ErrorEnvelope
//	@Failure		422	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/subscriptions/{id}/pause [post]
func (h *SubscriptionHandler) Pause(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "subscription")
	if !ok {
		return
	}
	sub, err := h.service.Pause(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSubscriptionResponse(sub))
}

// Resume godoc
// @ID           resumeSubscription
//
//	@Summary		Resume a paused subscription
//	@Tags			subscriptions
//	@Produce		json
//	@Param			id	path		string	true	"Subscription ID"	format(uuid)
//	@Success		200	{object}	Envelope[SubscriptionResponse]
//	@Failure		404	{object}	ErrorEnvelope
//	@Failure		422	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/subscriptions/{id}/resume [post]
func (h *SubscriptionHandler) Resume(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "subscription")
	if !ok {
		return
	}
	sub, err := h.service.Resume(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSubscriptionResponse(sub))
}

// Extend godoc
// @ID           extendSubscription
//
//	@Summary		Extend a subscription
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Subscription ID"	format(uuid)
//	@Param			request	body		ExtendRequest	true	"Days to add"
//	@Success		200		{object}	Envelope[SubscriptionResponse]
//	@Failure		422		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/subscriptions/{id}/extend [post]
func (h *SubscriptionHandler) Extend(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "subscription")
	if !ok {
		return
	}
	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	sub, err := h.service.Extend(c.Request.Context(), tenantID, id, req.Days, getOperatorID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSubscriptionResponse(sub))
}

// Cancel godoc
// @ID           cancelSubscription
//
//	@Summary		Cancel a subscription
//	@Description	Completes the subscription, cancels its future orders and refunds them
//	@Tags			subscriptions
//	@Produce		json
//	@Param			id	path		string	true	"Subscription ID"	format(uuid)
//	@Success		200	{object}	Envelope[CancelSubscriptionResponse]
//	@Failure		404	{object}	ErrorEnvelope
//	@Failure		422	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/subscriptions/{id}/cancel [post]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "subscription")
	if !ok {
		return
	}
	result, err := h.service.Cancel(c.Request.Context(), tenantID, id, getOperatorID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CancelSubscriptionResponse{
		Subscription:    toSubscriptionResponse(result.Subscription),
		CancelledOrders: result.CancelledOrders,
		Refund:          toLedgerEntryResponse(result.Refund),
	})
}

// ChangeCombo godoc
// @ID           changeSubscriptionCombo
//
//	@Summary		Change the combo of a subscription
//	@Description	Reprices every Active order from today on (or tomorrow once the cutoff has passed)
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Subscription ID"	format(uuid)
//	@Param			request	body		ChangeComboRequest	true	"New combo"
//	@Success		200		{object}	Envelope[ComboChangeResponse]
//	@Failure		422		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/subscriptions/{id}/combo [post]
func (h *SubscriptionHandler) ChangeCombo(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "subscription")
	if !ok {
		return
	}
	var req ChangeComboRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.service.ChangeCombo(c.Request.Context(), subscriptionapp.ComboChangeRequest{
		TenantID:       tenantID,
		SubscriptionID: &id,
		ComboType:      req.ComboType,
		OperatorID:     getOperatorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toComboChangeResponse(result))
}

// BulkUpdate godoc
// @ID           bulkUpdateSubscriptions
//
//	@Summary		Change the combo of several employees
//	@Description	Employees without a current subscription are reported as skipped
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		BulkUpdateRequest	true	"Employees and combo"
//	@Success		200		{object}	Envelope[BulkUpdateResponse]
//	@Failure		400		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/subscriptions/bulk-update [post]
func (h *SubscriptionHandler) BulkUpdate(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.service.BulkUpdate(c.Request.Context(), subscriptionapp.BulkUpdateRequest{
		TenantID:    tenantID,
		EmployeeIDs: parseUUIDs(req.EmployeeIDs),
		ComboType:   req.ComboType,
		OperatorID:  getOperatorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := BulkUpdateResponse{
		UpdatedCount:      result.UpdatedCount,
		UpdatedOrderCount: result.UpdatedOrderCount,
		Skipped:           make([]string, 0, len(result.Skipped)),
	}
	for _, id := range result.Skipped {
		resp.Skipped = append(resp.Skipped, id.String())
	}
	h.Success(c, resp)
}
