package handler

import (
	"github.com/gin-gonic/gin"
	subscriptionapp "github.com/mealplan/backend/internal/application/subscription"
)

// OrderHandler handles daily order endpoints
type OrderHandler struct {
	BaseHandler
	service *subscriptionapp.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *subscriptionapp.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// FreezeOrderRequest represents a request to freeze a daily order
type FreezeOrderRequest struct {
	Reason string `json:"reason" binding:"max=255" example:"Business trip"`
}

// CancelOrderRequest represents a request to cancel a single daily order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=255" example:"Sick leave"`
}

// bindOptionalJSON binds a body that may be empty
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}

// Freeze godoc
// @ID           freezeOrder
//
//	@Summary		Freeze a daily order
//	@Description	Skips the day and appends a replacement order after the subscription end. Limited per ISO week.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Order ID"	format(uuid)
//	@Param			request	body		FreezeOrderRequest	false	"Freeze reason"
//	@Success		200		{object}	Envelope[FreezeResponse]
//	@Failure		404		{object}	ErrorEnvelope
//	@Failure		422		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/orders/{id}/freeze [post]
func (h *OrderHandler) Freeze(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "order")
	if !ok {
		return
	}
	var req FreezeOrderRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.service.Freeze(c.Request.Context(), subscriptionapp.FreezeRequest{
		TenantID:   tenantID,
		OrderID:    id,
		Reason:     req.Reason,
		OperatorID: getOperatorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toFreezeResponse(result))
}

// Unfreeze godoc
// @ID           unfreezeOrder
//
//	@Summary		Unfreeze a daily order
//	@Description	Restores the day and removes the last replacement order. The weekly quota is not given back.
//	@Tags			orders
//	@Produce		json
//	@Param			id	path		string	true	"Order ID"	format(uuid)
//	@Success		200	{object}	Envelope[UnfreezeResponse]
//	@Failure		404	{object}	ErrorEnvelope
//	@Failure		422	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/orders/{id}/unfreeze [post]
func (h *OrderHandler) Unfreeze(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "order")
	if !ok {
		return
	}
	result, err := h.service.Unfreeze(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, UnfreezeResponse{
		Order:        toOrderResponse(result.Order),
		Removed:      toOrderResponse(result.Removed),
		Subscription: toSubscriptionResponse(result.Subscription),
	})
}

// Cancel godoc
// @ID           cancelOrder
//
//	@Summary		Cancel a daily order
//	@Description	Cancels the order and refunds its price
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Order ID"	format(uuid)
//	@Param			request	body		CancelOrderRequest	false	"Cancel reason"
//	@Success		200		{object}	Envelope[CancelOrderResponse]
//	@Failure		404		{object}	ErrorEnvelope
//	@Failure		422		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "order")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.service.CancelOrder(c.Request.Context(), subscriptionapp.CancelOrderRequest{
		TenantID:   tenantID,
		OrderID:    id,
		Reason:     req.Reason,
		OperatorID: getOperatorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CancelOrderResponse{
		Order:        toOrderResponse(result.Order),
		Subscription: toSubscriptionResponse(result.Subscription),
		Refund:       toLedgerEntryResponse(result.Refund),
	})
}
