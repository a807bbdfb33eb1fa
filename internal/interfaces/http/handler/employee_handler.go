package handler

import (
	"github.com/gin-gonic/gin"
	subscriptionapp "github.com/mealplan/backend/internal/application/subscription"
)

// EmployeeHandler handles employee-scoped subscription endpoints
type EmployeeHandler struct {
	BaseHandler
	service *subscriptionapp.Service
}

// NewEmployeeHandler creates a new EmployeeHandler
func NewEmployeeHandler(service *subscriptionapp.Service) *EmployeeHandler {
	return &EmployeeHandler{service: service}
}

// ChangeCombo godoc
// @ID           changeEmployeeCombo
//
//	@Summary		Change the combo of an employee's current subscription
//	@Tags			employees
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Employee ID"	format(uuid)
//	@Param			request	body		ChangeComboRequest	true	"New combo"
//	@Success		200		{object}	Envelope[ComboChangeResponse]
//	@Failure		404		{object}	ErrorEnvelope
//	@Failure		422		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/employees/{id}/combo [post]
func (h *EmployeeHandler) ChangeCombo(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "employee")
	if !ok {
		return
	}
	var req ChangeComboRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.service.ChangeCombo(c.Request.Context(), subscriptionapp.ComboChangeRequest{
		TenantID:   tenantID,
		EmployeeID: &id,
		ComboType:  req.ComboType,
		OperatorID: getOperatorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toComboChangeResponse(result))
}

// FreezeInfo godoc
// @ID           getEmployeeFreezeInfo
//
//	@Summary		Get the weekly freeze usage of an employee
//	@Tags			employees
//	@Produce		json
//	@Param			id	path		string	true	"Employee ID"	format(uuid)
//	@Success		200	{object}	Envelope[FreezeInfoResponse]
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/employees/{id}/freeze-info [get]
func (h *EmployeeHandler) FreezeInfo(c *gin.Context) {
	tenantID, id, ok := h.scope(c, "employee")
	if !ok {
		return
	}
	info, err := h.service.GetFreezeInfo(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toFreezeInfoResponse(info))
}
