package router

import (
	"github.com/mealplan/backend/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers of the meal API
type Handlers struct {
	Subscriptions *handler.SubscriptionHandler
	Orders        *handler.OrderHandler
	Employees     *handler.EmployeeHandler
	Accounts      *handler.AccountHandler
	System        *handler.SystemHandler
}

// RegisterMealRoutes registers the subscription, order, employee, account and
// system groups on r
func RegisterMealRoutes(r *Router, h Handlers) *Router {
	subscriptions := NewDomainGroup("subscriptions", "/subscriptions")
	subscriptions.
		POST("", h.Subscriptions.Create).
		GET("", h.Subscriptions.List).
		POST("/bulk-update", h.Subscriptions.BulkUpdate).
		GET("/:id", h.Subscriptions.Get).
		GET("/:id/orders", h.Subscriptions.ListOrders).
		POST("/:id/pause", h.Subscriptions.Pause).
		POST("/:id/resume", h.Subscriptions.Resume).
		POST("/:id/extend", h.Subscriptions.Extend).
		POST("/:id/cancel", h.Subscriptions.Cancel).
		POST("/:id/combo", h.Subscriptions.ChangeCombo)

	orders := NewDomainGroup("orders", "/orders")
	orders.
		POST("/:id/freeze", h.Orders.Freeze).
		POST("/:id/unfreeze", h.Orders.Unfreeze).
		POST("/:id/cancel", h.Orders.Cancel)

	employees := NewDomainGroup("employees", "/employees")
	employees.
		POST("/:id/combo", h.Employees.ChangeCombo).
		GET("/:id/freeze-info", h.Employees.FreezeInfo)

	accounts := NewDomainGroup("accounts", "/accounts")
	accounts.GET("/:id/dashboard", h.Accounts.Dashboard)
	ledger := accounts.Group("ledger", "/:id/ledger")
	ledger.
		GET("", h.Accounts.ListEntries).
		GET("/verify", h.Accounts.Verify).
		GET("/balance", h.Accounts.Balance).
		POST("/deposits", h.Accounts.Deposit).
		POST("/refunds", h.Accounts.Refund).
		POST("/guest-orders", h.Accounts.GuestOrder).
		POST("/adjustments", h.Accounts.Adjust)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)

	health := NewDomainGroup("health", "/health")
	health.GET("", h.System.Health)

	return r.Register(subscriptions).
		Register(orders).
		Register(employees).
		Register(accounts).
		Register(system).
		Register(health)
}
