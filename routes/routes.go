package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/CM-market/cameroon-made-market/controllers"
	"github.com/CM-market/cameroon-made-market/middleware"
)

// Register wires all order and payment routes behind the auth middleware.
func Register(r *gin.Engine, oc *controllers.OrderController, pc *controllers.PaymentController, jwtSecret string) {
	auth := middleware.AuthMiddleware(jwtSecret)

	orders := r.Group("/orders")
	orders.Use(auth)
	orders.POST("", oc.CreateOrder)
	orders.GET("", oc.GetOrders)
	orders.GET("/:id", oc.GetOrderByID)
	orders.GET("/:id/items", oc.GetOrderItems)
	orders.GET("/:id/payment", pc.GetPaymentByOrder)
	orders.PUT("/:id/status", oc.UpdateOrderStatus)
	orders.DELETE("/:id", oc.DeleteOrder)

	payments := r.Group("/payments")
	payments.Use(auth)
	payments.GET("", pc.ListTransactions)

	// Initiation hits the external gateway, so it is rate limited per IP.
	initiate := payments.Group("")
	initiate.Use(middleware.RateLimitMiddleware(rate.Every(time.Minute/30), 10))
	initiate.POST("", pc.InitiateDirectPayment)
	initiate.POST("/indirect", pc.InitiateIndirectPayment)

	payments.POST("/:id/reconcile", pc.ReconcilePayment)

	admin := payments.Group("")
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	admin.GET("/:id", pc.GetTransactionStatus)
	admin.PUT("/:id/status", pc.UpdatePaymentStatus)
}
