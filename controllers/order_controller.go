package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CM-market/cameroon-made-market/middleware"
	"github.com/CM-market/cameroon-made-market/models"
	"github.com/CM-market/cameroon-made-market/services"
)

type OrderController struct {
	orderService *services.OrderService
}

func NewOrderController(orderService *services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

func respondServiceError(c *gin.Context, err *services.ServiceError) {
	c.JSON(err.StatusCode, gin.H{"error": err.Message, "kind": err.Kind})
}

// CreateOrder handles POST /orders.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	userID, err := callerUUID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	idemKey := c.GetHeader("Idempotency-Key")

	order, serr := oc.orderService.CreateOrder(c.Request.Context(), userID, idemKey, &req)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// GetOrders handles GET /orders with optional user_id and status filters.
// Non-admin callers only ever see their own orders.
func (oc *OrderController) GetOrders(c *gin.Context) {
	userID, err := callerUUID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var userFilter *uuid.UUID
	if middleware.GetRole(c) == middleware.RoleAdmin {
		if raw := c.Query("user_id"); raw != "" {
			parsed, perr := uuid.Parse(raw)
			if perr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
				return
			}
			userFilter = &parsed
		}
	} else {
		userFilter = &userID
	}

	var statusFilter *models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseOrderStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown order status"})
			return
		}
		statusFilter = &status
	}

	orders, serr := oc.orderService.ListOrders(c.Request.Context(), userFilter, statusFilter)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderByID handles GET /orders/:id.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	orderID, ok := orderParam(c)
	if !ok {
		return
	}

	order, serr := oc.orderService.GetOrderByID(c.Request.Context(), orderID)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	if serr := oc.requireOwnershipOrAdmin(c, order); serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetOrderItems handles GET /orders/:id/items.
func (oc *OrderController) GetOrderItems(c *gin.Context) {
	orderID, ok := orderParam(c)
	if !ok {
		return
	}

	if serr := oc.guardOrder(c, orderID); serr != nil {
		respondServiceError(c, serr)
		return
	}

	items, serr := oc.orderService.GetOrderItems(c.Request.Context(), orderID)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// UpdateOrderStatus handles PUT /orders/:id/status.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := orderParam(c)
	if !ok {
		return
	}

	if serr := oc.guardOrder(c, orderID); serr != nil {
		respondServiceError(c, serr)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	status, valid := models.ParseOrderStatus(req.Status)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown order status"})
		return
	}

	order, serr := oc.orderService.UpdateOrderStatus(c.Request.Context(), orderID, status)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// DeleteOrder handles DELETE /orders/:id.
func (oc *OrderController) DeleteOrder(c *gin.Context) {
	orderID, ok := orderParam(c)
	if !ok {
		return
	}

	if serr := oc.guardOrder(c, orderID); serr != nil {
		respondServiceError(c, serr)
		return
	}

	if serr := oc.orderService.DeleteOrder(c.Request.Context(), orderID); serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.Status(http.StatusNoContent)
}

// guardOrder loads the order and applies the same ownership-or-admin rule as
// GetOrderByID, so a buyer who cannot view another user's order cannot read
// its items, move its status, or delete it either.
func (oc *OrderController) guardOrder(c *gin.Context, orderID uuid.UUID) *services.ServiceError {
	order, serr := oc.orderService.GetOrderByID(c.Request.Context(), orderID)
	if serr != nil {
		return serr
	}
	return oc.requireOwnershipOrAdmin(c, order)
}

func (oc *OrderController) requireOwnershipOrAdmin(c *gin.Context, order *models.Order) *services.ServiceError {
	if middleware.GetRole(c) == middleware.RoleAdmin {
		return nil
	}
	userID, err := callerUUID(c)
	if err != nil || order.UserID != userID {
		return &services.ServiceError{
			StatusCode: http.StatusForbidden,
			Kind:       services.KindForbidden,
			Message:    "Access denied",
		}
	}
	return nil
}

func callerUUID(c *gin.Context) (uuid.UUID, error) {
	raw, err := middleware.GetUserID(c)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(raw)
}

func orderParam(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID format"})
		return uuid.Nil, false
	}
	return orderID, true
}
