package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CM-market/cameroon-made-market/models"
	"github.com/CM-market/cameroon-made-market/services"
)

type PaymentController struct {
	paymentService *services.PaymentService
}

func NewPaymentController(paymentService *services.PaymentService) *PaymentController {
	return &PaymentController{paymentService: paymentService}
}

// InitiateDirectPayment handles POST /payments: a collection request pushed
// to the payer's mobile number.
func (pc *PaymentController) InitiateDirectPayment(c *gin.Context) {
	userID, err := callerUUID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.CreateDirectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	payment, serr := pc.paymentService.CreateDirectPayment(c.Request.Context(), userID, &req)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// InitiateIndirectPayment handles POST /payments/indirect: returns the
// payment together with the hosted checkout link.
func (pc *PaymentController) InitiateIndirectPayment(c *gin.Context) {
	userID, err := callerUUID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.CreateIndirectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	payment, serr := pc.paymentService.CreateIndirectPayment(c.Request.Context(), userID, &req)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	resp := gin.H{"payment": payment}
	if payment.PaymentLink != nil {
		resp["payment_link"] = *payment.PaymentLink
	}
	c.JSON(http.StatusCreated, resp)
}

// ReconcilePayment handles POST /payments/:id/reconcile: polls the gateway
// and folds the transaction status into the payment and order records.
func (pc *PaymentController) ReconcilePayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID format"})
		return
	}

	payment, serr := pc.paymentService.ReconcilePayment(c.Request.Context(), paymentID)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// UpdatePaymentStatus handles PUT /payments/:id/status (admin).
func (pc *PaymentController) UpdatePaymentStatus(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID format"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	payment, serr := pc.paymentService.UpdatePaymentStatus(c.Request.Context(), paymentID, models.PaymentStatus(req.Status))
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// ListTransactions handles GET /payments: the caller's gateway transaction
// history.
func (pc *PaymentController) ListTransactions(c *gin.Context) {
	userID, err := callerUUID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	txs, serr := pc.paymentService.ListUserTransactions(c.Request.Context(), userID)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// GetTransactionStatus handles GET /payments/:id (admin): live status lookup
// keyed by the gateway's own transaction id.
func (pc *PaymentController) GetTransactionStatus(c *gin.Context) {
	transactionID := c.Param("id")
	if transactionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transaction ID is required"})
		return
	}

	status, serr := pc.paymentService.GetTransactionStatus(c.Request.Context(), transactionID)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": status})
}

// GetPaymentByOrder handles GET /orders/:id/payment.
func (pc *PaymentController) GetPaymentByOrder(c *gin.Context) {
	orderID, ok := orderParam(c)
	if !ok {
		return
	}

	payment, serr := pc.paymentService.GetPaymentByOrderID(c.Request.Context(), orderID)
	if serr != nil {
		respondServiceError(c, serr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": payment})
}
