package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	aws_pkg "github.com/CM-market/cameroon-made-market/pkg/aws"

	"github.com/CM-market/cameroon-made-market/models"
	"github.com/CM-market/cameroon-made-market/providers"
	"github.com/CM-market/cameroon-made-market/repository"
)

const (
	methodMobileMoney    = "mobile_money"
	methodHostedCheckout = "hosted_checkout"
)

type CreateDirectPaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" binding:"required"`
	Name    string    `json:"name" binding:"required"`
	Phone   string    `json:"phone" binding:"required"`
}

type CreateIndirectPaymentRequest struct {
	OrderID     uuid.UUID `json:"order_id" binding:"required"`
	Name        string    `json:"name" binding:"required"`
	Phone       string    `json:"phone"`
	RedirectURL string    `json:"redirect_url" binding:"required"`
}

// EventPublisher publishes terminal payment events to the message bus.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error
}

type PaymentService struct {
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	provider    providers.PaymentProvider
	events      EventPublisher          // optional
	snsClient   aws_pkg.SNSPublisher    // optional, best-effort
	snsTopicArn string
	logger      *zap.Logger
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	provider providers.PaymentProvider,
	events EventPublisher,
	snsClient aws_pkg.SNSPublisher,
	snsTopicArn string,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		provider:    provider,
		events:      events,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		logger:      logger,
	}
}

// CreateDirectPayment initiates a mobile-money collection request against the
// payer's phone for an existing pending order. The order is committed before
// the gateway call, so no DB transaction is held across the network
// round-trip; the pending payment row is written afterwards in its own
// transaction.
func (s *PaymentService) CreateDirectPayment(ctx context.Context, userID uuid.UUID, req *CreateDirectPaymentRequest) (*models.Payment, *ServiceError) {
	order, serr := s.payableOrder(ctx, req.OrderID)
	if serr != nil {
		return nil, serr
	}

	result, err := s.provider.InitiateDirectPayment(ctx, &providers.DirectPaymentRequest{
		Amount:     order.Total,
		Phone:      req.Phone,
		Name:       req.Name,
		UserID:     userID.String(),
		ExternalID: order.ID.String(),
		Message:    fmt.Sprintf("Payment for order %s", order.ID),
	})
	if err != nil {
		return nil, s.mapGatewayError(err, order.ID)
	}

	return s.persistPending(ctx, userID, order, methodMobileMoney, result)
}

// CreateIndirectPayment initiates a hosted-checkout payment; the returned
// payment carries the link the payer must follow.
func (s *PaymentService) CreateIndirectPayment(ctx context.Context, userID uuid.UUID, req *CreateIndirectPaymentRequest) (*models.Payment, *ServiceError) {
	order, serr := s.payableOrder(ctx, req.OrderID)
	if serr != nil {
		return nil, serr
	}

	result, err := s.provider.InitiateIndirectPayment(ctx, &providers.IndirectPaymentRequest{
		Amount:      order.Total,
		Name:        req.Name,
		UserID:      userID.String(),
		ExternalID:  order.ID.String(),
		RedirectURL: req.RedirectURL,
		Message:     fmt.Sprintf("Payment for order %s", order.ID),
	})
	if err != nil {
		return nil, s.mapGatewayError(err, order.ID)
	}

	return s.persistPending(ctx, userID, order, methodHostedCheckout, result)
}

// payableOrder loads the order and enforces the initiation preconditions:
// the order must exist, be pending, and have no pending or successful payment.
func (s *PaymentService) payableOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("order not found")
		}
		s.logger.Error("Failed to fetch order for payment", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, storageError("failed to fetch order")
	}

	if order.Status != models.OrderStatusPending {
		return nil, validationError("order is not payable in status " + string(order.Status))
	}

	// XAF has no subunits; the gateway only accepts whole amounts.
	if order.Total != math.Trunc(order.Total) {
		return nil, validationError("order total must be a whole XAF amount")
	}

	existing, err := s.paymentRepo.FindBlockingByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("Failed to check existing payments", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, storageError("failed to check existing payments")
	}
	if existing != nil {
		return nil, conflictError("a " + string(existing.Status) + " payment already exists for this order")
	}

	return order, nil
}

func (s *PaymentService) persistPending(ctx context.Context, userID uuid.UUID, order *models.Order, method string, result *providers.InitiateResult) (*models.Payment, *ServiceError) {
	payment := &models.Payment{
		ID:            uuid.New(),
		OrderID:       order.ID,
		UserID:        userID,
		Amount:        order.Total,
		Status:        models.PaymentStatusPending,
		PaymentMethod: method,
		TransactionID: result.TransactionID,
	}
	if result.PaymentLink != "" {
		payment.PaymentLink = &result.PaymentLink
	}
	if result.RawPayload != "" {
		payment.Details = &result.RawPayload
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		// A concurrent initiation won the race between the duplicate check
		// and this insert; the partial unique index rejects the second row.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Warn("Concurrent payment initiation lost the insert race",
				zap.String("order_id", order.ID.String()),
				zap.String("transaction_id", result.TransactionID),
			)
			return nil, conflictError("a payment already exists for this order")
		}
		s.logger.Error("Failed to persist payment",
			zap.String("order_id", order.ID.String()),
			zap.String("transaction_id", result.TransactionID),
			zap.Error(err),
		)
		return nil, storageError("failed to save payment")
	}

	s.logger.Info("Payment initiated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("method", method),
	)
	return payment, nil
}

// GetPaymentByOrderID returns the most recent payment for an order.
func (s *PaymentService) GetPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, *ServiceError) {
	payment, err := s.paymentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("payment not found")
		}
		s.logger.Error("Failed to fetch payment", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, storageError("failed to fetch payment")
	}
	return payment, nil
}

// GetTransactionStatus queries the gateway directly; no local payment row is
// required since the lookup is keyed by the gateway's own id.
func (s *PaymentService) GetTransactionStatus(ctx context.Context, transactionID string) (*providers.TransactionStatus, *ServiceError) {
	status, err := s.provider.GetTransactionStatus(ctx, transactionID)
	if err != nil {
		return nil, s.mapGatewayError(err, uuid.Nil)
	}
	return status, nil
}

// ListUserTransactions returns the gateway's transaction history for a user.
func (s *PaymentService) ListUserTransactions(ctx context.Context, userID uuid.UUID) ([]providers.TransactionStatus, *ServiceError) {
	txs, err := s.provider.ListTransactionsByUser(ctx, userID.String())
	if err != nil {
		return nil, s.mapGatewayError(err, uuid.Nil)
	}
	return txs, nil
}

// ReconcilePayment polls the gateway for the payment's transaction and folds
// the result into the local state machines. A terminal local payment is never
// changed, so duplicate or out-of-order gateway notifications are no-ops. A
// gateway failure mutates nothing; the caller keeps the last known status.
func (s *PaymentService) ReconcilePayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, *ServiceError) {
	payment, serr := s.getPayment(ctx, paymentID)
	if serr != nil {
		return nil, serr
	}
	if payment.Status.IsTerminal() {
		return payment, nil
	}

	status, err := s.provider.GetTransactionStatus(ctx, payment.TransactionID)
	if err != nil {
		return nil, s.mapGatewayError(err, payment.OrderID)
	}

	if status.ExternalID != "" && status.ExternalID != payment.OrderID.String() {
		s.logger.Warn("Gateway transaction does not correlate to payment's order",
			zap.String("payment_id", payment.ID.String()),
			zap.String("transaction_id", payment.TransactionID),
			zap.String("external_id", status.ExternalID),
		)
		return nil, gatewayError(http.StatusBadGateway, "gateway transaction does not match order")
	}

	var next models.PaymentStatus
	switch status.Status {
	case "SUCCESSFUL":
		next = models.PaymentStatusSuccess
	case "FAILED", "EXPIRED":
		next = models.PaymentStatusFailed
	default:
		// CREATED / PENDING: nothing to fold in yet.
		return payment, nil
	}

	raw, _ := json.Marshal(status)
	return s.applyTerminalStatus(ctx, payment, next, string(raw))
}

// UpdatePaymentStatus applies a terminal status reported out-of-band (e.g. an
// operator-driven reconciliation) through the same coupled transition.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, newStatus models.PaymentStatus) (*models.Payment, *ServiceError) {
	if newStatus != models.PaymentStatusSuccess && newStatus != models.PaymentStatusFailed {
		return nil, validationError("status must be success or failed")
	}

	payment, serr := s.getPayment(ctx, paymentID)
	if serr != nil {
		return nil, serr
	}
	if payment.Status.IsTerminal() {
		if payment.Status == newStatus {
			return payment, nil
		}
		return nil, conflictError("payment is already " + string(payment.Status))
	}

	return s.applyTerminalStatus(ctx, payment, newStatus, "")
}

// applyTerminalStatus writes the payment status and the coupled order
// transition in one transaction, then publishes the payment event.
func (s *PaymentService) applyTerminalStatus(ctx context.Context, payment *models.Payment, next models.PaymentStatus, details string) (*models.Payment, *ServiceError) {
	var orderStatus *models.OrderStatus
	if next == models.PaymentStatusSuccess {
		order, err := s.orderRepo.FindByID(ctx, payment.OrderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("Failed to fetch order for reconciliation", zap.String("order_id", payment.OrderID.String()), zap.Error(err))
			return nil, storageError("failed to fetch order")
		}
		// The order may have been deleted, or already moved past pending.
		if err == nil && order.Status.CanTransitionTo(models.OrderStatusProcessing) {
			processing := models.OrderStatusProcessing
			orderStatus = &processing
		}
	}

	var detailsPtr *string
	if details != "" {
		detailsPtr = &details
	}

	if err := s.paymentRepo.UpdateStatusWithOrder(ctx, payment.ID, next, detailsPtr, payment.OrderID, orderStatus); err != nil {
		s.logger.Error("Failed to update payment status",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		return nil, storageError("failed to update payment status")
	}

	payment.Status = next
	if detailsPtr != nil {
		payment.Details = detailsPtr
	}
	payment.UpdatedAt = time.Now()

	s.logger.Info("Payment reconciled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()),
		zap.String("status", string(next)),
	)

	s.publishEvent(ctx, models.PaymentEvent{
		Type:      "payment_" + string(next),
		OrderID:   payment.OrderID.String(),
		UserID:    payment.UserID.String(),
		PaymentID: payment.ID.String(),
		Amount:    payment.Amount,
		Timestamp: time.Now().UTC(),
	})

	return payment, nil
}

func (s *PaymentService) getPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, *ServiceError) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("payment not found")
		}
		s.logger.Error("Failed to fetch payment", zap.String("payment_id", paymentID.String()), zap.Error(err))
		return nil, storageError("failed to fetch payment")
	}
	return payment, nil
}

func (s *PaymentService) publishEvent(ctx context.Context, event models.PaymentEvent) {
	if s.events != nil {
		if err := s.events.PublishPaymentEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish payment event",
				zap.String("event_type", event.Type),
				zap.String("order_id", event.OrderID),
				zap.Error(err),
			)
		}
	}

	// SNS is best-effort; a publish failure never fails the reconciliation.
	if s.snsClient != nil && s.snsTopicArn != "" {
		payload, _ := json.Marshal(event)
		if err := s.snsClient.Publish(ctx, s.snsTopicArn, payload); err != nil {
			s.logger.Warn("SNS publish failed",
				zap.String("event_type", event.Type),
				zap.String("order_id", event.OrderID),
				zap.Error(err),
			)
		}
	}
}

func (s *PaymentService) mapGatewayError(err error, orderID uuid.UUID) *ServiceError {
	ge, ok := providers.AsGatewayError(err)
	if !ok {
		s.logger.Error("Gateway call failed", zap.Error(err))
		return gatewayError(http.StatusBadGateway, "payment gateway error")
	}

	fields := []zap.Field{zap.String("op", ge.Op), zap.Error(ge.Err)}
	if orderID != uuid.Nil {
		fields = append(fields, zap.String("order_id", orderID.String()))
	}
	s.logger.Error("Gateway call failed", fields...)

	if ge.Timeout {
		return gatewayError(http.StatusGatewayTimeout, "payment gateway timed out")
	}
	return gatewayError(http.StatusBadGateway, "payment gateway error")
}
