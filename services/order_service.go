package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/CM-market/cameroon-made-market/idempotency"
	"github.com/CM-market/cameroon-made-market/models"
	"github.com/CM-market/cameroon-made-market/repository"
)

type CreateOrderItem struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
	Price     float64   `json:"price" binding:"min=0"`
}

type CreateOrderRequest struct {
	CustomerName    string            `json:"customer_name" binding:"required"`
	CustomerPhone   string            `json:"customer_phone" binding:"required"`
	CustomerEmail   *string           `json:"customer_email,omitempty"`
	DeliveryAddress string            `json:"delivery_address" binding:"required"`
	City            string            `json:"city"`
	Region          string            `json:"region"`
	Items           []CreateOrderItem `json:"items" binding:"required,dive"`
}

type OrderService struct {
	orderRepo repository.OrderRepository
	idemStore *idempotency.Store // optional, nil disables key replay
	logger    *zap.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, idemStore *idempotency.Store, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		idemStore: idemStore,
		logger:    logger,
	}
}

// CreateOrder validates the submitted items, computes the total and persists
// the order with its items atomically. The unit price is the caller-supplied
// snapshot; there is no live repricing against the catalog. When idemKey is
// non-empty and was seen before, the previously created order is returned
// instead of creating a duplicate.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, idemKey string, req *CreateOrderRequest) (*models.Order, *ServiceError) {
	if len(req.Items) == 0 {
		return nil, validationError("at least one item is required")
	}

	var total float64
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, validationError("item quantity must be positive")
		}
		if item.Price < 0 {
			return nil, validationError("item price must not be negative")
		}
		total += float64(item.Quantity) * item.Price
	}

	if s.idemStore != nil && idemKey != "" {
		if existingID, ok, err := s.idemStore.Lookup(ctx, idemKey); err != nil {
			s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		} else if ok {
			orderID, perr := uuid.Parse(existingID)
			if perr == nil {
				if order, serr := s.GetOrderByID(ctx, orderID); serr == nil {
					s.logger.Info("Replayed order creation",
						zap.String("idempotency_key", idemKey),
						zap.String("order_id", existingID),
					)
					return order, nil
				}
			}
		}
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		DeliveryAddress: req.DeliveryAddress,
		City:            req.City,
		Region:          req.Region,
		Status:          models.OrderStatusPending,
		Total:           total,
	}
	for _, item := range req.Items {
		order.OrderItems = append(order.OrderItems, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}

	if err := s.orderRepo.CreateWithItems(ctx, order); err != nil {
		s.logger.Error("Failed to create order",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, storageError("failed to create order")
	}

	if s.idemStore != nil && idemKey != "" {
		if err := s.idemStore.Save(ctx, idemKey, order.ID.String()); err != nil {
			s.logger.Warn("Idempotency save failed", zap.Error(err))
		}
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Float64("total", total),
	)
	return order, nil
}

// GetOrderByID fetches one order without eagerly loading its items.
func (s *OrderService) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("order not found")
		}
		s.logger.Error("Failed to fetch order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, storageError("failed to fetch order")
	}
	return order, nil
}

// ListOrders returns orders newest-first, optionally filtered by user and
// status. Both filters together are conjunctive.
func (s *OrderService) ListOrders(ctx context.Context, userID *uuid.UUID, status *models.OrderStatus) ([]models.Order, *ServiceError) {
	orders, err := s.orderRepo.Find(ctx, userID, status)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, storageError("failed to fetch orders")
	}
	return orders, nil
}

// GetOrderItems returns all line items of an order.
func (s *OrderService) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, *ServiceError) {
	if _, serr := s.GetOrderByID(ctx, orderID); serr != nil {
		return nil, serr
	}
	items, err := s.orderRepo.FindItems(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to fetch order items", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, storageError("failed to fetch order items")
	}
	return items, nil
}

// UpdateOrderStatus transitions an order, rejecting any edge not in the
// allowed table.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus models.OrderStatus) (*models.Order, *ServiceError) {
	order, serr := s.GetOrderByID(ctx, orderID)
	if serr != nil {
		return nil, serr
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return nil, conflictError("invalid status transition from " + string(order.Status) + " to " + string(newStatus))
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, newStatus); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("order not found")
		}
		s.logger.Error("Failed to update order status", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, storageError("failed to update order status")
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(newStatus)),
	)
	order.Status = newStatus
	return order, nil
}

// DeleteOrder removes the order and its items as one atomic unit. Payment
// rows survive as the financial audit trail.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) *ServiceError {
	if err := s.orderRepo.DeleteWithItems(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("order not found")
		}
		s.logger.Error("Failed to delete order", zap.String("order_id", orderID.String()), zap.Error(err))
		return storageError("failed to delete order")
	}
	s.logger.Info("Order deleted", zap.String("order_id", orderID.String()))
	return nil
}
