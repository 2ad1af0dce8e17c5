package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CM-market/cameroon-made-market/models"
)

// PaymentRepository defines the interface for payment data access. Payments
// are append-and-update only; they are never deleted.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	// FindBlockingByOrderID returns a payment that blocks a new attempt for
	// the order: one that is still pending, or one that already succeeded.
	// A failed payment does not block a retry.
	FindBlockingByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	// UpdateStatusWithOrder updates the payment row and, when orderStatus is
	// non-nil, the owning order row inside one transaction, so a crash
	// cannot leave a successful payment with a still-pending order.
	UpdateStatusWithOrder(ctx context.Context, paymentID uuid.UUID, status models.PaymentStatus, details *string, orderID uuid.UUID, orderStatus *models.OrderStatus) error
}

type gormPaymentRepo struct {
	db *gorm.DB
}

// NewGormPaymentRepo creates a new gorm-backed PaymentRepository.
func NewGormPaymentRepo(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

func (r *gormPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *gormPaymentRepo) FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("id = ?", paymentID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) FindBlockingByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID,
			[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusSuccess}).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) UpdateStatusWithOrder(ctx context.Context, paymentID uuid.UUID, status models.PaymentStatus, details *string, orderID uuid.UUID, orderStatus *models.OrderStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}
		if details != nil {
			updates["details"] = *details
		}

		res := tx.Model(&models.Payment{}).
			Where("id = ?", paymentID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if orderStatus != nil {
			if err := tx.Model(&models.Order{}).
				Where("id = ?", orderID).
				Update("status", *orderStatus).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
