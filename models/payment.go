package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the closed set of payment states.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// paymentTerminal marks statuses that must never change again.
var paymentTerminal = map[PaymentStatus]bool{
	PaymentStatusSuccess: true,
	PaymentStatusFailed:  true,
}

// IsTerminal reports whether s is a final state.
func (s PaymentStatus) IsTerminal() bool { return paymentTerminal[s] }

// Payment is the financial audit record for an order. Rows are never deleted,
// even when the owning order is.
type Payment struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"order_id"`
	UserID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount        float64       `gorm:"not null" json:"amount"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentMethod string        `gorm:"type:varchar(30);not null" json:"payment_method"`
	TransactionID string        `gorm:"uniqueIndex;not null" json:"transaction_id"`
	// PaymentLink is set for indirect (hosted checkout) payments only.
	PaymentLink *string `gorm:"type:varchar(1024)" json:"payment_link,omitempty"`
	// Details carries the raw provider payload for audit and debugging.
	Details   *string   `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
