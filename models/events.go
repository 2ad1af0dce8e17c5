package models

import "time"

// PaymentEvent is published to Kafka/SNS when a payment reaches a terminal
// status.
type PaymentEvent struct {
	Type      string    `json:"type"` // "payment_success" | "payment_failed"
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	PaymentID string    `json:"payment_id"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
