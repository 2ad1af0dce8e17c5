package providers

import (
	"context"
	"errors"
	"fmt"
)

// TransactionStatus is the provider-side view of a payment.
type TransactionStatus struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"` // CREATED, PENDING, SUCCESSFUL, FAILED, EXPIRED
	Medium        string  `json:"medium,omitempty"`
	Amount        float64 `json:"amount"`
	ExternalID    string  `json:"external_id,omitempty"`
	PayerName     string  `json:"payer_name,omitempty"`
	DateInitiated string  `json:"date_initiated,omitempty"`
	DateConfirmed string  `json:"date_confirmed,omitempty"`
}

// DirectPaymentRequest is a collection request pushed to the payer's mobile
// number.
type DirectPaymentRequest struct {
	Amount     float64
	Phone      string
	Name       string
	Email      string
	UserID     string
	ExternalID string // order id, used to correlate gateway callbacks
	Message    string
}

// IndirectPaymentRequest generates a hosted payment link the payer completes
// out-of-band.
type IndirectPaymentRequest struct {
	Amount      float64
	Name        string
	Email       string
	UserID      string
	ExternalID  string
	RedirectURL string
	Message     string
}

// InitiateResult is the gateway's answer to either initiation mode.
type InitiateResult struct {
	TransactionID string
	PaymentLink   string // set for indirect payments only
	DateInitiated string
	RawPayload    string
}

// PaymentProvider abstracts the external mobile-money gateway.
type PaymentProvider interface {
	InitiateDirectPayment(ctx context.Context, req *DirectPaymentRequest) (*InitiateResult, error)
	InitiateIndirectPayment(ctx context.Context, req *IndirectPaymentRequest) (*InitiateResult, error)
	GetTransactionStatus(ctx context.Context, transactionID string) (*TransactionStatus, error)
	ListTransactionsByUser(ctx context.Context, userID string) ([]TransactionStatus, error)
}

// GatewayError wraps any provider failure: transport errors, timeouts, and
// non-2xx responses. It is never mapped to success.
type GatewayError struct {
	Op         string
	StatusCode int  // HTTP status from the provider, 0 on transport failure
	Timeout    bool // request exceeded the configured deadline
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s failed: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// AsGatewayError extracts a *GatewayError from err, if any.
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
