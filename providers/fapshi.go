package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// FapshiProvider implements PaymentProvider against the Fapshi mobile-money
// API. Requests are authenticated with the apiuser/apikey header pair.
type FapshiProvider struct {
	baseURL    string
	apiUser    string
	apiKey     string
	httpClient *http.Client
}

// NewFapshiProvider creates a new FapshiProvider. The timeout bounds every
// gateway round-trip.
func NewFapshiProvider(baseURL, apiUser, apiKey string, timeout time.Duration) *FapshiProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FapshiProvider{
		baseURL: baseURL,
		apiUser: apiUser,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ---- Fapshi API request/response structs ----

type fapshiDirectPayRequest struct {
	Amount     int    `json:"amount"`
	Phone      string `json:"phone"`
	Medium     string `json:"medium,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	UserID     string `json:"userId,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	Message    string `json:"message,omitempty"`
}

type fapshiInitiatePayRequest struct {
	Amount      int    `json:"amount"`
	Email       string `json:"email,omitempty"`
	UserID      string `json:"userId,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Message     string `json:"message,omitempty"`
}

type fapshiInitiateResponse struct {
	Message       string `json:"message"`
	Link          string `json:"link,omitempty"`
	TransID       string `json:"transId"`
	DateInitiated string `json:"dateInitiated"`
}

type fapshiTransaction struct {
	TransID       string  `json:"transId"`
	Status        string  `json:"status"`
	Medium        string  `json:"medium"`
	Amount        float64 `json:"amount"`
	PayerName     string  `json:"payerName"`
	ExternalID    string  `json:"externalId"`
	UserID        string  `json:"userId"`
	DateInitiated string  `json:"dateInitiated"`
	DateConfirmed string  `json:"dateConfirmed"`
}

func (t *fapshiTransaction) toStatus() TransactionStatus {
	return TransactionStatus{
		TransactionID: t.TransID,
		Status:        t.Status,
		Medium:        t.Medium,
		Amount:        t.Amount,
		ExternalID:    t.ExternalID,
		PayerName:     t.PayerName,
		DateInitiated: t.DateInitiated,
		DateConfirmed: t.DateConfirmed,
	}
}

// InitiateDirectPayment pushes a collection request to the payer's phone.
// Amounts are whole XAF; Round absorbs float representation noise rather
// than truncating toward zero.
func (p *FapshiProvider) InitiateDirectPayment(ctx context.Context, req *DirectPaymentRequest) (*InitiateResult, error) {
	body := fapshiDirectPayRequest{
		Amount:     int(math.Round(req.Amount)),
		Phone:      req.Phone,
		Name:       req.Name,
		Email:      req.Email,
		UserID:     req.UserID,
		ExternalID: req.ExternalID,
		Message:    req.Message,
	}

	raw, err := p.doRequest(ctx, http.MethodPost, "/direct-pay", body, "direct-pay")
	if err != nil {
		return nil, err
	}

	var resp fapshiInitiateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &GatewayError{Op: "direct-pay", Err: fmt.Errorf("decode response: %w", err)}
	}

	return &InitiateResult{
		TransactionID: resp.TransID,
		DateInitiated: resp.DateInitiated,
		RawPayload:    string(raw),
	}, nil
}

// InitiateIndirectPayment creates a hosted payment link.
func (p *FapshiProvider) InitiateIndirectPayment(ctx context.Context, req *IndirectPaymentRequest) (*InitiateResult, error) {
	body := fapshiInitiatePayRequest{
		Amount:      int(math.Round(req.Amount)),
		Email:       req.Email,
		UserID:      req.UserID,
		ExternalID:  req.ExternalID,
		RedirectURL: req.RedirectURL,
		Message:     req.Message,
	}

	raw, err := p.doRequest(ctx, http.MethodPost, "/initiate-pay", body, "initiate-pay")
	if err != nil {
		return nil, err
	}

	var resp fapshiInitiateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &GatewayError{Op: "initiate-pay", Err: fmt.Errorf("decode response: %w", err)}
	}

	return &InitiateResult{
		TransactionID: resp.TransID,
		PaymentLink:   resp.Link,
		DateInitiated: resp.DateInitiated,
		RawPayload:    string(raw),
	}, nil
}

// GetTransactionStatus queries the gateway for the current status of a
// transaction.
func (p *FapshiProvider) GetTransactionStatus(ctx context.Context, transactionID string) (*TransactionStatus, error) {
	raw, err := p.doRequest(ctx, http.MethodGet, "/payment-status/"+transactionID, nil, "payment-status")
	if err != nil {
		return nil, err
	}

	var tx fapshiTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, &GatewayError{Op: "payment-status", Err: fmt.Errorf("decode response: %w", err)}
	}

	status := tx.toStatus()
	return &status, nil
}

// ListTransactionsByUser returns every transaction the gateway recorded for a
// user.
func (p *FapshiProvider) ListTransactionsByUser(ctx context.Context, userID string) ([]TransactionStatus, error) {
	raw, err := p.doRequest(ctx, http.MethodGet, "/transaction/"+userID, nil, "transaction")
	if err != nil {
		return nil, err
	}

	var txs []fapshiTransaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, &GatewayError{Op: "transaction", Err: fmt.Errorf("decode response: %w", err)}
	}

	out := make([]TransactionStatus, 0, len(txs))
	for i := range txs {
		out = append(out, txs[i].toStatus())
	}
	return out, nil
}

func (p *FapshiProvider) doRequest(ctx context.Context, method, path string, body interface{}, op string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &GatewayError{Op: op, Err: err}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apiuser", p.apiUser)
	req.Header.Set("apikey", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: op, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GatewayError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("provider returned %s: %s", resp.Status, string(raw)),
		}
	}
	return raw, nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
