package ports

import (
	"context"
	"time"

	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// InitiateRequest asks the gateway to open a payment session for a citizen
// request ("cerere").
type InitiateRequest struct {
	Metadata    map[string]string
	CerereID    string
	ReturnURL   string
	CallbackURL string
	Amount      decimal.Decimal
}

// InitiateResponse is the normalized initiation result. Both the mock and
// the production branches produce this shape; callers never see
// implementation-specific fields.
type InitiateResponse struct {
	ExpiresAt     time.Time
	PaymentID     string
	TransactionID string
	RedirectURL   string
}

// StatusResponse is the normalized answer to a status query.
type StatusResponse struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	TransactionID string
	ErrorCode     string
	ErrorMessage  string
	Status        domain.TransactionStatus
	Amount        decimal.Decimal
}

// Webhook event names derived from the resolved status.
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentTimeout   = "payment.timeout"
)

// WebhookPayload is the signed JSON body POSTed to the caller's callback
// URL after a transaction resolves.
type WebhookPayload struct {
	Event         string                   `json:"event"`
	TransactionID string                   `json:"transaction_id"`
	Status        domain.TransactionStatus `json:"status"`
	Amount        float64                  `json:"amount"`
	PaymentMethod string                   `json:"payment_method"`
	ErrorCode     string                   `json:"error_code,omitempty"`
	ErrorMessage  string                   `json:"error_message,omitempty"`
	Timestamp     string                   `json:"timestamp"`
	Signature     string                   `json:"signature"`
}

// EventForStatus maps a resolved status to its webhook event name.
func EventForStatus(status domain.TransactionStatus) string {
	switch status {
	case domain.StatusSuccess:
		return EventPaymentCompleted
	case domain.StatusProcessing:
		return EventPaymentTimeout
	default:
		return EventPaymentFailed
	}
}

// PaymentGateway is the single entry point the rest of the portal consumes.
// One implementation simulates Ghișeul.ro, the other talks to the real API;
// the mode is fixed at construction time.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	GetPaymentStatus(ctx context.Context, transactionID string) (*StatusResponse, error)
	VerifyWebhook(payload WebhookPayload, signature string) bool
	IsMockMode() bool
}
