package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a payment transaction.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"    // Initiated, awaiting checkout submission
	StatusProcessing TransactionStatus = "processing" // Checkout submitted, outcome being computed
	StatusSuccess    TransactionStatus = "success"    // Payment approved
	StatusFailed     TransactionStatus = "failed"     // Payment declined or invalid
	StatusRefunded   TransactionStatus = "refunded"   // Out-of-band refund of a successful payment
)

// BehaviorKind classifies how a test card resolves during checkout.
type BehaviorKind string

const (
	BehaviorSuccess        BehaviorKind = "success"
	BehaviorDeclined       BehaviorKind = "declined"
	BehaviorExpired        BehaviorKind = "expired"
	BehaviorTimeout        BehaviorKind = "timeout"
	BehaviorFraud          BehaviorKind = "fraud"
	BehaviorDelayedSuccess BehaviorKind = "delayed_success"
)

// transitions is the forward-only state machine. A status may only move to
// one of the listed successors; anything else is rejected.
var transitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:    {StatusProcessing, StatusSuccess, StatusFailed},
	StatusProcessing: {StatusSuccess, StatusFailed},
	StatusSuccess:    {StatusRefunded},
	StatusFailed:     {},
	StatusRefunded:   {},
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic transition follows.
// Refunded is reachable from success, but only via the out-of-band refund
// operation, so success still counts as terminal for checkout purposes.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusRefunded
}

// Transaction is one payment attempt tracked by the gateway.
//
// TransactionID, RequestReference, Amount, CallbackURL and ReturnURL are
// immutable after creation. CardMasked and Behavior are set once checkout
// data is submitted. WebhookSent/WebhookSentAt are mutated only by the
// webhook delivery step.
type Transaction struct {
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	ExpiresAt        time.Time         `json:"expires_at"`
	WebhookSentAt    *time.Time        `json:"webhook_sent_at,omitempty"`
	PaymentID        string            `json:"payment_id"`
	TransactionID    string            `json:"transaction_id"`
	RequestReference string            `json:"cerere_id"`
	CallbackURL      string            `json:"callback_url"`
	ReturnURL        string            `json:"return_url"`
	CardMasked       string            `json:"card_masked,omitempty"`
	ErrorCode        string            `json:"error_code,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	Status           TransactionStatus `json:"status"`
	Behavior         BehaviorKind      `json:"behavior,omitempty"`
	Amount           decimal.Decimal   `json:"amount"`
	WebhookSent      bool              `json:"webhook_sent"`
}

// IsExpired reports whether the checkout window has elapsed at the given
// instant. Only unresolved transactions expire; a terminal status is kept
// regardless of age.
func (t *Transaction) IsExpired(now time.Time) bool {
	if t.Status.IsTerminal() {
		return false
	}
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// CanBeRefunded reports whether the out-of-band refund operation applies.
func (t *Transaction) CanBeRefunded() bool {
	return t.Status == StatusSuccess
}
