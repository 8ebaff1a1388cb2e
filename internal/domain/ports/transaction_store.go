package ports

import (
	"context"
	"time"

	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
)

// TransactionStore defines the interface for transaction persistence.
//
// The authoritative implementation is external (Postgres); the in-memory
// implementation exists for the synchronous initiate→checkout roundtrip and
// for tests, and must never be treated as durable across requests.
type TransactionStore interface {
	// Create persists a new transaction. The transaction's immutable fields
	// (transaction_id, cerere reference, amount, URLs) are fixed here.
	Create(ctx context.Context, txn *domain.Transaction) error

	// GetByTransactionID retrieves a transaction, or
	// domain.ErrTransactionNotFound if the id is unknown.
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// MarkProcessing records the checkout submission: masked card number,
	// resolved behavior kind, and the pending→processing transition.
	MarkProcessing(ctx context.Context, transactionID, cardMasked string, behavior domain.BehaviorKind) error

	// ResolveStatus moves a transaction from an expected prior status to a
	// terminal one, compare-and-set style. A lost race (the transaction is
	// no longer in the expected status) returns
	// domain.ErrTransactionAlreadyResolved.
	ResolveStatus(ctx context.Context, transactionID string, from, to domain.TransactionStatus, errorCode, errorMessage string) error

	// MarkWebhookSent records best-effort webhook delivery bookkeeping.
	MarkWebhookSent(ctx context.Context, transactionID string, sentAt time.Time) error
}
