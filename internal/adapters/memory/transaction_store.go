// Package memory provides process-local implementations of the gateway's
// persistence and locking ports. The store is a read-through convenience for
// the synchronous initiate→checkout roundtrip and the default test double;
// it is never authoritative across requests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
	"github.com/citypay-ro/ghiseul-gateway/pkg/timeutil"
)

// TransactionStore is an in-memory ports.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	txns map[string]*domain.Transaction
}

// NewTransactionStore creates an empty in-memory store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		txns: make(map[string]*domain.Transaction),
	}
}

// Create persists a new transaction.
func (s *TransactionStore) Create(ctx context.Context, txn *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txns[txn.TransactionID]; exists {
		return domain.NewDomainError(domain.ErrorCodeStoreError, "duplicate transaction id").
			WithDetail("transaction_id", txn.TransactionID)
	}

	clone := *txn
	s.txns[txn.TransactionID] = &clone
	return nil
}

// GetByTransactionID retrieves a transaction by id.
func (s *TransactionStore) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.txns[transactionID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	clone := *txn
	return &clone, nil
}

// MarkProcessing records the checkout submission.
func (s *TransactionStore) MarkProcessing(ctx context.Context, transactionID, cardMasked string, behavior domain.BehaviorKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[transactionID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if !txn.Status.CanTransitionTo(domain.StatusProcessing) {
		return domain.ErrTransactionAlreadyResolved
	}

	txn.Status = domain.StatusProcessing
	txn.CardMasked = cardMasked
	txn.Behavior = behavior
	txn.UpdatedAt = timeutil.Now()
	return nil
}

// ResolveStatus moves a transaction to a terminal status, compare-and-set on
// the expected prior status.
func (s *TransactionStore) ResolveStatus(ctx context.Context, transactionID string, from, to domain.TransactionStatus, errorCode, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[transactionID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if txn.Status != from {
		return domain.ErrTransactionAlreadyResolved
	}
	if !from.CanTransitionTo(to) {
		return domain.ErrInvalidStatusTransition
	}

	txn.Status = to
	txn.ErrorCode = errorCode
	txn.ErrorMessage = errorMessage
	txn.UpdatedAt = timeutil.Now()
	return nil
}

// MarkWebhookSent records webhook delivery bookkeeping.
func (s *TransactionStore) MarkWebhookSent(ctx context.Context, transactionID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[transactionID]
	if !ok {
		return domain.ErrTransactionNotFound
	}

	txn.WebhookSent = true
	at := sentAt.UTC()
	txn.WebhookSentAt = &at
	txn.UpdatedAt = timeutil.Now()
	return nil
}

// PurgeExpired deletes unresolved transactions older than maxAge. The host
// may call this from a scheduled job; the core never deletes on its own.
func (s *TransactionStore) PurgeExpired(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := timeutil.Now().Add(-maxAge)
	purged := 0
	for id, txn := range s.txns {
		if !txn.Status.IsTerminal() && txn.CreatedAt.Before(cutoff) {
			delete(s.txns, id)
			purged++
		}
	}
	return purged
}
