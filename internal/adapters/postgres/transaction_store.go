package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
)

// TransactionStore implements ports.TransactionStore over the
// gateway_transactions table (see schema.sql).
type TransactionStore struct {
	db *DB
}

// NewTransactionStore creates a Postgres-backed transaction store.
func NewTransactionStore(db *DB) *TransactionStore {
	return &TransactionStore{db: db}
}

const createTransactionSQL = `
INSERT INTO gateway_transactions (
	transaction_id, payment_id, cerere_id, amount, status,
	callback_url, return_url, expires_at, created_at, updated_at
) VALUES (
	@transaction_id, @payment_id, @cerere_id, @amount, @status,
	@callback_url, @return_url, @expires_at, @created_at, @updated_at
)`

// Create persists a new transaction.
func (s *TransactionStore) Create(ctx context.Context, txn *domain.Transaction) error {
	paymentID, err := uuid.Parse(txn.PaymentID)
	if err != nil {
		return fmt.Errorf("invalid payment ID: %w", err)
	}

	amount, err := decimalToNumeric(txn.Amount)
	if err != nil {
		return fmt.Errorf("convert amount: %w", err)
	}

	_, err = s.db.pool.Exec(ctx, createTransactionSQL, pgx.NamedArgs{
		"transaction_id": txn.TransactionID,
		"payment_id":     paymentID,
		"cerere_id":      txn.RequestReference,
		"amount":         amount,
		"status":         string(txn.Status),
		"callback_url":   txn.CallbackURL,
		"return_url":     txn.ReturnURL,
		"expires_at":     txn.ExpiresAt,
		"created_at":     txn.CreatedAt,
		"updated_at":     txn.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	return nil
}

const getTransactionSQL = `
SELECT transaction_id, payment_id, cerere_id, amount, status,
       callback_url, return_url, card_masked, behavior,
       error_code, error_message, webhook_sent, webhook_sent_at,
       expires_at, created_at, updated_at
FROM gateway_transactions
WHERE transaction_id = $1`

// GetByTransactionID retrieves a transaction by id.
func (s *TransactionStore) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	row := s.db.pool.QueryRow(ctx, getTransactionSQL, transactionID)

	var (
		txn           domain.Transaction
		paymentID     uuid.UUID
		amount        pgtype.Numeric
		status        string
		cardMasked    pgtype.Text
		behavior      pgtype.Text
		errorCode     pgtype.Text
		errorMessage  pgtype.Text
		webhookSentAt pgtype.Timestamptz
	)

	err := row.Scan(
		&txn.TransactionID, &paymentID, &txn.RequestReference, &amount, &status,
		&txn.CallbackURL, &txn.ReturnURL, &cardMasked, &behavior,
		&errorCode, &errorMessage, &txn.WebhookSent, &webhookSentAt,
		&txn.ExpiresAt, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}

	txn.PaymentID = paymentID.String()
	txn.Status = domain.TransactionStatus(status)
	txn.CardMasked = cardMasked.String
	txn.Behavior = domain.BehaviorKind(behavior.String)
	txn.ErrorCode = errorCode.String
	txn.ErrorMessage = errorMessage.String
	if webhookSentAt.Valid {
		at := webhookSentAt.Time.UTC()
		txn.WebhookSentAt = &at
	}

	txn.Amount, err = numericToDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}

	return &txn, nil
}

const markProcessingSQL = `
UPDATE gateway_transactions
SET status = 'processing', card_masked = $2, behavior = $3, updated_at = now()
WHERE transaction_id = $1 AND status = 'pending'`

// MarkProcessing records the checkout submission. The status predicate in
// the WHERE clause keeps the transition forward-only under concurrency.
func (s *TransactionStore) MarkProcessing(ctx context.Context, transactionID, cardMasked string, behavior domain.BehaviorKind) error {
	tag, err := s.db.pool.Exec(ctx, markProcessingSQL, transactionID, cardMasked, string(behavior))
	if err != nil {
		return fmt.Errorf("mark transaction processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.explainMissedUpdate(ctx, transactionID)
	}
	return nil
}

const resolveStatusSQL = `
UPDATE gateway_transactions
SET status = $3, error_code = NULLIF($4, ''), error_message = NULLIF($5, ''), updated_at = now()
WHERE transaction_id = $1 AND status = $2`

// ResolveStatus moves a transaction to a terminal status, compare-and-set on
// the expected prior status.
func (s *TransactionStore) ResolveStatus(ctx context.Context, transactionID string, from, to domain.TransactionStatus, errorCode, errorMessage string) error {
	if !from.CanTransitionTo(to) {
		return domain.ErrInvalidStatusTransition
	}

	tag, err := s.db.pool.Exec(ctx, resolveStatusSQL,
		transactionID, string(from), string(to), errorCode, errorMessage)
	if err != nil {
		return fmt.Errorf("resolve transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.explainMissedUpdate(ctx, transactionID)
	}
	return nil
}

const markWebhookSentSQL = `
UPDATE gateway_transactions
SET webhook_sent = TRUE, webhook_sent_at = $2, updated_at = now()
WHERE transaction_id = $1`

// MarkWebhookSent records webhook delivery bookkeeping.
func (s *TransactionStore) MarkWebhookSent(ctx context.Context, transactionID string, sentAt time.Time) error {
	tag, err := s.db.pool.Exec(ctx, markWebhookSentSQL, transactionID, sentAt.UTC())
	if err != nil {
		return fmt.Errorf("mark webhook sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// explainMissedUpdate distinguishes "no such transaction" from "status
// predicate did not match" after a zero-row update.
func (s *TransactionStore) explainMissedUpdate(ctx context.Context, transactionID string) error {
	var status string
	err := s.db.pool.QueryRow(ctx,
		`SELECT status FROM gateway_transactions WHERE transaction_id = $1`,
		transactionID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("inspect transaction status: %w", err)
	}
	return domain.ErrTransactionAlreadyResolved
}

func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return n, err
	}
	return n, nil
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	v, err := n.Value()
	if err != nil {
		return decimal.Zero, err
	}
	str, ok := v.(string)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected numeric driver value %T", v)
	}
	return decimal.NewFromString(str)
}
