package ports

import "context"

// TransactionLocker serializes concurrent checkout submissions for the same
// transaction id, so that only one terminal resolution and one webhook
// scheduling can occur.
//
// Lock blocks until the lock is acquired or ctx is done. The returned
// function releases the lock and must be called exactly once.
type TransactionLocker interface {
	Lock(ctx context.Context, transactionID string) (unlock func(), err error)
}
