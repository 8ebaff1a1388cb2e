// Package redis provides a Redis-backed per-transaction lock for
// deployments where checkout submissions for the same transaction can land
// on different processes.
package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	lockKeyFormat   = "ghiseul_txn_lock:%s"
	defaultLockTTL  = 30 * time.Second
	acquirePollStep = 50 * time.Millisecond
)

// releaseScript deletes the lock only while this holder still owns it. A
// holder that outlived the TTL must not release a lock another submitter
// has since acquired.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Locker implements ports.TransactionLocker with SET NX + TTL. The TTL
// bounds how long a crashed holder can block other submitters.
type Locker struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewLocker creates a Redis locker with the default TTL.
func NewLocker(client *redis.Client, logger *zap.Logger) *Locker {
	return &Locker{
		client: client,
		logger: logger,
		ttl:    defaultLockTTL,
	}
}

// Lock polls SET NX until the lock is acquired or ctx is done. The lock
// value is a per-acquisition token, so release is a no-op once the TTL has
// expired and someone else holds the key.
func (l *Locker) Lock(ctx context.Context, transactionID string) (func(), error) {
	key := fmt.Sprintf(lockKeyFormat, transactionID)
	token := newLockToken()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire transaction lock: %w", err)
		}
		if ok {
			return func() {
				released, err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Int()
				if err != nil {
					l.logger.Warn("Failed to release transaction lock",
						zap.String("transaction_id", transactionID),
						zap.Error(err),
					)
					return
				}
				if released == 0 {
					l.logger.Warn("Transaction lock expired before release",
						zap.String("transaction_id", transactionID),
					)
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(acquirePollStep):
		}
	}
}

func newLockToken() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return hex.EncodeToString(b[:])
}
