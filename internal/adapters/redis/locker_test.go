package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citypay-ro/ghiseul-gateway/internal/adapters/redis"
)

func newTestLocker(t *testing.T) (*redis.Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return redis.NewLocker(client, zap.NewNop()), mr
}

func TestLocker_LockAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "GHIS-MOCK-1700000000000-a1b2c3d4")
	require.NoError(t, err)
	assert.True(t, mr.Exists("ghiseul_txn_lock:GHIS-MOCK-1700000000000-a1b2c3d4"))

	unlock()
	assert.False(t, mr.Exists("ghiseul_txn_lock:GHIS-MOCK-1700000000000-a1b2c3d4"))
}

func TestLocker_SecondAcquireWaitsForRelease(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "GHIS-MOCK-1-aaaa")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		unlock2, err := locker.Lock(ctx, "GHIS-MOCK-1-aaaa")
		assert.NoError(t, err)
		unlock2()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while lock was held")
	case <-time.After(100 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second acquire did not proceed after release")
	}
}

func TestLocker_ContextCancellationWhileWaiting(t *testing.T) {
	locker, _ := newTestLocker(t)

	unlock, err := locker.Lock(context.Background(), "GHIS-MOCK-1-aaaa")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "GHIS-MOCK-1-aaaa")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_StaleReleaseKeepsSuccessorLock(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()
	const key = "ghiseul_txn_lock:GHIS-MOCK-1-aaaa"

	staleUnlock, err := locker.Lock(ctx, "GHIS-MOCK-1-aaaa")
	require.NoError(t, err)

	// The first holder's TTL expires while it is still working
	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists(key))

	unlock2, err := locker.Lock(ctx, "GHIS-MOCK-1-aaaa")
	require.NoError(t, err)

	// The stale holder's release must not evict the successor
	staleUnlock()
	assert.True(t, mr.Exists(key))

	unlock2()
	assert.False(t, mr.Exists(key))
}
