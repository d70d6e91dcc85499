package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates another caller currently holds the lock.
var ErrLockHeld = errors.New("shared: lock held")

// releaseScript deletes the lock only when the stored token matches, so
// a slow holder cannot release a lock re-acquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker provides short-lived per-key mutual exclusion backed by Redis.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Acquire takes the lock for key with the given TTL. On success it
// returns a release function; callers should defer it. Returns
// ErrLockHeld when the key is already locked.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), error) {
	token := make([]byte, 16)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("shared: lock token: %w", err)
	}
	value := hex.EncodeToString(token)

	ok, err := l.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("shared: acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func(ctx context.Context) {
		_, _ = releaseScript.Run(ctx, l.client, []string{key}, value).Result()
	}
	return release, nil
}

// OrderVerifyLockKey is the lock key guarding verification of one order.
func OrderVerifyLockKey(orderID int64) string {
	return fmt.Sprintf("lock:orders:verify:%d", orderID)
}
