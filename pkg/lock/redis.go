package lock

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the lease lifetime; a leader that stops renewing loses the
// lock after at most this long.
const DefaultTTL = 45 * time.Second

// RedisLock implements the lease with a single SET NX EX key. The value
// identifies this process so renewal and release never touch a lease another
// process has since taken over.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	holder string
}

// NewRedisLock wraps an existing client; the caller owns the connection.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	hostname, _ := os.Hostname()
	holder := fmt.Sprintf("%s-%d-%04x", hostname, os.Getpid(), rand.Intn(1<<16)) //nolint:gosec // uniqueness, not crypto
	return &RedisLock{client: client, key: key, ttl: ttl, holder: holder}
}

// TryAcquire takes the lease if nobody holds it. Errors are logged and count
// as "not acquired" so a Redis hiccup never lets two leaders run.
func (l *RedisLock) TryAcquire(ctx context.Context) bool {
	ok, err := l.client.SetNX(ctx, l.key, l.holder, l.ttl).Result()
	if err != nil {
		log.Printf("[WARN] could not acquire leader lock %s: %v", l.key, err)
		return false
	}
	return ok
}

// Renew re-arms the TTL, but only while the stored value is still ours;
// returns false when the lease was lost.
func (l *RedisLock) Renew(ctx context.Context) bool {
	val, err := l.client.Get(ctx, l.key).Result()
	if err != nil || val != l.holder {
		return false
	}
	if err := l.client.Expire(ctx, l.key, l.ttl).Err(); err != nil {
		log.Printf("[WARN] could not renew leader lock %s: %v", l.key, err)
		return false
	}
	return true
}

// Release drops the lease if we still hold it.
func (l *RedisLock) Release(ctx context.Context) {
	val, err := l.client.Get(ctx, l.key).Result()
	if err != nil || val != l.holder {
		return
	}
	if err := l.client.Del(ctx, l.key).Err(); err != nil {
		log.Printf("[WARN] could not release leader lock %s: %v", l.key, err)
	}
}
