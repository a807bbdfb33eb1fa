package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultLockPrefix = "mealplan:lock:"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by someone else is never released by us
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements shared.Locker with SET NX PX on a shared redis,
// serializing callers across every API replica
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	policy    retryPolicy
}

var _ shared.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker over an existing client
func NewRedisLocker(client redis.UniversalClient, keyPrefix string, opts ...LockerOption) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = defaultLockPrefix
	}
	return &RedisLocker{client: client, keyPrefix: keyPrefix, policy: newRetryPolicy(opts)}
}

// Acquire takes the lock on key for at most ttl
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (shared.ReleaseFunc, error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	err := l.policy.acquire(ctx, key, func() (bool, error) {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}, nil
}

// Close closes the underlying client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
