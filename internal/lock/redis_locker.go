package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker hands out exclusive sections backed by Redis SET NX with a TTL.
// Each acquisition stores a random owner token so a holder whose TTL ran
// out can never release a lock someone else took over.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLocker creates a Locker. ttl bounds how long a crashed holder
// can block others.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

var _ port.Locker = (*RedisLocker)(nil)

// TryLock acquires key without waiting.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (port.Unlock, error) {
	redisKey := fmt.Sprintf("lock:%s", key)
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("redisLocker.TryLock token: %w", err)
	}

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redisLocker.TryLock %s: %w", redisKey, err)
	}
	if !ok {
		return nil, domain.ErrPromotionConflict
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("redisLocker.Unlock %s: %w", redisKey, err)
		}
		return nil
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// PingContext checks that Redis is reachable.
func (l *RedisLocker) PingContext(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
