package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/openride/seatreserve/internal/lock"
)

// releaseScript deletes the lock only if it still carries our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker is a lock.Locker shared by every instance using the same Redis.
// Each lock is a lease of ttl; a holder that outlives it loses exclusivity.
type RedisLocker struct {
	client   redis.Cmdable
	ttl      time.Duration
	retry    time.Duration
	newToken func() string
	logger   *slog.Logger
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client:   client,
		ttl:      ttl,
		retry:    20 * time.Millisecond,
		newToken: uuid.NewString,
		logger:   logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKey(key)
	token := l.newToken()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be cancelled; the lease must still go.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.client.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("failed to release lock", slog.String("key", key), slog.Any("error", err))
			}
		})
	}, nil
}

func lockKey(key string) string {
	return "lock:" + key
}

var _ lock.Locker = (*RedisLocker)(nil)
