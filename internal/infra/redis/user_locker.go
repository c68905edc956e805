package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"automatization-bot/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// UserLocker is a per-user lock shared by every bot instance pointed at the same Redis.
// The ttl bounds how long a crashed holder can block a user.
// A handler that outlives the ttl loses the lock; release then reports it.
type UserLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

func NewUserLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *UserLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserLocker{client: client, ttl: ttl, retry: 25 * time.Millisecond, logger: logger}
}

func (l *UserLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := l.key(userID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			acquired := time.Now()
			var once sync.Once
			return func() {
				once.Do(func() { l.release(key, token, acquired) })
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *UserLocker) release(key, token string, acquired time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultWriteTimeout)
	defer cancel()
	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		l.logger.Warn("redis lock release failed", "key", key, "error", err)
		return
	}
	if deleted == 0 {
		l.logger.Warn("redis lock expired before release", "key", key, "held", time.Since(acquired), "ttl", l.ttl)
	}
}

func (l *UserLocker) key(userID string) string {
	return "quiz:lock:" + userID
}
