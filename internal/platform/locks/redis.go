package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

// Deletes the key only when it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker connects to addr and verifies the connection with PING.
func NewRedisLocker(log *logger.Logger, addr, prefix string) (*RedisLocker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLocker{log: log.With("service", "RedisLocker"), rdb: rdb, prefix: prefix}, nil
}

func (r *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Lock, bool, error) {
	token := uuid.NewString()
	full := r.prefix + key
	ok, err := r.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", full, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLock{owner: r, key: full, token: token}, true, nil
}

func (r *RedisLocker) Close() error { return r.rdb.Close() }

type redisLock struct {
	owner *RedisLocker
	key   string
	token string
}

func (l *redisLock) Key() string { return l.key }

func (l *redisLock) Unlock(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.owner.rdb, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("redis release %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}
