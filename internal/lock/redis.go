package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultRedisLockTTL   = 15 * time.Second
	defaultRetryInterval  = 25 * time.Millisecond
	maxRetryInterval      = 250 * time.Millisecond
	defaultAcquireTimeout = 10 * time.Second
)

// RedisLocker holds keys across processes with SET NX and a per-acquisition token.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultRedisLockTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
		log:    log.Named("lock.redis"),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("lock client not configured")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultAcquireTimeout)
		defer cancel()
	}

	token := uuid.NewString()
	held := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			l.release(held, token)
			return nil, ErrEmptyKey
		}
		if err := l.lockKey(ctx, key, token); err != nil {
			l.release(held, token)
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(held, token) }) }, nil
}

func (l *RedisLocker) lockKey(ctx context.Context, key, token string) error {
	wait := defaultRetryInterval
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ErrLockTimeout
			}
			return err
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ErrLockTimeout
		case <-timer.C:
		}
		wait = min(wait*2, maxRetryInterval)
	}
}

func (l *RedisLocker) release(keys []string, token string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		if err := l.script.Run(ctx, l.client, []string{keys[i]}, token).Err(); err != nil {
			l.log.Warn("failed to release lock", zap.String("key", keys[i]), zap.Error(err))
		}
	}
}
