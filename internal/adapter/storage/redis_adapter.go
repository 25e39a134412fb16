package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory-cart/internal/port"
)

const (
	lockKeyPrefix        = "lock:"
	idempotencyKeyPrefix = "idempotency:"

	defaultLockTTL        = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour

	lockRetryMin = 2 * time.Millisecond
	lockRetryMax = 50 * time.Millisecond
	unlockWait   = time.Second
)

var (
	_ port.Locker           = (*RedisAdapter)(nil)
	_ port.IdempotencyStore = (*RedisAdapter)(nil)
)

// Deletes the lock only while it still holds the caller's token, so an
// expired holder cannot release a lock that was taken over by someone else.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

type RedisAdapter struct {
	client         *redis.Client
	lockTTL        time.Duration
	idempotencyTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, lockTTL, idempotencyTTL time.Duration) *RedisAdapter {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	if idempotencyTTL <= 0 {
		idempotencyTTL = defaultIdempotencyTTL
	}
	return &RedisAdapter{
		client:         client,
		lockTTL:        lockTTL,
		idempotencyTTL: idempotencyTTL,
	}
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Lock acquires a lease on key, polling until it is free or ctx is done.
func (r *RedisAdapter) Lock(ctx context.Context, key string) (func(), error) {
	key = lockKeyPrefix + key
	token := uuid.NewString()
	wait := lockRetryMin

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if wait < lockRetryMax {
			wait *= 2
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockWait)
		defer cancel()
		// A failed release leaves the lease to expire after lockTTL.
		_ = releaseLockScript.Run(releaseCtx, r.client, []string{key}, token).Err()
	}, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, r.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}
