package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockLost means the lock expired or changed hands before fn
	// returned, so fn may have overlapped with another holder.
	ErrLockLost = errors.New("lock lost before release")
)

// Locker guards one-off jobs that must not run twice at once against a
// shared backend, such as seeding.
type Locker interface {
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

type redisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewLocker creates a locker keyed under prefix. The lock expires after
// ttl even if the holder dies, and fn's context is cut off at ttl.
func NewLocker(client *redis.Client, prefix string, ttl time.Duration) Locker {
	return &redisLocker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// WithLock runs fn while holding the named lock. A release failure is
// returned only when fn itself succeeded.
func (l *redisLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	key := fmt.Sprintf("%slock:%s", l.prefix, name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockNotAcquired, name)
	}

	defer func() {
		if rerr := l.release(context.WithoutCancel(ctx), key, token); rerr != nil && err == nil {
			err = fmt.Errorf("release lock %s: %w", name, rerr)
		}
	}()

	fnCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(fnCtx)
}

// unlockScript deletes the key only while it still holds our token and
// reports how many keys it removed.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	n, err := unlockScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}
