package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still holds our token, so an
// expired lock reacquired by another worker is never released by us.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`

var errNotHeld = errors.New("lock: not held")

// Locker hands out redis-backed mutual exclusion. Keys are owned by whoever
// set them first; contenders poll until the context expires.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

type handle struct {
	client *redis.Client
	key    string
	token  string
}

// acquire polls SetNX until the key is ours or ctx is done.
func (l Locker) acquire(ctx context.Context, key string, ttl time.Duration) (*handle, error) {
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	token := uuid.NewString()
	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &handle{client: l.R, key: key, token: token}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (h *handle) release(ctx context.Context) error {
	res, err := h.client.Eval(ctx, releaseScript, []string{h.key}, h.token).Int()
	if err != nil {
		return err
	}
	if res == 0 {
		return errNotHeld
	}
	return nil
}

// WithLock runs fn while holding the named lock, releasing it afterwards
// even when fn fails. The release uses a fresh context so a cancelled fn
// still cleans up its key.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	h, err := l.acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.release(releaseCtx)
	}()
	return fn(ctx)
}
