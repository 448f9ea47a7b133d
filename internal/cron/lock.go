package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snapwall/snapwall-backend/pkg/instance"
	pkgredis "github.com/snapwall/snapwall-backend/pkg/redis"
)

const defaultLockTTL = 10 * time.Minute

// ErrLockLost reports that the lock expired or was taken over before Release.
var ErrLockLost = errors.New("cron lock lost before release")

// Lock keeps cleanup cycles exclusive across cron worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// LockKey scopes the cron lock to one deployment environment.
func LockKey(env string) string {
	if env = strings.TrimSpace(env); env == "" {
		env = "local"
	}
	return pkgredis.Key("cron-worker", "lock", env)
}

// RedisLock stores "<instance>/<nonce>" under key with a TTL so a crashed holder frees it.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case strings.TrimSpace(key) == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := instance.ID() + "/" + uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release deletes the key only while it still holds our token. It returns ErrLockLost when
// another holder owns it or it already expired.
func (l *RedisLock) Release(ctx context.Context) error {
	token := l.token
	if token == "" {
		return nil
	}
	l.token = ""

	current, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, pkgredis.Nil):
		return ErrLockLost
	case err != nil:
		return fmt.Errorf("read %s: %w", l.key, err)
	case current != token:
		return fmt.Errorf("%w: held by %s", ErrLockLost, current)
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
