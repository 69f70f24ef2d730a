package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 5 * time.Minute

// Lock keeps two cron-worker replicas from running the same cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a leased leader lock. A crashed holder loses it when the TTL
// runs out; a live holder only ever deletes its own lease.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	lease string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("lock store required")
	}
	if key == "" {
		return nil, errors.New("lock key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	lease := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, lease, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.lease = lease
	}
	return ok, nil
}

// Release is a no-op when this instance holds no lease or the lease expired
// and someone else took the key.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.lease == "" {
		return nil
	}
	lease := l.lease
	l.lease = ""
	if _, err := l.store.DelIfValue(ctx, l.key, lease); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
