package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads through a fast L1 to a shared L2 and writes through to both.
// Locks are taken on L2 only so they are visible to every instance.
type LayeredCache struct {
	l1    Store
	l2    Store
	l1TTL time.Duration
}

// NewLayeredCache pairs l1 (usually a MemoryCache) with l2 (usually Redis).
// Entries promoted from l2 live in l1 for at most l1TTL.
func NewLayeredCache(l1, l2 Store, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2, l1TTL: l1TTL}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := lc.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, value, lc.shortTTL(ttl))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string) ([]byte, error) {
	if b, err := lc.l1.Get(ctx, key); err == nil {
		return b, nil
	}
	b, err := lc.l2.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = lc.l1.Set(ctx, key, b, lc.l1TTL)
	return b, nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	return errors.Join(lc.l1.Delete(ctx, keys...), lc.l2.Delete(ctx, keys...))
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.l2.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.l2.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	return errors.Join(lc.l1.Close(), lc.l2.Close())
}

func (lc *LayeredCache) shortTTL(ttl time.Duration) time.Duration {
	if ttl > 0 && (lc.l1TTL <= 0 || ttl < lc.l1TTL) {
		return ttl
	}
	return lc.l1TTL
}
