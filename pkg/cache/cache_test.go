package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T, opts ...MemoryOption) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache(opts...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), time.Minute))
	b, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(b))

	_, err = mc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), time.Second))
	now = now.Add(2 * time.Second)
	_, err := mc.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t, WithMemoryMaxSize(2))
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Millisecond); return now }

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, mc.Set(ctx, "b", []byte("2"), time.Minute))
	_, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, mc.Set(ctx, "c", []byte("3"), time.Minute))

	assert.Equal(t, 2, mc.Len())
	_, err = mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = mc.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)
	v := []byte("abc")
	require.NoError(t, mc.Set(ctx, "k", v, time.Minute))
	v[0] = 'x'

	b, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	ctx := context.Background()
	mc := newTestMemory(t)

	require.NoError(t, SetJSON(ctx, mc, Key("report", "20200131"), payload{Name: "x", Count: 3}, time.Minute))
	got, err := GetJSON[payload](ctx, mc, "report:20200131")
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "x", Count: 3}, got)

	_, err = GetJSON[payload](ctx, mc, "report:19990101")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLayeredCachePromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newTestMemory(t), newTestMemory(t)
	lc := NewLayeredCache(l1, l2, time.Minute)

	require.NoError(t, l2.Set(ctx, "k", []byte("v"), time.Hour))
	b, err := lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(b))

	b, err = l1.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(b))
}

func TestLayeredCacheWritesThroughAndDeletes(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newTestMemory(t), newTestMemory(t)
	lc := NewLayeredCache(l1, l2, time.Minute)

	require.NoError(t, lc.Set(ctx, "k", []byte("v"), time.Hour))
	_, err := l1.Get(ctx, "k")
	assert.NoError(t, err)
	_, err = l2.Get(ctx, "k")
	assert.NoError(t, err)

	require.NoError(t, lc.Delete(ctx, "k"))
	_, err = lc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
