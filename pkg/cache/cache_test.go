package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

func TestMemoryRoundTripAndExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", point{"2024-01-02", 10.5}, time.Minute))
	got, err := GetTyped[point](ctx, mc, "k")
	require.NoError(t, err)
	assert.Equal(t, point{"2024-01-02", 10.5}, got)

	ok, _ := mc.Exists(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, err = GetTyped[point](ctx, mc, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Second); return now }
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestLayeredPromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2, WithLayeredMemory(10, time.Minute))
	defer lc.Close()

	require.NoError(t, l2.Set(ctx, "x", point{"d", 1}, time.Hour))
	got, err := GetTyped[point](ctx, lc, "x")
	require.NoError(t, err)
	assert.Equal(t, point{"d", 1}, got)

	ok, _ := lc.memCache.Exists(ctx, "x")
	assert.True(t, ok)

	require.NoError(t, lc.Delete(ctx, "x"))
	_, err = GetTyped[point](ctx, lc, "x")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLayeredWithoutL2(t *testing.T) {
	ctx := context.Background()
	lc := NewLayeredCache(nil)
	defer lc.Close()

	_, err := GetTyped[int](ctx, lc, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
	require.NoError(t, lc.Set(ctx, "n", 7, time.Hour))
	n, err := GetTyped[int](ctx, lc, "n")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "analysis:THYAO:2024-01-02", Key("analysis", "THYAO", "2024-01-02"))
	assert.Equal(t, "p:7", Key("p", "", 7))
	assert.Equal(t, "p", Key("p"))

	assert.Len(t, Digest([]byte("x"), 0), 64)
	assert.Len(t, Digest([]byte("x"), 12), 12)
	assert.Equal(t, Digest([]byte("x"), 0)[:12], Digest([]byte("x"), 12))
	assert.Len(t, Digest([]byte("x"), 99), 64)
}
