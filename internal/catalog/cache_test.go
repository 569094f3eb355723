package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	in := cachedList{Items: []PartListItem{{ID: "part-1", Title: "Alternator", Price: 180}}, Total: 1}
	require.NoError(t, cache.SetJSON(ctx, defaultListKey, in))

	var out cachedList
	ok, err := cache.GetJSON(ctx, defaultListKey, &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, out)
}

func TestCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)
	var out cachedList
	ok, err := cache.GetJSON(context.Background(), "catalog:parts:list:missing", &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetJSON(ctx, defaultListKey, cachedList{Total: 1}))
	require.NoError(t, cache.SetJSON(ctx, detailCacheKey("part-1"), PartDetail{}))
	require.NoError(t, cache.Invalidate(ctx, defaultListKey, detailCacheKey("part-1")))

	require.False(t, mr.Exists(defaultListKey))
	require.False(t, mr.Exists(detailCacheKey("part-1")))
}

func TestCacheNilClientIsNoop(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()
	require.NoError(t, cache.SetJSON(ctx, defaultListKey, cachedList{}))
	var out cachedList
	ok, err := cache.GetJSON(ctx, defaultListKey, &out)
	require.NoError(t, err)
	require.False(t, ok)
}
