package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type entry struct {
	Kind  string
	Start int
}

func TestInMemoryCacheManager_SetGet(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []entry]("lex", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()

	want := []entry{{Kind: "kw", Start: 0}}
	cache.Set(ctx, "go:abc", want, DefaultExpiration)

	got, ok := cache.Get(ctx, "go:abc")
	require.True(t, ok)
	require.Equal(t, want, got)
	require.Equal(t, 1, cache.ItemCount())
}

func TestInMemoryCacheManager_Miss(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("lex", DefaultExpiration, DefaultCleanupInterval)

	got, ok := cache.Get(context.Background(), "missing")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_WrongTypeIsAMiss(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("lex", DefaultExpiration, DefaultCleanupInterval)
	cache.cache.Set("k", 123, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "k")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("lex", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "k", "v", 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_GetWithRefreshExtendsTTL(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("lex", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()
	cache.Set(ctx, "k", "v", 50*time.Millisecond)

	_, ok := cache.GetWithRefresh(ctx, "k", time.Hour)
	require.True(t, ok)

	time.Sleep(80 * time.Millisecond)
	got, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "v", got)
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("lex", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()
	cache.Set(ctx, "a", "1", DefaultExpiration)
	cache.Set(ctx, "b", "2", DefaultExpiration)
	cache.Set(ctx, "c", "3", DefaultExpiration)

	require.NoError(t, cache.Delete(ctx, "a", "b"))
	_, ok := cache.Get(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 1, cache.ItemCount())

	require.NoError(t, cache.Flush(ctx))
	require.Equal(t, 0, cache.ItemCount())
}
