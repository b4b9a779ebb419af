package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) (int, bool) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Bool(1)
}

func (m *mockCache) GetWithRefresh(ctx context.Context, key string, ttl time.Duration) (int, bool) {
	args := m.Called(ctx, key, ttl)
	return args.Int(0), args.Bool(1)
}

func (m *mockCache) Set(ctx context.Context, key string, value int, ttl time.Duration) {
	m.Called(ctx, key, value, ttl)
}

func (m *mockCache) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *mockCache) Flush(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockCache) ItemCount() int {
	return m.Called().Int(0)
}

func TestReadThroughCache_HitSkipsCompute(t *testing.T) {
	ctx := context.Background()
	cache := &mockCache{}
	cache.On("GetWithRefresh", ctx, "k", time.Minute).Return(42, true).Once()

	calls := 0
	rt := NewReadThroughCache[string, int, string](cache, func(context.Context, string) (int, error) {
		calls++
		return 0, nil
	}, time.Minute)

	v, hit, err := rt.Get(ctx, "k", "input")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, 42, v)
	require.Zero(t, calls)
	cache.AssertExpectations(t)
}

func TestReadThroughCache_MissComputesAndStores(t *testing.T) {
	ctx := context.Background()
	cache := &mockCache{}
	cache.On("GetWithRefresh", ctx, "k", time.Minute).Return(0, false).Once()
	cache.On("Set", ctx, "k", 5, time.Minute).Once()

	rt := NewReadThroughCache[string, int, string](cache, func(_ context.Context, in string) (int, error) {
		return len(in), nil
	}, time.Minute)

	v, hit, err := rt.Get(ctx, "k", "hello")
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 5, v)
	cache.AssertExpectations(t)
}

func TestReadThroughCache_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	cache := &mockCache{}
	cache.On("GetWithRefresh", ctx, "k", time.Minute).Return(0, false).Once()

	boom := errors.New("boom")
	rt := NewReadThroughCache[string, int, string](cache, func(context.Context, string) (int, error) {
		return 0, boom
	}, time.Minute)

	_, _, err := rt.Get(ctx, "k", "x")
	require.ErrorIs(t, err, boom)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReadThroughCache_NilCacheAlwaysComputes(t *testing.T) {
	calls := 0
	rt := NewReadThroughCache[string, int, string](nil, func(context.Context, string) (int, error) {
		calls++
		return calls, nil
	}, time.Minute)

	v1, hit1, _ := rt.Get(context.Background(), "k", "x")
	v2, hit2, _ := rt.Get(context.Background(), "k", "x")
	require.Equal(t, 1, v1)
	require.Equal(t, 2, v2)
	require.False(t, hit1)
	require.False(t, hit2)
}
