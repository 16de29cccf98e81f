package repository

import (
	"context"
	"testing"

	"spark-chat-go/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) SummaryCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSummaryCache(client)
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	summaries := []model.ChatSummaryDTO{
		{ChatID: "chat-1", Title: "first"},
		{ChatID: "chat-2", Title: "second"},
	}
	require.NoError(t, cache.Set(ctx, "owner-1", summaries))

	got, hit, err := cache.Get(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, summaries, got)
}

func TestSummaryCacheMiss(t *testing.T) {
	cache := newTestCache(t)

	got, hit, err := cache.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, got)
}

func TestSummaryCacheInvalidate(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "owner-1", []model.ChatSummaryDTO{{ChatID: "chat-1", Title: "t"}}))
	require.NoError(t, cache.Invalidate(ctx, "owner-1"))

	_, hit, err := cache.Get(ctx, "owner-1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSummaryCacheEmptyListIsCached(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	// 空目录也要占缓存位，命中后不再回源
	require.NoError(t, cache.Set(ctx, "owner-1", []model.ChatSummaryDTO{}))

	got, hit, err := cache.Get(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
