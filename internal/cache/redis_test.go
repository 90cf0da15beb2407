package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/sparklabs/spark-backend/internal/cache"
)

func setupCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	return &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

func TestUnreadCount_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c := setupCache(t)

	_, ok, err := c.GetUnreadCount(ctx, 7)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, c.SetUnreadCount(ctx, 7, 3))

	n, ok, err := c.GetUnreadCount(ctx, 7)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
}

func TestBumpUnreadCount_OnlyWhenCached(t *testing.T) {
	ctx := context.Background()
	c := setupCache(t)

	// no cached value: bump is a no-op
	assert.NoError(t, c.BumpUnreadCount(ctx, 9))
	_, ok, _ := c.GetUnreadCount(ctx, 9)
	assert.False(t, ok)

	assert.NoError(t, c.SetUnreadCount(ctx, 9, 1))
	assert.NoError(t, c.BumpUnreadCount(ctx, 9))

	n, ok, _ := c.GetUnreadCount(ctx, 9)
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
}

func TestInvalidateUnreadCount(t *testing.T) {
	ctx := context.Background()
	c := setupCache(t)

	assert.NoError(t, c.SetUnreadCount(ctx, 4, 10))
	assert.NoError(t, c.InvalidateUnreadCount(ctx, 4))

	_, ok, _ := c.GetUnreadCount(ctx, 4)
	assert.False(t, ok)
}
