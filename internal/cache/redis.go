package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sparklabs/spark-backend/internal/config"
)

// UnreadTTL bounds how long a cached unread-message count lives; the DB is
// always the fallback on a miss.
const UnreadTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes the Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

// KeyForUnreadCount generates the Redis key for a user's unread message count.
func (c *RedisCache) KeyForUnreadCount(userID uint64) string {
	return fmt.Sprintf("chat:unread:%d", userID)
}

// SetUnreadCount caches a user's unread count, refreshing the TTL.
func (c *RedisCache) SetUnreadCount(ctx context.Context, userID uint64, count int64) error {
	return c.Client.Set(ctx, c.KeyForUnreadCount(userID), count, UnreadTTL).Err()
}

// GetUnreadCount returns the cached unread count. A cache miss is reported
// via ok=false, not an error.
func (c *RedisCache) GetUnreadCount(ctx context.Context, userID uint64) (int64, bool, error) {
	key := c.KeyForUnreadCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, UnreadTTL).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// BumpUnreadCount increments the cached unread counter if it exists. A miss
// is left alone so the next read repopulates from the DB.
func (c *RedisCache) BumpUnreadCount(ctx context.Context, userID uint64) error {
	key := c.KeyForUnreadCount(userID)
	exists, err := c.Client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return err
	}
	if err := c.Client.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return c.Client.Expire(ctx, key, UnreadTTL).Err()
}

// InvalidateUnreadCount drops the cached counter after a bulk read flip.
func (c *RedisCache) InvalidateUnreadCount(ctx context.Context, userID uint64) error {
	return c.Client.Del(ctx, c.KeyForUnreadCount(userID)).Err()
}
