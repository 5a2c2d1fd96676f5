// Package cache adapts the redis platform connection to ports.KeyValueCache:
// the runtime-manifest KV mirror and the Egress Proxy's rate-limit fallback
// fixed window.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/redis"
)

// RedisCache implements ports.KeyValueCache over a single redis client.
type RedisCache struct {
	conn *platformredis.Connection
}

// New builds a RedisCache over an already-configured platform connection.
func New(conn *platformredis.Connection) *RedisCache {
	return &RedisCache{conn: conn}
}

func (c *RedisCache) client(ctx context.Context) (*redis.Client, error) {
	return c.conn.GetDB(ctx)
}

// Get returns the value stored at key, or "" with no error if it is absent.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	client, err := c.client(ctx)
	if err != nil {
		return "", err
	}

	val, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}

	return val, err
}

// Set writes key=value with the given ttl (0 means no expiry).
func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	client, err := c.client(ctx)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, value, ttl).Err()
}

// Incr atomically increments key and returns the new value, used by the
// rate-limit fallback fixed window when the in-process shard is absent.
func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	client, err := c.client(ctx)
	if err != nil {
		return 0, err
	}

	return client.Incr(ctx, key).Result()
}

// Expire sets a ttl on an existing key.
func (c *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	client, err := c.client(ctx)
	if err != nil {
		return err
	}

	return client.Expire(ctx, key, ttl).Err()
}
