package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache implements usecase.Cache using Redis.
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache creates a new Cache.
func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		prefix: "cache:",
	}
}

// Get retrieves a value by key. A miss returns (nil, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	return value, err
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
