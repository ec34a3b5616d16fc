package session

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "session:v1:"

// Cache is a bounded read-through cache for sealed credential blobs. It is
// invalidated on every write and delete, so the repository stays the single
// source of truth.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a Redis-backed session cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(userID int64) string {
	return cachePrefix + strconv.FormatInt(userID, 10)
}

// Get returns the cached sealed blob, reporting whether it was present.
func (c *Cache) Get(ctx context.Context, userID int64) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores the sealed blob with the configured TTL.
func (c *Cache) Set(ctx context.Context, userID int64, sealed []byte) error {
	return c.client.Set(ctx, cacheKey(userID), sealed, c.ttl).Err()
}

// Invalidate drops the cached entry.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, cacheKey(userID)).Err()
}
