package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ CatalogCache = (*RedisCache)(nil)

// RedisCache shares listings across processes. Only public price data is stored.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "listing"}
}

// Ping checks the connection to the Redis server.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) key(id string) string {
	return fmt.Sprintf("%s:%s", c.prefix, id)
}

// Get implements CatalogCache.
func (c *RedisCache) Get(ctx context.Context, ids []string) (map[string]Listing, []string, error) {
	if len(ids) == 0 {
		return map[string]Listing{}, nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("mget listings: %w", err)
	}
	hits := make(map[string]Listing, len(ids))
	var missing []string
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var l Listing
		if err := json.Unmarshal([]byte(s), &l); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		hits[ids[i]] = l
	}
	return hits, missing, nil
}

// Put implements CatalogCache.
func (c *RedisCache) Put(ctx context.Context, listings map[string]Listing) error {
	pipe := c.client.Pipeline()
	for id, l := range listings {
		body, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("marshal listing %s: %w", id, err)
		}
		pipe.Set(ctx, c.key(id), body, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store listings: %w", err)
	}
	return nil
}
