package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// PageCache stores successful extractions by URL.
// Implementations must be safe for concurrent use.
type PageCache interface {
	Get(ctx context.Context, pageURL string) (*Extraction, bool, error)
	Set(ctx context.Context, pageURL string, ex *Extraction) error
}

const pageKeyPrefix = "brandmem:page:"

// RedisPageCache keeps extractions in Redis as JSON with a TTL.
type RedisPageCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ PageCache = (*RedisPageCache)(nil)

// NewRedisPageCache creates a cache on client. A ttl of zero means no expiry.
func NewRedisPageCache(client redis.UniversalClient, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{client: client, ttl: ttl}
}

// Get returns the cached extraction for pageURL, if any.
func (c *RedisPageCache) Get(ctx context.Context, pageURL string) (*Extraction, bool, error) {
	data, err := c.client.Get(ctx, pageKeyPrefix+pageURL).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var ex Extraction
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, false, err
	}
	return &ex, true, nil
}

// Set stores ex under pageURL.
func (c *RedisPageCache) Set(ctx context.Context, pageURL string, ex *Extraction) error {
	data, err := json.Marshal(ex)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pageKeyPrefix+pageURL, data, c.ttl).Err()
}
