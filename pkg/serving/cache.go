package serving

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultCachePrefix = "tbdelay:prediction:"

// RedisCache keeps recent probabilities in Redis so identical submissions
// against the same artifact skip the pipeline.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: DefaultCachePrefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (float64, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	prob, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return prob, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, probability float64) error {
	return c.client.Set(ctx, c.prefix+key, strconv.FormatFloat(probability, 'g', -1, 64), c.ttl).Err()
}
