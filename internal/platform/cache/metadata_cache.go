package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const activeMetadataKeyPrefix = "metadata:active:"

// ErrCacheMiss means the set for a type is not cached and must be loaded.
var ErrCacheMiss = errors.New("cache miss")

// MetadataKeyCache stores the active metadata keys of each type as a Redis set.
type MetadataKeyCache struct {
	redis   *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

func NewMetadataKeyCache(rdb *redis.Client, ttl, timeout time.Duration) *MetadataKeyCache {
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	return &MetadataKeyCache{redis: rdb, ttl: ttl, timeout: timeout}
}

func activeKey(typ string) string {
	return activeMetadataKeyPrefix + typ
}

// IsActive checks membership. It returns ErrCacheMiss when the set has not been loaded.
func (c *MetadataKeyCache) IsActive(ctx context.Context, typ, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var exists *redis.IntCmd
	var member *redis.BoolCmd
	_, err := c.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		exists = p.Exists(ctx, activeKey(typ))
		member = p.SIsMember(ctx, activeKey(typ), key)
		return nil
	})
	if err != nil {
		return false, err
	}
	if exists.Val() == 0 {
		return false, ErrCacheMiss
	}
	return member.Val(), nil
}

// Fill replaces the cached set for typ. An empty key list is not cached.
func (c *MetadataKeyCache) Fill(ctx context.Context, typ string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	_, err := c.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, activeKey(typ))
		p.SAdd(ctx, activeKey(typ), members...)
		if c.ttl > 0 {
			p.Expire(ctx, activeKey(typ), c.ttl)
		}
		return nil
	})
	return err
}

func (c *MetadataKeyCache) Invalidate(ctx context.Context, typ string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.redis.Del(ctx, activeKey(typ)).Err()
}
