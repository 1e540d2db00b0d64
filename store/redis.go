package store

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/weather"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps resolved grid references shared between server instances.
// The keys namespace is organized as follows:
// - `/<prefix>/gridcache/<lat,lon>` for storing the JSON encoded weather.GridReference

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisGridCache returns a grid cache backed by Redis,
// entries expire after ttl, zero ttl keeps them until evicted
func NewRedisGridCache(client *redis.Client, prefix string, ttl time.Duration) weather.GridCache {
	return &redisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (m *redisStore) getRedisGridKey(key string) string {
	return path.Join(m.prefix, "gridcache", key)
}

func (m *redisStore) Get(ctx context.Context, key string) (*weather.GridReference, bool) {
	data, err := m.client.Get(ctx, m.getRedisGridKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "GetRedisGrid", "key", key, "err", err.Error())
		}
		observe(ctx, BackendRedis, key, false)
		return nil, false
	}

	grid := new(weather.GridReference)
	if err = json.Unmarshal([]byte(data), grid); err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal grid", "key", key, "err", err.Error())
		observe(ctx, BackendRedis, key, false)
		return nil, false
	}

	observe(ctx, BackendRedis, key, true)
	return grid, true
}

func (m *redisStore) Put(ctx context.Context, key string, grid *weather.GridReference) error {
	data, err := json.Marshal(grid)
	if err != nil {
		return errors.Wrap(err, "failed to marshal grid")
	}
	ttl := m.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err = m.client.Set(ctx, m.getRedisGridKey(key), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to store grid in Redis")
	}
	return nil
}
