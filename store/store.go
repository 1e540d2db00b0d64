// Package store provides weather.GridCache backends.
package store

import (
	"context"
	"time"

	"github.com/effective-security/mcpweather/pkg/metricskey"
	"github.com/effective-security/mcpweather/weather"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather", "store")

const (
	// BackendMemory is the metrics tag of the in-process cache
	BackendMemory = "memory"
	// BackendRedis is the metrics tag of the Redis cache
	BackendRedis = "redis"
)

var (
	_ weather.GridCache = (*inMemory)(nil)
	_ weather.GridCache = (*redisStore)(nil)
)

func observe(ctx context.Context, backend, key string, hit bool) {
	if hit {
		metricskey.StatsGridCacheHits.IncrCounter(1, backend)
	} else {
		metricskey.StatsGridCacheMisses.IncrCounter(1, backend)
	}
	logger.ContextKV(ctx, xlog.TRACE, "backend", backend, "key", key, "hit", hit)
}

func expiresAt(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
