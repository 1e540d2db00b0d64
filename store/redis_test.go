package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/effective-security/mcpweather/store"
	"github.com/effective-security/mcpweather/weather"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscon "github.com/testcontainers/testcontainers-go/modules/redis"
)

func Test_RedisGridCache(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	redisContainer, err := rediscon.Run(ctx, "redis:7",
		testcontainers.WithConfigModifier(func(config *container.Config) {
			config.Env = []string{
				"ALLOW_EMPTY_PASSWORD=yes",
			}
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, redisContainer.Terminate(ctx))
	})

	root := fmt.Sprintf("test-%d", time.Now().Unix())

	host, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err)

	options, err := redis.ParseURL(host)
	require.NoError(t, err)

	client := redis.NewClient(options)
	t.Cleanup(func() {
		_ = client.Close()
	})
	require.NoError(t, client.Ping(ctx).Err(), "failed to connect to Redis")

	key := weather.GridKey(weather.Point{Latitude: 37.7749, Longitude: -122.4194})

	t.Run("miss and hit", func(t *testing.T) {
		st := store.NewRedisGridCache(client, root, time.Minute)

		_, ok := st.Get(ctx, key)
		assert.False(t, ok)

		g := grid
		require.NoError(t, st.Put(ctx, key, &g))

		got, ok := st.Get(ctx, key)
		require.True(t, ok)
		assert.Equal(t, grid, *got)

		raw, err := client.Get(ctx, root+"/gridcache/"+key).Result()
		require.NoError(t, err)
		assert.Contains(t, raw, `"grid_id":"MTR"`)

		ttl, err := client.TTL(ctx, root+"/gridcache/"+key).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("shared between instances", func(t *testing.T) {
		other := store.NewRedisGridCache(client, root, time.Minute)
		got, ok := other.Get(ctx, key)
		require.True(t, ok)
		assert.Equal(t, "San Francisco", got.City)

		isolated := store.NewRedisGridCache(client, root+"-other", time.Minute)
		_, ok = isolated.Get(ctx, key)
		assert.False(t, ok)
	})

	t.Run("expires", func(t *testing.T) {
		st := store.NewRedisGridCache(client, root+"-ttl", time.Second)
		g := grid
		require.NoError(t, st.Put(ctx, key, &g))
		assert.Eventually(t, func() bool {
			_, ok := st.Get(ctx, key)
			return !ok
		}, 5*time.Second, 100*time.Millisecond)
	})

	t.Run("corrupted entry is a miss", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, root+"/gridcache/bad", "{", 0).Err())
		st := store.NewRedisGridCache(client, root, 0)
		_, ok := st.Get(ctx, "bad")
		assert.False(t, ok)
	})
}
