package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/effective-security/mcpweather/store"
	"github.com/effective-security/mcpweather/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var grid = weather.GridReference{
	ForecastURL:       "https://api.weather.gov/gridpoints/MTR/85,105/forecast",
	ForecastHourlyURL: "https://api.weather.gov/gridpoints/MTR/85,105/forecast/hourly",
	GridID:            "MTR",
	GridX:             85,
	GridY:             105,
	TimeZone:          "America/Los_Angeles",
	City:              "San Francisco",
	State:             "CA",
}

func Test_MemoryGridCache(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryGridCache(0)

	_, ok := st.Get(ctx, "37.7749,-122.4194")
	assert.False(t, ok)

	g := grid
	require.NoError(t, st.Put(ctx, "37.7749,-122.4194", &g))

	// the cache keeps a copy
	g.GridID = "changed"
	got, ok := st.Get(ctx, "37.7749,-122.4194")
	require.True(t, ok)
	assert.Equal(t, grid, *got)

	got.City = "changed"
	got2, ok := st.Get(ctx, "37.7749,-122.4194")
	require.True(t, ok)
	assert.Equal(t, "San Francisco", got2.City)

	_, ok = st.Get(ctx, "1.0000,1.0000")
	assert.False(t, ok)
}

func Test_MemoryGridCacheTTL(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryGridCache(50 * time.Millisecond)

	g := grid
	require.NoError(t, st.Put(ctx, "k", &g))
	_, ok := st.Get(ctx, "k")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := st.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)

	// refresh after expiry
	require.NoError(t, st.Put(ctx, "k", &g))
	_, ok = st.Get(ctx, "k")
	assert.True(t, ok)
}

func Test_MemoryGridCacheConcurrent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryGridCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("%d,%d", i, j%10)
				g := grid
				g.GridX = j
				assert.NoError(t, st.Put(ctx, key, &g))
				_, _ = st.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	got, ok := st.Get(ctx, "3,9")
	require.True(t, ok)
	assert.Equal(t, 99, got.GridX)
}
