// Package toolset builds the tool set of the process from configuration.
package toolset

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/config"
	"github.com/effective-security/mcpweather/mcp"
	"github.com/effective-security/mcpweather/store"
	"github.com/effective-security/mcpweather/tools"
	"github.com/effective-security/mcpweather/tools/calculator"
	"github.com/effective-security/mcpweather/tools/weatherinfo"
	"github.com/effective-security/mcpweather/weather"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather", "toolset")

// Set is the active tool set
type Set struct {
	Name         string
	Tools        []tools.ITool
	Registry     *tools.Registry
	Instructions string

	closers []func() error
}

// Close releases the resources of the tool set
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// ServerOptions returns the options of the MCP server serving the tool set
func (s *Set) ServerOptions(cfg *config.Config, transportName string) []mcp.ServerOption {
	opts := []mcp.ServerOption{
		mcp.WithInstructions(s.Instructions),
		mcp.WithPaginationLimit(cfg.Server.PaginationLimit),
		mcp.WithTransportName(transportName),
	}
	if cfg.Server.Name != "" {
		opts = append(opts, mcp.WithName(cfg.Server.Name))
	}
	if cfg.Server.Version != "" {
		opts = append(opts, mcp.WithVersion(cfg.Server.Version))
	}
	return opts
}

// Build returns the tool set selected by cfg.Server.Tools
func Build(ctx context.Context, cfg *config.Config) (*Set, error) {
	set := &Set{Name: cfg.Server.Tools}

	var err error
	switch cfg.Server.Tools {
	case config.ToolsCalculator:
		set.Instructions = calculator.Instructions
		set.Tools, err = calculator.Tools()
	case config.ToolsWeather:
		set.Instructions = weatherinfo.Instructions
		err = buildWeather(ctx, cfg, set)
	default:
		return nil, errors.Errorf("unsupported tools: %q", cfg.Server.Tools)
	}
	if err != nil {
		_ = set.Close()
		return nil, err
	}

	set.Registry, err = tools.NewRegistry(set.Tools...)
	if err != nil {
		_ = set.Close()
		return nil, err
	}

	logger.ContextKV(ctx, xlog.INFO, "tools", set.Name, "names", set.Registry.Names())
	return set, nil
}

func buildWeather(ctx context.Context, cfg *config.Config, set *Set) error {
	wc, err := NewWeatherClient(ctx, &cfg.Weather, set)
	if err != nil {
		return err
	}
	set.Tools, err = weatherinfo.Tools(wc, cfg.Weather.ExposeForecastTool)
	return err
}

// NewWeatherClient returns the weather client with the configured grid cache
func NewWeatherClient(ctx context.Context, cfg *config.WeatherConfig, set *Set) (*weather.Client, error) {
	wc := weather.NewClient().
		WithBaseURL(cfg.BaseURL)
	if cfg.RequestTimeoutSec > 0 {
		wc = wc.WithTimeout(time.Duration(cfg.RequestTimeoutSec) * time.Second)
	}

	cache, err := NewGridCache(ctx, &cfg.GridCache, set)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		wc = wc.WithGridCache(cache)
	}
	return wc, nil
}

// NewGridCache returns the configured grid cache, or nil if disabled.
// The Redis client is closed with the tool set.
func NewGridCache(ctx context.Context, cfg *config.GridCacheConfig, set *Set) (weather.GridCache, error) {
	ttl := time.Duration(cfg.TTLSec) * time.Second

	switch cfg.Kind {
	case "", config.GridCacheNone:
		return nil, nil
	case config.GridCacheMemory:
		logger.ContextKV(ctx, xlog.INFO, "grid_cache", cfg.Kind, "ttl", ttl.String())
		return store.NewMemoryGridCache(ttl), nil
	case config.GridCacheRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid redis_url")
		}
		client := redis.NewClient(opts)
		set.closers = append(set.closers, client.Close)

		// cache failures fall through to the network, an unreachable server is not fatal
		if err := client.Ping(ctx).Err(); err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "grid_cache", cfg.Kind, "addr", opts.Addr, "err", err.Error())
		} else {
			logger.ContextKV(ctx, xlog.INFO, "grid_cache", cfg.Kind, "addr", opts.Addr, "ttl", ttl.String())
		}
		return store.NewRedisGridCache(client, cfg.Prefix, ttl), nil
	}
	return nil, errors.Errorf("unsupported grid cache: %q", cfg.Kind)
}
