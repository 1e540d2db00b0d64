package config_test

import (
	"testing"

	"github.com/effective-security/mcpweather/config"
	"github.com/effective-security/xlog"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	exp := &config.Config{
		LogLevel: "INFO",
		Server: config.ServerConfig{
			Tools:  config.ToolsCalculator,
			Listen: ":8000",
		},
		Weather: config.WeatherConfig{
			BaseURL:           "https://api.weather.gov",
			RequestTimeoutSec: 10,
			GridCache: config.GridCacheConfig{
				Kind:   config.GridCacheNone,
				TTLSec: 3600,
				Prefix: "mcpweather",
			},
		},
	}
	if diff := cmp.Diff(exp, cfg); diff != "" {
		t.Errorf("Default() mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, cfg.Validate())

	loaded, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load("testdata/weather.yaml")
	require.NoError(t, err)

	exp := &config.Config{
		LogLevel: "DEBUG",
		Server: config.ServerConfig{
			Name:            "weather",
			Version:         "1.0.0",
			Tools:           config.ToolsWeather,
			Listen:          "127.0.0.1:9000",
			PaginationLimit: 10,
		},
		Weather: config.WeatherConfig{
			BaseURL:            "http://localhost:8080",
			RequestTimeoutSec:  5,
			ExposeForecastTool: true,
			GridCache: config.GridCacheConfig{
				Kind:     config.GridCacheRedis,
				TTLSec:   60,
				RedisURL: "redis://localhost:6379/0",
				Prefix:   "mcpweather",
			},
		},
	}
	if diff := cmp.Diff(exp, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	cfg, err = config.Load("testdata/minimal.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.ToolsCalculator, cfg.Server.Tools)
	assert.Equal(t, config.GridCacheNone, cfg.Weather.GridCache.Kind)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load("testdata/non-existent.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config testdata/non-existent.yaml")

	_, err = config.Load("testdata/invalid.yaml")
	require.Error(t, err)

	_, err = config.Load("testdata/invalid_tools.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
	assert.Contains(t, err.Error(), "'Tools' failed on the 'oneof' tag")

	_, err = config.Load("testdata/invalid_cache.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'RedisURL' failed on the 'required_if' tag")
}

func TestValidate(t *testing.T) {
	tcases := []struct {
		name   string
		mutate func(*config.Config)
		expErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "log level", mutate: func(c *config.Config) { c.LogLevel = "VERBOSE" }, expErr: "'LogLevel' failed on the 'oneof' tag"},
		{name: "pagination", mutate: func(c *config.Config) { c.Server.PaginationLimit = -1 }, expErr: "'PaginationLimit' failed on the 'gte' tag"},
		{name: "base url", mutate: func(c *config.Config) { c.Weather.BaseURL = "not a url" }, expErr: "'BaseURL' failed on the 'url' tag"},
		{name: "cache kind", mutate: func(c *config.Config) { c.Weather.GridCache.Kind = "memcached" }, expErr: "'Kind' failed on the 'oneof' tag"},
		{name: "memory cache", mutate: func(c *config.Config) { c.Weather.GridCache.Kind = config.GridCacheMemory }},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.expErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tcases := map[string]xlog.LogLevel{
		"TRACE":    xlog.TRACE,
		"debug":    xlog.DEBUG,
		"":         xlog.INFO,
		"Info":     xlog.INFO,
		"NOTICE":   xlog.NOTICE,
		"warning":  xlog.WARNING,
		"WARN":     xlog.WARNING,
		"ERROR":    xlog.ERROR,
		"CRITICAL": xlog.CRITICAL,
	}
	for name, exp := range tcases {
		lvl, err := config.ParseLogLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, exp, lvl, name)
	}

	_, err := config.ParseLogLevel("LOUD")
	assert.EqualError(t, err, `unsupported log level: "LOUD"`)
}

func TestConfigureLogging(t *testing.T) {
	t.Setenv(config.LogLevelEnv, "")
	require.NoError(t, config.ConfigureLogging("ERROR"))

	t.Setenv(config.LogLevelEnv, "DEBUG")
	require.NoError(t, config.ConfigureLogging("ERROR"))

	t.Setenv(config.LogLevelEnv, "LOUD")
	assert.EqualError(t, config.ConfigureLogging("INFO"), `unsupported log level: "LOUD"`)

	t.Setenv(config.LogLevelEnv, "")
	assert.Error(t, config.ConfigureLogging("LOUD"))
	require.NoError(t, config.ConfigureLogging("INFO"))
}
