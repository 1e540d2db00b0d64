// Package config provides the configuration of the MCP servers.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather", "config")

// Tool sets
const (
	ToolsCalculator = "calculator"
	ToolsWeather    = "weather"
)

// Grid cache kinds
const (
	GridCacheNone   = "none"
	GridCacheMemory = "memory"
	GridCacheRedis  = "redis"
)

// LogLevelEnv overrides the configured log level
const LogLevelEnv = "MCP_LOG_LEVEL"

// Defaults
const (
	DefaultLogLevel          = "INFO"
	DefaultListen            = ":8000"
	DefaultWeatherBaseURL    = "https://api.weather.gov"
	DefaultRequestTimeoutSec = 10
	DefaultGridCacheTTLSec   = 3600
	DefaultGridCachePrefix   = "mcpweather"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config of the server process
type Config struct {
	// LogLevel specifies the global log level:
	// TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR|CRITICAL
	LogLevel string        `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty" comment:"TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR|CRITICAL, overridden by MCP_LOG_LEVEL" validate:"omitempty,oneof=TRACE DEBUG INFO NOTICE WARNING ERROR CRITICAL"`
	Server   ServerConfig  `json:"server" yaml:"server" toml:"server"`
	Weather  WeatherConfig `json:"weather" yaml:"weather" toml:"weather"`
}

// ServerConfig specifies the MCP server
type ServerConfig struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	// Tools specifies the tool set: calculator|weather
	Tools string `json:"tools,omitempty" yaml:"tools,omitempty" toml:"tools,omitempty" comment:"calculator|weather" validate:"omitempty,oneof=calculator weather"`
	// Listen specifies the address of the SSE and HTTP server
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty" toml:"listen,omitempty" comment:"address of the SSE and HTTP server"`
	// PaginationLimit specifies the page size of tools/list, 0 disables pagination
	PaginationLimit int `json:"pagination_limit,omitempty" yaml:"pagination_limit,omitempty" toml:"pagination_limit,omitempty" comment:"page size of tools/list, 0 disables pagination" validate:"gte=0"`
}

// WeatherConfig specifies the weather client
type WeatherConfig struct {
	BaseURL           string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url,omitempty" validate:"omitempty,url"`
	RequestTimeoutSec int    `json:"request_timeout_sec,omitempty" yaml:"request_timeout_sec,omitempty" toml:"request_timeout_sec,omitempty" comment:"timeout of each upstream call" validate:"gte=0"`
	// ExposeForecastTool registers get_weather_forecast
	ExposeForecastTool bool            `json:"expose_forecast_tool,omitempty" yaml:"expose_forecast_tool,omitempty" toml:"expose_forecast_tool,omitempty" comment:"register get_weather_forecast"`
	GridCache          GridCacheConfig `json:"grid_cache" yaml:"grid_cache" toml:"grid_cache"`
}

// GridCacheConfig specifies the cache of resolved forecast grids
type GridCacheConfig struct {
	// Kind specifies the cache backend: none|memory|redis
	Kind     string `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty" comment:"none|memory|redis" validate:"omitempty,oneof=none memory redis"`
	TTLSec   int    `json:"ttl_sec,omitempty" yaml:"ttl_sec,omitempty" toml:"ttl_sec,omitempty" comment:"lifetime of a cached grid" validate:"gte=0"`
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" toml:"redis_url,omitempty" validate:"required_if=Kind redis"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix,omitempty"`
}

// Default returns the configuration with defaults
func Default() *Config {
	cfg := new(Config)
	cfg.applyDefaults()
	return cfg
}

// Load returns the configuration from file, or defaults if file is empty
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.WithMessagef(err, "failed to load config %s", file)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns error if the configuration is invalid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.LogLevel = strings.ToUpper(values.StringsCoalesce(c.LogLevel, DefaultLogLevel))
	c.Server.Tools = values.StringsCoalesce(c.Server.Tools, ToolsCalculator)
	c.Server.Listen = values.StringsCoalesce(c.Server.Listen, DefaultListen)

	c.Weather.BaseURL = strings.TrimSuffix(values.StringsCoalesce(c.Weather.BaseURL, DefaultWeatherBaseURL), "/")
	c.Weather.RequestTimeoutSec = values.NumbersCoalesce(c.Weather.RequestTimeoutSec, DefaultRequestTimeoutSec)

	gc := &c.Weather.GridCache
	gc.Kind = values.StringsCoalesce(gc.Kind, GridCacheNone)
	gc.TTLSec = values.NumbersCoalesce(gc.TTLSec, DefaultGridCacheTTLSec)
	gc.Prefix = values.StringsCoalesce(gc.Prefix, DefaultGridCachePrefix)
}

// ParseLogLevel returns the xlog level by name
func ParseLogLevel(level string) (xlog.LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return xlog.TRACE, nil
	case "DEBUG":
		return xlog.DEBUG, nil
	case "INFO", "":
		return xlog.INFO, nil
	case "NOTICE":
		return xlog.NOTICE, nil
	case "WARNING", "WARN":
		return xlog.WARNING, nil
	case "ERROR":
		return xlog.ERROR, nil
	case "CRITICAL":
		return xlog.CRITICAL, nil
	}
	return xlog.INFO, errors.Errorf("unsupported log level: %q", level)
}

// ConfigureLogging installs the stderr formatter, and sets the global level
// from MCP_LOG_LEVEL, or the configured level.
// Logs never go to stdout, which carries the stdio transport.
func ConfigureLogging(level string) error {
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))

	lvl, err := ParseLogLevel(values.StringsCoalesce(os.Getenv(LogLevelEnv), level))
	if err != nil {
		return err
	}
	xlog.SetGlobalLogLevel(lvl)
	logger.KV(xlog.DEBUG, "log_level", lvl.String())
	return nil
}
