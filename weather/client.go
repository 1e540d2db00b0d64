package weather

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather", "weather")

const (
	// DefaultBaseURL is the National Weather Service API
	DefaultBaseURL = "https://api.weather.gov"
	// UserAgent is sent with every request, the API rejects anonymous clients
	UserAgent = "weather-app/1.0"
	// AcceptGeoJSON is the Accept header value
	AcceptGeoJSON = "application/geo+json"
	// DefaultTimeout is applied to each outbound call
	DefaultTimeout = 10 * time.Second
	// FallbackMessage is returned by Describe when the forecast can not be retrieved
	FallbackMessage = "Failed to get weather information"

	maxResponseSize = 8 * 1024 * 1024

	stagePoints   = "points"
	stageForecast = "forecast"
)

// ErrUpstream marks failures of the weather API:
// network errors, timeouts, non-2xx status or unexpected response shape
var ErrUpstream = errors.New("weather upstream error")

// Client is the api.weather.gov client.
// It has no mutable state after construction and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	cache      GridCache
}

// NewClient returns a client with default settings
func NewClient() *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
	}
}

func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

// WithTimeout sets the timeout of each outbound call, zero disables it
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// WithGridCache enables caching of grid references,
// by default every lookup resolves the grid
func (c *Client) WithGridCache(cache GridCache) *Client {
	c.cache = cache
	return c
}

// ResolveGrid returns the forecast grid of the point
func (c *Client) ResolveGrid(ctx context.Context, p Point) (grid *GridReference, err error) {
	var key string
	if c.cache != nil {
		key = GridKey(p)
		if cached, ok := c.cache.Get(ctx, key); ok {
			logger.ContextKV(ctx, xlog.DEBUG, "point", p.String(), "grid", cached.GridID, "cache", "hit")
			return cached, nil
		}
	}

	started := time.Now()
	defer func() {
		observe(stagePoints, started, err)
	}()

	var resp pointsResponse
	if err = c.get(ctx, c.baseURL+"/points/"+p.String(), &resp); err != nil {
		return nil, errors.WithMessage(err, "resolve grid")
	}
	grid, err = resp.toGridReference()
	if err != nil {
		return nil, errors.Mark(errors.WithMessage(err, "resolve grid"), ErrUpstream)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"point", p.String(),
		"grid", grid.GridID,
		"x", grid.GridX,
		"y", grid.GridY,
	)

	if c.cache != nil {
		if perr := c.cache.Put(ctx, key, grid); perr != nil {
			logger.ContextKV(ctx, xlog.WARNING, "reason", "grid_cache_put", "key", key, "err", perr.Error())
		}
	}
	return grid, nil
}

// FetchForecast resolves the grid of the point, and returns its forecast.
// Celsius temperature is computed for every period.
func (c *Client) FetchForecast(ctx context.Context, p Point) (*Forecast, error) {
	grid, err := c.ResolveGrid(ctx, p)
	if err != nil {
		return nil, err
	}
	return c.FetchGridForecast(ctx, grid)
}

// FetchGridForecast returns the forecast of the resolved grid
func (c *Client) FetchGridForecast(ctx context.Context, grid *GridReference) (forecast *Forecast, err error) {
	started := time.Now()
	defer func() {
		observe(stageForecast, started, err)
	}()

	var resp forecastResponse
	if err = c.get(ctx, grid.ForecastURL, &resp); err != nil {
		return nil, errors.WithMessage(err, "fetch forecast")
	}
	forecast, err = resp.toForecast()
	if err != nil {
		return nil, errors.Mark(errors.WithMessage(err, "fetch forecast"), ErrUpstream)
	}
	return forecast, nil
}

// Describe returns the human readable forecast report of the point,
// or FallbackMessage if the forecast could not be retrieved.
// Use FetchForecast to get the error.
func (c *Client) Describe(ctx context.Context, p Point) string {
	forecast, err := c.FetchForecast(ctx, p)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "point", p.String(), "err", err.Error())
		return FallbackMessage
	}
	report, err := Render(forecast)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "point", p.String(), "reason", "render", "err", err.Error())
		return FallbackMessage
	}
	return report
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "create request"), ErrUpstream)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", AcceptGeoJSON)

	r, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "send request"), ErrUpstream)
	}
	defer func() {
		_ = r.Body.Close()
	}()

	if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
		return errors.Mark(statusError(r), ErrUpstream)
	}

	if err = json.NewDecoder(io.LimitReader(r.Body, maxResponseSize)).Decode(out); err != nil {
		return errors.Mark(errors.Wrap(err, "decode response"), ErrUpstream)
	}
	return nil
}

// problem is the application/problem+json error body of the API
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func statusError(r *http.Response) error {
	var p problem
	body, _ := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if json.Unmarshal(body, &p) == nil && p.Detail != "" {
		return errors.Errorf("API returned unexpected status code: %d: %s", r.StatusCode, p.Detail)
	}
	return errors.Errorf("API returned unexpected status code: %d", r.StatusCode)
}

func observe(stage string, started time.Time, err error) {
	metricskey.PerfUpstreamCall.MeasureSince(started, stage)
	if err != nil {
		metricskey.StatsUpstreamCallsFailed.IncrCounter(1, stage)
	} else {
		metricskey.StatsUpstreamCallsSucceeded.IncrCounter(1, stage)
	}
}
