// Package weatherinfo provides the weather tools backed by the api.weather.gov client.
package weatherinfo

import (
	"context"

	"github.com/effective-security/mcpweather/tools"
	"github.com/effective-security/mcpweather/weather"
)

//go:generate mockgen -source=weatherinfo.go -destination=../../mocks/mockweather/forecaster_mock.gen.go -package mockweather

const (
	// InfoToolName returns the human readable report
	InfoToolName = "get_weather_info"
	// ForecastToolName returns the structured forecast
	ForecastToolName = "get_weather_forecast"

	// Instructions are returned to the client on initialize
	Instructions = "A simple weather information provider"
)

// Forecaster is implemented by weather.Client
type Forecaster interface {
	// Describe returns the human readable report, or a fallback message on failure
	Describe(ctx context.Context, p weather.Point) string
	// FetchForecast returns the forecast of the point
	FetchForecast(ctx context.Context, p weather.Point) (*weather.Forecast, error)
}

var _ Forecaster = (*weather.Client)(nil)

// Request is the arguments of the weather tools
type Request struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" jsonschema:"description=the latitude of the location"`
	Longitude float64 `json:"longitude" yaml:"longitude" jsonschema:"description=the longitude of the location"`
}

// Point returns the location of the request
func (r *Request) Point() weather.Point {
	return weather.Point{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Tools returns get_weather_info, and get_weather_forecast if exposeForecast is set.
// get_weather_info never fails on upstream errors, it returns weather.FallbackMessage instead;
// get_weather_forecast surfaces them as handler errors.
func Tools(f Forecaster, exposeForecast bool) ([]tools.ITool, error) {
	info, err := tools.New(InfoToolName, "Get the weather information of a specific location",
		func(ctx context.Context, req *Request) (string, error) {
			return f.Describe(ctx, req.Point()), nil
		})
	if err != nil {
		return nil, err
	}
	list := []tools.ITool{info}

	if exposeForecast {
		forecast, err := tools.New(ForecastToolName, "Get the structured weather forecast of a specific location, temperatures include Celsius",
			func(ctx context.Context, req *Request) (*weather.Forecast, error) {
				return f.FetchForecast(ctx, req.Point())
			})
		if err != nil {
			return nil, err
		}
		list = append(list, forecast)
	}

	return list, nil
}
