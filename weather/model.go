package weather

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Point is a caller supplied location, the range is not validated
type Point struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" toml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude" toml:"longitude"`
}

// String returns the "lat,lon" form used in the points URL
func (p Point) String() string {
	return strconv.FormatFloat(p.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', -1, 64)
}

// GridReference is the forecast grid cell of a Point
type GridReference struct {
	ForecastURL       string `json:"forecast_url" yaml:"forecast_url" toml:"forecast_url"`
	ForecastHourlyURL string `json:"forecast_hourly_url" yaml:"forecast_hourly_url" toml:"forecast_hourly_url"`
	GridID            string `json:"grid_id" yaml:"grid_id" toml:"grid_id"`
	GridX             int    `json:"grid_x" yaml:"grid_x" toml:"grid_x"`
	GridY             int    `json:"grid_y" yaml:"grid_y" toml:"grid_y"`
	TimeZone          string `json:"time_zone" yaml:"time_zone" toml:"time_zone"`
	City              string `json:"city" yaml:"city" toml:"city"`
	State             string `json:"state" yaml:"state" toml:"state"`
}

// ForecastPeriod is one time window of a forecast
type ForecastPeriod struct {
	Number           int    `json:"number" yaml:"number" toml:"number"`
	Name             string `json:"name" yaml:"name" toml:"name"`
	Temperature      int    `json:"temperature" yaml:"temperature" toml:"temperature"`
	TemperatureUnit  string `json:"temperature_unit" yaml:"temperature_unit" toml:"temperature_unit"`
	WindSpeed        string `json:"wind_speed" yaml:"wind_speed" toml:"wind_speed"`
	WindDirection    string `json:"wind_direction" yaml:"wind_direction" toml:"wind_direction"`
	ShortForecast    string `json:"short_forecast" yaml:"short_forecast" toml:"short_forecast"`
	DetailedForecast string `json:"detailed_forecast" yaml:"detailed_forecast" toml:"detailed_forecast"`
	StartTime        string `json:"start_time" yaml:"start_time" toml:"start_time"`
	EndTime          string `json:"end_time" yaml:"end_time" toml:"end_time"`
	// TemperatureCelsius is set once when the forecast is decoded
	TemperatureCelsius *float64 `json:"temperature_celsius,omitempty" yaml:"temperature_celsius,omitempty" toml:"temperature_celsius,omitempty"`
}

// Celsius returns the temperature in Celsius computed on decode.
// A period that was not decoded, such as one built by hand, is converted
// on every read and is not modified; the conversion depends only on
// Temperature and TemperatureUnit, so every read returns the same value.
func (p *ForecastPeriod) Celsius() float64 {
	if p.TemperatureCelsius != nil {
		return *p.TemperatureCelsius
	}
	return Celsius(float64(p.Temperature), p.TemperatureUnit)
}

// Forecast is the ordered list of forecast periods
type Forecast struct {
	UpdateTime *string          `json:"update_time,omitempty" yaml:"update_time,omitempty" toml:"update_time,omitempty"`
	Periods    []ForecastPeriod `json:"periods" yaml:"periods" toml:"periods"`
}

// wire models of the api.weather.gov responses,
// pointers distinguish missing fields from zero values

var validate = validator.New(validator.WithRequiredStructEnabled())

type pointsResponse struct {
	Properties *pointProperties `json:"properties" validate:"required"`
}

type pointProperties struct {
	Forecast         *string           `json:"forecast" validate:"required"`
	ForecastHourly   *string           `json:"forecastHourly" validate:"required"`
	RelativeLocation *relativeLocation `json:"relativeLocation" validate:"required"`
	GridID           *string           `json:"gridId" validate:"required"`
	GridX            *int              `json:"gridX" validate:"required"`
	GridY            *int              `json:"gridY" validate:"required"`
	TimeZone         *string           `json:"timeZone" validate:"required"`
}

type relativeLocation struct {
	Properties *locationProperties `json:"properties" validate:"required"`
}

type locationProperties struct {
	City  *string `json:"city" validate:"required"`
	State *string `json:"state" validate:"required"`
}

func (r *pointsResponse) toGridReference() (*GridReference, error) {
	if err := validate.Struct(r); err != nil {
		return nil, errors.Wrap(err, "invalid points response")
	}
	p := r.Properties
	return &GridReference{
		ForecastURL:       *p.Forecast,
		ForecastHourlyURL: *p.ForecastHourly,
		GridID:            *p.GridID,
		GridX:             *p.GridX,
		GridY:             *p.GridY,
		TimeZone:          *p.TimeZone,
		City:              *p.RelativeLocation.Properties.City,
		State:             *p.RelativeLocation.Properties.State,
	}, nil
}

type forecastResponse struct {
	Properties *forecastProperties `json:"properties" validate:"required"`
}

type forecastProperties struct {
	UpdateTime *string          `json:"updateTime"`
	Periods    []forecastPeriod `json:"periods" validate:"required,dive"`
}

type forecastPeriod struct {
	Number           *int    `json:"number" validate:"required"`
	Name             *string `json:"name" validate:"required"`
	Temperature      *int    `json:"temperature" validate:"required"`
	TemperatureUnit  *string `json:"temperatureUnit" validate:"required"`
	WindSpeed        *string `json:"windSpeed" validate:"required"`
	WindDirection    *string `json:"windDirection" validate:"required"`
	ShortForecast    *string `json:"shortForecast" validate:"required"`
	DetailedForecast *string `json:"detailedForecast" validate:"required"`
	StartTime        *string `json:"startTime" validate:"required"`
	EndTime          *string `json:"endTime" validate:"required"`
}

// toForecast validates the response and computes Celsius for every period
func (r *forecastResponse) toForecast() (*Forecast, error) {
	if err := validate.Struct(r); err != nil {
		return nil, errors.Wrap(err, "invalid forecast response")
	}

	f := &Forecast{
		UpdateTime: r.Properties.UpdateTime,
		Periods:    make([]ForecastPeriod, 0, len(r.Properties.Periods)),
	}
	for _, wp := range r.Properties.Periods {
		celsius := Celsius(float64(*wp.Temperature), *wp.TemperatureUnit)
		f.Periods = append(f.Periods, ForecastPeriod{
			Number:             *wp.Number,
			Name:               *wp.Name,
			Temperature:        *wp.Temperature,
			TemperatureUnit:    *wp.TemperatureUnit,
			WindSpeed:          *wp.WindSpeed,
			WindDirection:      *wp.WindDirection,
			ShortForecast:      *wp.ShortForecast,
			DetailedForecast:   *wp.DetailedForecast,
			StartTime:          *wp.StartTime,
			EndTime:            *wp.EndTime,
			TemperatureCelsius: &celsius,
		})
	}
	return f, nil
}
