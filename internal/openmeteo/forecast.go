package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/lox/clearskies/internal/forecast"
	"github.com/lox/clearskies/internal/models"
)

const (
	currentFields  = "temperature_2m,relative_humidity_2m,apparent_temperature,is_day,precipitation,weather_code,surface_pressure,wind_speed_10m,wind_direction_10m,wind_gusts_10m"
	hourlyFields   = "temperature_2m,precipitation_probability,weather_code,visibility"
	dailyFields    = "weather_code,temperature_2m_max,temperature_2m_min,sunrise,sunset,uv_index_max,precipitation_sum,precipitation_probability_max"
	minutelyFields = "precipitation"
)

// ForecastQuery returns the forecast request parameters. One day of history
// is requested so that yesterday can be compared with today.
func ForecastQuery(lat, lon float64, unit forecast.Unit) url.Values {
	q := url.Values{}
	q.Set("latitude", formatCoord(lat))
	q.Set("longitude", formatCoord(lon))
	q.Set("current", currentFields)
	q.Set("hourly", hourlyFields)
	q.Set("daily", dailyFields)
	q.Set("minutely_15", minutelyFields)
	q.Set("temperature_unit", unit.QueryValue())
	q.Set("wind_speed_unit", "mph")
	q.Set("precipitation_unit", "inch")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "7")
	q.Set("past_days", "1")
	return q
}

// FetchForecast returns the raw forecast JSON for a coordinate.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64, unit forecast.Unit) ([]byte, error) {
	return c.get(ctx, "forecast", withQuery(c.cfg.ForecastURL, ForecastQuery(lat, lon, unit)))
}

// DecodeForecast parses a forecast body fetched by FetchForecast.
func DecodeForecast(body []byte) (*models.Payload, error) {
	var p models.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	return &p, nil
}
