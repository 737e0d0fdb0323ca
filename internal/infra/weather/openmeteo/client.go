package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yanqian/ai-travel-planner/internal/domain/conditions"
	"github.com/yanqian/ai-travel-planner/internal/infra/upstream"
)

const (
	defaultBaseURL = "https://api.open-meteo.com/v1/forecast"
	maxWindowHours = 240
	maxForecastDay = 10
)

var (
	hourlyVariables = []string{
		"temperature_2m",
		"apparent_temperature",
		"precipitation_probability",
		"wind_speed_10m",
		"relative_humidity_2m",
	}
	dailyVariables = []string{
		"temperature_2m_max",
		"temperature_2m_min",
		"precipitation_probability_max",
		"wind_speed_10m_max",
	}
)

// Config controls the forecast request.
type Config struct {
	BaseURL     string
	WindowHours int
}

// Client fetches hourly forecasts from open-meteo.
type Client struct {
	baseURL string
	hours   int
	days    int
	http    *upstream.Client
}

// NewClient builds a forecast client. WindowHours is clamped to 1..240.
func NewClient(cfg Config, httpClient *upstream.Client) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	hours := cfg.WindowHours
	if hours <= 0 {
		hours = maxWindowHours
	}
	hours = min(max(hours, 1), maxWindowHours)
	days := min(max((hours+23)/24, 1), maxForecastDay)
	return &Client{baseURL: baseURL, hours: hours, days: days, http: httpClient}
}

// HourlyForecast returns the forecast window around lat/lng in the location's own timezone.
func (c *Client) HourlyForecast(ctx context.Context, lat, lng float64) (*conditions.HourlyForecast, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	values.Set("hourly", strings.Join(hourlyVariables, ","))
	values.Set("daily", strings.Join(dailyVariables, ","))
	values.Set("forecast_days", strconv.Itoa(c.days))
	values.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("request forecast: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("forecast request failed: status=%d", resp.Status)
	}

	var forecast conditions.HourlyForecast
	if err := json.Unmarshal(resp.Body, &forecast); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	forecast.WindowHours = c.hours
	forecast.WindowDays = c.days
	return &forecast, nil
}
