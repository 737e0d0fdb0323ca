package googleaq

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/yanqian/ai-travel-planner/internal/domain/conditions"
	"github.com/yanqian/ai-travel-planner/internal/infra/upstream"
)

const (
	defaultBaseURL = "https://airquality.googleapis.com/v1"
	maxErrorBody   = 2000
)

// Config configures the Air Quality API.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client looks up air quality, preferring the hourly forecast and falling back to
// current conditions.
type Client struct {
	baseURL string
	apiKey  string
	http    *upstream.Client
	logger  *slog.Logger
}

// NewClient builds the air quality client.
func NewClient(cfg Config, httpClient *upstream.Client, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		logger:  logger.With("component", "airquality.google"),
	}
}

// Lookup never fails: upstream errors come back as an error-tagged payload.
func (c *Client) Lookup(ctx context.Context, lat, lng float64) conditions.AirQualityPayload {
	forecast := c.post(ctx, c.baseURL+"/forecast:lookup", lat, lng)
	if !forecast.Error {
		forecast.Mode = conditions.ModeForecast
		return forecast
	}

	current := c.post(ctx, c.baseURL+"/currentConditions:lookup", lat, lng)
	if !current.Error {
		current.Mode = conditions.ModeCurrent
		return current
	}

	c.logger.Warn("air quality unavailable", "status", forecast.StatusCode, "fallbackStatus", current.StatusCode)
	forecast.Mode = conditions.ModeError
	return forecast
}

type lookupRequest struct {
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

func (c *Client) post(ctx context.Context, endpoint string, lat, lng float64) conditions.AirQualityPayload {
	var body lookupRequest
	body.Location.Latitude = lat
	body.Location.Longitude = lng
	payload, err := json.Marshal(body)
	if err != nil {
		return errorPayload(endpoint, 0, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errorPayload(endpoint, 0, err.Error())
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil && resp.Status == 0 {
		return errorPayload(endpoint, 0, err.Error())
	}
	if !resp.OK() {
		return errorPayload(endpoint, resp.Status, string(resp.Body))
	}

	var out conditions.AirQualityPayload
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return errorPayload(endpoint, resp.Status, "decode response: "+err.Error())
	}
	return out
}

func errorPayload(endpoint string, status int, body string) conditions.AirQualityPayload {
	if utf8.RuneCountInString(body) > maxErrorBody {
		body = string([]rune(body)[:maxErrorBody])
	}
	return conditions.AirQualityPayload{
		Error:      true,
		StatusCode: status,
		Body:       body,
		URL:        endpoint,
	}
}
