package agent

import (
	"context"
	"errors"

	"github.com/yanqian/ai-travel-planner/internal/domain/conditions"
)

// Tool names exposed to the language model.
const (
	ToolSuggestAttractions = "suggest_attractions"
	ToolCityLatLng         = "city_latlng"
	ToolPlaceAddress       = "place_address"
	ToolWeather            = "weather"
	ToolAirQuality         = "air_quality"
)

// ErrNoResults is returned by a Geocoder when the search matched nothing.
var ErrNoResults = errors.New("no places found")

// Tools is the contract the agent loop calls into.
type Tools interface {
	SuggestAttractions(ctx context.Context, city string) ([]string, error)
	CityLatLng(ctx context.Context, city string) (CityLocation, error)
	PlaceAddress(ctx context.Context, city, placeName string) (PlaceLocation, error)
	Weather(ctx context.Context, lat, lng float64, targetDate string) (WeatherReport, error)
	AirQuality(ctx context.Context, lat, lng float64) (AirQualityReport, error)
}

// CityLocation is the city_latlng result. Lat/Lng are null when the lookup failed.
type CityLocation struct {
	City     string   `json:"city"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Timezone string   `json:"timezone,omitempty"`
}

// PlaceLocation is the place_address result.
type PlaceLocation struct {
	PlaceName        string   `json:"place_name"`
	FormattedAddress string   `json:"formatted_address"`
	Lat              *float64 `json:"lat"`
	Lng              *float64 `json:"lng"`
}

// WeatherReport is the weather tool result.
type WeatherReport struct {
	Available   bool                 `json:"available"`
	Timezone    string               `json:"timezone"`
	WeatherLine string               `json:"weather_line"`
	Umbrella    string               `json:"umbrella"`
	Clothes     string               `json:"clothes"`
	Risk        conditions.RiskScore `json:"risk"`
}

// AirQualityReport is the air_quality tool result.
type AirQualityReport struct {
	Raw  conditions.AirQualityPayload    `json:"raw"`
	Mask conditions.AirQualityAssessment `json:"mask"`
	Risk conditions.RiskScore            `json:"risk"`
}

// Place is a resolved text-search hit.
type Place struct {
	Name             string
	FormattedAddress string
	PlaceID          string
	Lat              float64
	Lng              float64
	Timezone         string
}

// Geocoder resolves free text to the best matching place.
type Geocoder interface {
	SearchText(ctx context.Context, query string) (Place, error)
}

// ForecastClient fetches the hourly forecast window around a point.
type ForecastClient interface {
	HourlyForecast(ctx context.Context, lat, lng float64) (*conditions.HourlyForecast, error)
}

// AirQualityClient looks up air quality; failures come back as an error-tagged payload.
type AirQualityClient interface {
	Lookup(ctx context.Context, lat, lng float64) conditions.AirQualityPayload
}

// AttractionSuggester proposes attractions; it always returns a usable list.
type AttractionSuggester interface {
	Suggest(ctx context.Context, city string) []string
}
