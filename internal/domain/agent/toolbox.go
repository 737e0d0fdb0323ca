package agent

import (
	"context"
	"log/slog"

	"github.com/yanqian/ai-travel-planner/internal/domain/conditions"
)

// Guard is the destination policy gate.
type Guard interface {
	Check(text string) error
}

// ToolboxConfig carries tool tuning.
type ToolboxConfig struct {
	BadAQIThreshold int
}

// Toolbox implements Tools on top of upstream clients. Free-text arguments pass the
// guard before any upstream call; upstream failures degrade to sentinel values.
type Toolbox struct {
	cfg         ToolboxConfig
	guard       Guard
	geocoder    Geocoder
	forecast    ForecastClient
	airQuality  AirQualityClient
	attractions AttractionSuggester
	logger      *slog.Logger
}

// NewToolbox wires the agent tools.
func NewToolbox(cfg ToolboxConfig, guard Guard, geocoder Geocoder, forecast ForecastClient, airQuality AirQualityClient, attractions AttractionSuggester, logger *slog.Logger) *Toolbox {
	if cfg.BadAQIThreshold <= 0 {
		cfg.BadAQIThreshold = conditions.DefaultBadAQIThreshold
	}
	return &Toolbox{
		cfg:         cfg,
		guard:       guard,
		geocoder:    geocoder,
		forecast:    forecast,
		airQuality:  airQuality,
		attractions: attractions,
		logger:      logger.With("component", "agent.toolbox"),
	}
}

func (t *Toolbox) SuggestAttractions(ctx context.Context, city string) ([]string, error) {
	if err := t.guard.Check(city); err != nil {
		return nil, err
	}
	return t.attractions.Suggest(ctx, city), nil
}

func (t *Toolbox) CityLatLng(ctx context.Context, city string) (CityLocation, error) {
	if err := t.guard.Check(city); err != nil {
		return CityLocation{}, err
	}
	place, err := t.geocoder.SearchText(ctx, city)
	if err != nil {
		t.logger.Warn("city lookup unavailable", "city", city, "error", err)
		return CityLocation{City: city}, nil
	}
	return CityLocation{
		City:     city,
		Lat:      &place.Lat,
		Lng:      &place.Lng,
		Timezone: place.Timezone,
	}, nil
}

func (t *Toolbox) PlaceAddress(ctx context.Context, city, placeName string) (PlaceLocation, error) {
	if err := t.guard.Check(city); err != nil {
		return PlaceLocation{}, err
	}
	if err := t.guard.Check(placeName); err != nil {
		return PlaceLocation{}, err
	}
	place, err := t.geocoder.SearchText(ctx, placeName+", "+city)
	if err != nil {
		t.logger.Warn("place lookup unavailable", "city", city, "place", placeName, "error", err)
		return PlaceLocation{PlaceName: placeName}, nil
	}
	return PlaceLocation{
		PlaceName:        placeName,
		FormattedAddress: place.FormattedAddress,
		Lat:              &place.Lat,
		Lng:              &place.Lng,
	}, nil
}

func (t *Toolbox) Weather(ctx context.Context, lat, lng float64, targetDate string) (WeatherReport, error) {
	forecast, err := t.forecast.HourlyForecast(ctx, lat, lng)
	if err != nil {
		t.logger.Warn("forecast unavailable", "lat", lat, "lng", lng, "error", err)
		return WeatherReport{
			Available:   false,
			WeatherLine: conditions.UnavailableLine,
			Umbrella:    "No",
			Clothes:     conditions.UnavailableClothes,
		}, nil
	}

	day := conditions.SummarizeWeather(forecast, targetDate)
	report := WeatherReport{
		Available:   day.Available,
		Timezone:    day.Timezone,
		WeatherLine: conditions.WeatherLine(day),
		Umbrella:    "No",
		Clothes:     conditions.UnavailableClothes,
		Risk:        conditions.Score(forecast, nil),
	}
	if day.Available {
		if day.UmbrellaNeeded {
			report.Umbrella = "Yes"
		}
		report.Clothes = conditions.ClothesFor(day.AvgTempC, day.MaxWindKmh)
	}
	return report, nil
}

func (t *Toolbox) AirQuality(ctx context.Context, lat, lng float64) (AirQualityReport, error) {
	payload := t.airQuality.Lookup(ctx, lat, lng)
	return AirQualityReport{
		Raw:  payload,
		Mask: conditions.AssessAirQuality(&payload, t.cfg.BadAQIThreshold),
		Risk: conditions.Score(nil, &payload),
	}, nil
}

var _ Tools = (*Toolbox)(nil)
