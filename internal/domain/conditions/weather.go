package conditions

import (
	"fmt"
	"math"
	"strings"
)

// UmbrellaThresholdPct is the precipitation probability at which an umbrella is advised.
const UmbrellaThresholdPct = 40

// Sentences used when the date is outside the forecast window.
const (
	UnavailableReason  = "Forecast available up to 10 days only."
	UnavailableLine    = "Forecast will be available when the travel date is within the next 10 days."
	UnavailableClothes = "Dress in layers; plan based on typical seasonal conditions."
)

// SummarizeWeather reduces the hourly window to the samples of targetDate (YYYY-MM-DD).
func SummarizeWeather(forecast *HourlyForecast, targetDate string) WeatherDaySummary {
	if forecast == nil {
		forecast = &HourlyForecast{}
	}
	timezone := forecast.Timezone
	if timezone == "" {
		timezone = "local"
	}

	hourly := forecast.Hourly
	var idxs []int
	for i, ts := range hourly.Time {
		if targetDate != "" && strings.HasPrefix(ts, targetDate) {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return WeatherDaySummary{
			Available:  false,
			TargetDate: targetDate,
			Timezone:   timezone,
			Reason:     UnavailableReason,
		}
	}

	temps := pick(hourly.Temperature, idxs)
	feels := pick(hourly.ApparentTemperature, idxs)
	precip := pick(hourly.PrecipitationProbability, idxs)
	wind := pick(hourly.wind(), idxs)

	ref := feels
	if len(ref) == 0 {
		ref = temps
	}
	maxPrecip := maxOrZero(precip)

	return WeatherDaySummary{
		Available:        true,
		TargetDate:       targetDate,
		Timezone:         timezone,
		AvgTempC:         mean(ref),
		MinTempC:         minOf(temps),
		MaxTempC:         maxOf(temps),
		MaxPrecipProbPct: maxPrecip,
		MaxWindKmh:       maxOrZero(wind),
		UmbrellaNeeded:   maxPrecip >= UmbrellaThresholdPct,
	}
}

// ClothesFor maps the reference temperature and wind to a clothing recommendation.
func ClothesFor(avgTempC *float64, maxWindKmh float64) string {
	var clothes string
	switch {
	case avgTempC == nil:
		clothes = "Dress in layers (forecast detail not available yet)."
	case *avgTempC <= 0:
		clothes = "Heavy winter coat, gloves, warm hat, insulated footwear."
	case *avgTempC <= 10:
		clothes = "Warm coat or jacket, long pants, closed-toe shoes."
	case *avgTempC <= 20:
		clothes = "Light jacket or sweater, comfortable shoes."
	default:
		clothes = "Light clothing, breathable layers, comfortable walking shoes."
	}

	if maxWindKmh >= 35 {
		clothes = strings.TrimRight(clothes, ".") + " Add a windbreaker (windy)."
	}
	return clothes
}

// WeatherLine renders an available summary as a one-line client sentence.
func WeatherLine(day WeatherDaySummary) string {
	if !day.Available {
		return UnavailableLine
	}
	return fmt.Sprintf("%.1f°C avg (%.1f°C to %.1f°C), rain up to %d%%, wind up to %d km/h",
		deref(day.AvgTempC),
		deref(day.MinTempC),
		deref(day.MaxTempC),
		int(math.RoundToEven(day.MaxPrecipProbPct)),
		int(math.RoundToEven(day.MaxWindKmh)),
	)
}

func pick(series []*float64, idxs []int) []float64 {
	if len(series) == 0 {
		return nil
	}
	out := make([]float64, 0, len(idxs))
	for _, i := range idxs {
		if i < len(series) && series[i] != nil {
			out = append(out, *series[i])
		}
	}
	return out
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}

func minOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	lowest := values[0]
	for _, v := range values[1:] {
		lowest = math.Min(lowest, v)
	}
	return &lowest
}

func maxOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	highest := values[0]
	for _, v := range values[1:] {
		highest = math.Max(highest, v)
	}
	return &highest
}

func maxOrZero(values []float64) float64 {
	if highest := maxOf(values); highest != nil {
		return *highest
	}
	return 0
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
