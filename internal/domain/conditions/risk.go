package conditions

import "math"

// Score maps the forecast window and air quality payload to bounded risk scores.
// Missing or malformed inputs contribute zero to their axis.
//
// The breakpoints (precip/10, wind 25/35/50 km/h, AQI 50/100/150/200) are policy
// constants kept as-is; revisit them with product before tuning.
func Score(forecast *HourlyForecast, air *AirQualityPayload) RiskScore {
	weather := weatherRisk(forecast)
	aq := airQualityRisk(air)
	return RiskScore{
		WeatherRisk:    weather,
		AirQualityRisk: aq,
		OverallRisk:    max(weather, aq),
	}
}

func weatherRisk(forecast *HourlyForecast) int {
	if forecast == nil {
		return 0
	}
	maxPrecip := maxOrZero(pickAll(forecast.Hourly.PrecipitationProbability))
	maxWind := maxOrZero(pickAll(forecast.Hourly.wind()))

	risk := clamp(int(math.RoundToEven(maxPrecip / 10)))
	switch {
	case maxWind >= 50:
		risk += 3
	case maxWind >= 35:
		risk += 2
	case maxWind >= 25:
		risk++
	}
	return clamp(risk)
}

func airQualityRisk(air *AirQualityPayload) int {
	if air == nil || air.Error {
		return 0
	}
	aqi, _ := resolveAQI(air.Indexes)
	if aqi == nil {
		return 0
	}
	switch v := *aqi; {
	case v <= 50:
		return 2
	case v <= 100:
		return 5
	case v <= 150:
		return 7
	case v <= 200:
		return 8
	default:
		return 10
	}
}

func pickAll(series []*float64) []float64 {
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func clamp(v int) int {
	return min(max(v, 0), 10)
}
