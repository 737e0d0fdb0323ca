package conditions

// HourlyForecast is the open-meteo forecast payload. Series entries may be null.
type HourlyForecast struct {
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Timezone    string       `json:"timezone"`
	Hourly      HourlySeries `json:"hourly"`
	WindowHours int          `json:"-"`
	WindowDays  int          `json:"-"`
}

// HourlySeries holds parallel hourly arrays indexed by Time.
type HourlySeries struct {
	Time                     []string   `json:"time"`
	Temperature              []*float64 `json:"temperature_2m"`
	ApparentTemperature      []*float64 `json:"apparent_temperature"`
	PrecipitationProbability []*float64 `json:"precipitation_probability"`
	WindSpeed                []*float64 `json:"wind_speed_10m"`
	// LegacyWindSpeed is the pre-2023 open-meteo name for WindSpeed.
	LegacyWindSpeed []*float64 `json:"windspeed_10m,omitempty"`
}

func (h HourlySeries) wind() []*float64 {
	if len(h.WindSpeed) > 0 {
		return h.WindSpeed
	}
	return h.LegacyWindSpeed
}

// AirQualityPayload is a Google Air Quality response (forecast or current conditions)
// tagged by the client with the lookup mode or the upstream error.
type AirQualityPayload struct {
	Error      bool   `json:"_error,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	URL        string `json:"_url,omitempty"`
	Mode       string `json:"_mode,omitempty"`

	DateTime        string            `json:"dateTime,omitempty"`
	RegionCode      string            `json:"regionCode,omitempty"`
	Indexes         []AQIndex         `json:"indexes,omitempty"`
	HourlyForecasts []HourlyAirSample `json:"hourlyForecasts,omitempty"`
}

// AQIndex is one air quality index entry.
type AQIndex struct {
	Code              string   `json:"code"`
	DisplayName       string   `json:"displayName,omitempty"`
	AQI               *float64 `json:"aqi,omitempty"`
	Category          string   `json:"category,omitempty"`
	DominantPollutant string   `json:"dominantPollutant,omitempty"`
}

// HourlyAirSample is one entry of the forecast shape.
type HourlyAirSample struct {
	DateTime string    `json:"dateTime"`
	Indexes  []AQIndex `json:"indexes"`
}

// Air quality lookup modes.
const (
	ModeForecast = "forecast"
	ModeCurrent  = "current"
	ModeError    = "error"
)

// WeatherDaySummary reduces a forecast window to one calendar date.
type WeatherDaySummary struct {
	Available        bool     `json:"available"`
	TargetDate       string   `json:"target_date"`
	Timezone         string   `json:"timezone"`
	AvgTempC         *float64 `json:"avg_temp_c,omitempty"`
	MinTempC         *float64 `json:"min_temp_c,omitempty"`
	MaxTempC         *float64 `json:"max_temp_c,omitempty"`
	MaxPrecipProbPct float64  `json:"max_precip_prob_pct"`
	MaxWindKmh       float64  `json:"max_wind_kmh"`
	UmbrellaNeeded   bool     `json:"umbrella_needed"`
	Reason           string   `json:"reason,omitempty"`
}

// AirQualityAssessment is the mask recommendation derived from a payload.
type AirQualityAssessment struct {
	MaskNeeded bool   `json:"mask_needed"`
	MaskDays   int    `json:"mask_days"`
	Detail     string `json:"detail"`
}

// RiskScore holds bounded 0-10 scores; OverallRisk is the max of the two axes.
type RiskScore struct {
	WeatherRisk    int `json:"weather_risk"`
	AirQualityRisk int `json:"air_quality_risk"`
	OverallRisk    int `json:"overall_risk"`
}
