package conditions

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// DefaultBadAQIThreshold is the "unhealthy for sensitive groups" boundary.
const DefaultBadAQIThreshold = 101

const universalAQICode = "uaqi"

// AssessAirQuality turns a forecast or current-conditions payload into a mask recommendation.
func AssessAirQuality(payload *AirQualityPayload, threshold int) AirQualityAssessment {
	if payload == nil {
		payload = &AirQualityPayload{}
	}
	if payload.Error {
		return AirQualityAssessment{
			MaskNeeded: false,
			MaskDays:   0,
			Detail:     fmt.Sprintf("Air Quality API error %d: %s", payload.StatusCode, payload.Body),
		}
	}

	mode := payload.Mode
	if mode == "" {
		mode = "unknown"
	}

	if len(payload.HourlyForecasts) > 0 {
		badDays := make(map[string]struct{})
		for _, hour := range payload.HourlyForecasts {
			aqi, _ := resolveAQI(hour.Indexes)
			if aqi == nil || len(hour.DateTime) < 10 {
				continue
			}
			if *aqi >= float64(threshold) {
				badDays[hour.DateTime[:10]] = struct{}{}
			}
		}
		if len(badDays) == 0 {
			return AirQualityAssessment{Detail: "[forecast] Air looks OK in forecast window."}
		}
		days := lo.Keys(badDays)
		sort.Strings(days)
		return AirQualityAssessment{
			MaskNeeded: true,
			MaskDays:   len(days),
			Detail:     "[forecast] Bad-air days: " + quotedList(days),
		}
	}

	aqi, category := resolveAQI(payload.Indexes)
	if aqi == nil {
		return AirQualityAssessment{Detail: fmt.Sprintf("[%s] No AQI index returned.", mode)}
	}

	needed := *aqi >= float64(threshold)
	days := 0
	if needed {
		days = 1
	}
	return AirQualityAssessment{
		MaskNeeded: needed,
		MaskDays:   days,
		Detail:     fmt.Sprintf("[%s] UAQI=%s (%s). Threshold=%d.", mode, formatAQI(*aqi), category, threshold),
	}
}

// resolveAQI prefers the universal AQI entry and falls back to the first entry
// when the universal one is missing or carries no value.
func resolveAQI(indexes []AQIndex) (*float64, string) {
	if len(indexes) == 0 {
		return nil, ""
	}
	if idx, ok := lo.Find(indexes, func(i AQIndex) bool { return i.Code == universalAQICode }); ok && idx.AQI != nil {
		return idx.AQI, idx.Category
	}
	return indexes[0].AQI, indexes[0].Category
}

func formatAQI(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quotedList(values []string) string {
	quoted := lo.Map(values, func(v string, _ int) string { return "'" + v + "'" })
	return "[" + strings.Join(quoted, ", ") + "]"
}
