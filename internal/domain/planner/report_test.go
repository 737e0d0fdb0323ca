package planner

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var testMeta = ReportMeta{
	ClientName:     "Acme Corp",
	GeneratedLocal: "2026-01-20 14:05",
	GeneratedISO:   "2026-01-20T14:05:00-05:00",
}

const multiCityJSON = `{
  "executive_summary": " Two days in Canada. ",
  "scope": "Toronto and Montreal",
  "cities": [
    {
      "city": "Toronto",
      "date": "2026-02-01",
      "schedule": [
        {"start": "09:00", "end": "11:00", "activity": "CN Tower", "address": "290 Bremner Blvd, Toronto, ON"},
        {"start": "", "end": "", "activity": "Free time", "address": "N/A"},
        {"start": "13:00", "end": null, "activity": "Lunch", "address": ""}
      ],
      "insights": {"weather": "-2°C to 3°C, rain up to 35%, wind up to 30 km/h", "umbrella": "No", "air_quality": "Good (UAQI 80)."},
      "risk": {"weather_risk": 4, "air_quality_risk": 2, "overall_risk": 4},
      "packing": [" Warm coat ", "Gloves"]
    },
    {
      "city": "Montreal",
      "date": "2026-02-02"
    }
  ]
}`

func TestFormatMultiCityReport(t *testing.T) {
	t.Parallel()

	report, err := FormatReport(json.RawMessage(multiCityJSON), ModeTripPlanner, testMeta)
	require.NoError(t, err)

	lines := strings.Split(report, "\n")
	require.Equal(t, "Travel Planner — Itinerary", lines[0])
	require.Equal(t, "Generated: 2026-01-20 14:05", lines[1])
	require.Equal(t, "TRAVEL ITINERARY REPORT", lines[2])
	require.Equal(t, strings.Repeat("=", 72), lines[3])
	require.Equal(t, "Prepared for: Acme Corp", lines[4])
	require.Equal(t, "Generated at: 2026-01-20 14:05", lines[5])
	require.Equal(t, "Scope: Toronto and Montreal", lines[6])

	require.Contains(t, report, "EXECUTIVE SUMMARY\n"+strings.Repeat("-", 72)+"\nTwo days in Canada.\n")
	require.Contains(t, report, "Toronto — 2026-02-01")
	require.Contains(t, report, "Weather: -2°C to 3°C, rain up to 35%, wind up to 30 km/h")
	require.Contains(t, report, "09:00–11:00 | CN Tower\n Address: 290 Bremner Blvd, Toronto, ON\n")
	require.Contains(t, report, "\n | Free time\n")
	require.NotContains(t, report, "Address: N/A")
	require.Contains(t, report, "\n13:00 | Lunch\n")
	require.Contains(t, report, "Packing Checklist\n"+strings.Repeat("-", 72)+"\n- Warm coat\n- Gloves\n")
}

func TestFormatMultiCityReportMissingFields(t *testing.T) {
	t.Parallel()

	report, err := FormatReport(json.RawMessage(multiCityJSON), ModeTripPlanner, ReportMeta{GeneratedLocal: "x"})
	require.NoError(t, err)
	require.NotContains(t, report, "Prepared for:")

	montreal := report[strings.Index(report, "Montreal — 2026-02-02"):]
	require.Contains(t, montreal, "Weather: N/A\nUmbrella: N/A\nAir Quality: N/A\n")
	require.Contains(t, montreal, "Schedule\n"+strings.Repeat("-", 72)+"\nNo scheduled activities provided.\n")
	require.NotContains(t, montreal, "Packing Checklist")
}

func TestFormatMultiCityReportMalformedValues(t *testing.T) {
	t.Parallel()

	plan := `{"scope": null, "executive_summary": 0, "cities": [
		"not a city",
		{"city": "  ", "date": false, "insights": "sunny", "schedule": {"start": "09:00"}, "packing": "umbrella"},
		{"city": 42, "date": "2026-02-03", "schedule": ["oops", {"activity": true}]}
	]}`
	report, err := FormatReport(json.RawMessage(plan), ModeTripPlanner, testMeta)
	require.NoError(t, err)
	require.Contains(t, report, "Scope: N/A")
	require.Contains(t, report, "Unknown City — Unknown Date")
	require.Contains(t, report, "42 — 2026-02-03")
	require.Contains(t, report, "\n | True\n")
	require.Equal(t, 1, strings.Count(report, "No scheduled activities provided."))
}

func TestFormatExplorerReport(t *testing.T) {
	t.Parallel()

	plan := `{
	  "city": "Tokyo",
	  "date": "2026-04-02",
	  "summary": "A relaxed day.",
	  "schedule": [{"start": "09:00", "end": "10:30", "activity": "Senso-ji", "address": "2 Chome-3-1 Asakusa, Taito City, Tokyo"}],
	  "tips": ["Carry cash"],
	  "weather": "Mild",
	  "air_quality": "Good",
	  "packing": []
	}`
	report, err := FormatReport(json.RawMessage(plan), ModeCityExplorer, testMeta)
	require.NoError(t, err)

	lines := strings.Split(report, "\n")
	require.Equal(t, "Travel Planner — City Explorer", lines[0])
	require.Equal(t, "CITY VISIT PLAN", lines[2])
	require.Equal(t, "Generated at: 2026-01-20T14:05:00-05:00", lines[5])
	require.Equal(t, "Destination: Tokyo — 2026-04-02", lines[6])
	require.Contains(t, report, "Weather: Mild\nAir Quality: Good\n")
	require.Contains(t, report, "09:00–10:30 | Senso-ji\n Address: 2 Chome-3-1 Asakusa, Taito City, Tokyo\n")
	require.Contains(t, report, "Practical Tips\n"+strings.Repeat("-", 72)+"\n- Carry cash\n")
	require.NotContains(t, report, "Packing Checklist")
}

func TestFormatExplorerReportDefaults(t *testing.T) {
	t.Parallel()

	report, err := FormatReport(json.RawMessage(`{"date": "N/A"}`), ModeCityExplorer, testMeta)
	require.NoError(t, err)
	require.Contains(t, report, "\nDestination: City\n")
	require.Contains(t, report, "Suggested Schedule\n"+strings.Repeat("-", 72)+"\nNo schedule was generated.\n")
	require.Contains(t, report, "Weather: \nAir Quality: \n")
}

func TestFormatReportIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, mode := range []Mode{ModeTripPlanner, ModeCityExplorer} {
		first, err := FormatReport(json.RawMessage(multiCityJSON), mode, testMeta)
		require.NoError(t, err)
		second, err := FormatReport(json.RawMessage(multiCityJSON), mode, testMeta)
		require.NoError(t, err)
		require.Equal(t, first, second)
	}
}

func TestFormatReportRejectsNonObject(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{``, `[]`, `"plan"`, `{"broken":`} {
		_, err := FormatReport(json.RawMessage(raw), ModeTripPlanner, testMeta)
		require.ErrorIs(t, err, ErrPlanNotObject, raw)
	}
}

func TestDetectMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		plan     string
		fallback Mode
		want     Mode
	}{
		{name: "cities", plan: `{"cities": []}`, fallback: ModeCityExplorer, want: ModeTripPlanner},
		{name: "city", plan: `{"city": "Tokyo"}`, fallback: ModeTripPlanner, want: ModeCityExplorer},
		{name: "neither", plan: `{"summary": "x"}`, fallback: ModeCityExplorer, want: ModeCityExplorer},
		{name: "not object", plan: `[1]`, fallback: ModeTripPlanner, want: ModeTripPlanner},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DetectMode(json.RawMessage(tc.plan), tc.fallback))
		})
	}
}

func TestFormatReportPackingKeepsNullEntries(t *testing.T) {
	t.Parallel()

	plan := `{"cities": [{"city": "Osaka", "date": "2026-03-01", "packing": ["Umbrella", null, true]}]}`
	report, err := FormatReport(json.RawMessage(plan), ModeTripPlanner, testMeta)
	require.NoError(t, err)
	require.Contains(t, report, "Packing Checklist\n"+strings.Repeat("-", 72)+"\n- Umbrella\n- None\n- True\n")
}
