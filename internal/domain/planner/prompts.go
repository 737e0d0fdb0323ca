package planner

import (
	"strings"

	"github.com/yanqian/ai-travel-planner/internal/domain/trip"
)

const (
	defaultStartTime = "09:00"
	defaultPace      = "moderate"
)

// SystemMessage is sent ahead of every agent request. It fixes the tool steps, the
// wording rules and the multi-city JSON schema.
const SystemMessage = "Create professional, client-ready travel itineraries.\n" +
	"Return ONLY valid JSON. No markdown, no backticks, no extra text.\n\n" +
	"You MUST do the following for EACH city in the input:\n" +
	"1) Call city_latlng(city) to get lat/lng.\n" +
	"2) For each scheduled activity, call place_address(city, place_name) and set schedule[i].address " +
	"to the returned formatted_address (string only).\n" +
	"3) Call weather(lat, lng, target_date) using that city's date.\n" +
	"   - Put the temperature/rain/wind numbers into insights.weather when available.\n" +
	"   - Put exactly 'Yes' or 'No' into insights.umbrella.\n" +
	"4) Call air_quality(lat, lng) and summarize into insights.air_quality.\n" +
	"5) Packing MUST be a list of specific items tailored to that city's conditions.\n\n" +
	"Weather wording rules:\n" +
	"- If available: insights.weather like: '<min>°C to <max>°C, rain up to <pct>%, wind up to <kmh> km/h'.\n" +
	"- If not available: write a short professional sentence (no tool references).\n\n" +
	"Air quality wording rules:\n" +
	"- Use a short professional summary. If numeric AQI/category exists, include it.\n" +
	"- Include whether a mask is recommended based on your tool's mask field.\n\n" +
	"Risk rules:\n" +
	"- risk.weather_risk, risk.air_quality_risk, risk.overall_risk MUST be integers 0–10.\n" +
	"- overall_risk should reflect the higher of the two unless you have reason to adjust.\n\n" +
	"If a city has no activities, you MUST call suggest_attractions(city), build a schedule with times, and still resolve addresses.\n\n" +
	"JSON schema (keys must match exactly):\n" +
	"{\n" +
	`  "executive_summary": "string",` + "\n" +
	`  "generated_at": "ISO-8601 string",` + "\n" +
	`  "client_name": "string",` + "\n" +
	`  "scope": "string",` + "\n" +
	`  "cities": [` + "\n" +
	"    {\n" +
	`      "city": "string",` + "\n" +
	`      "date": "YYYY-MM-DD",` + "\n" +
	`      "schedule": [{"start":"HH:MM","end":"HH:MM","activity":"string","address":"string"}],` + "\n" +
	`      "insights": {"weather":"string","umbrella":"string","air_quality":"string"},` + "\n" +
	`      "risk": {"weather_risk":0,"air_quality_risk":0,"overall_risk":0},` + "\n" +
	`      "packing": ["string"]` + "\n" +
	"    }\n" +
	"  ]\n" +
	"}\n"

// BuildAgentRequest renders parsed stops into the multi-city instruction.
func BuildAgentRequest(stops []trip.CityStop, clientName string) string {
	lines := make([]string, 0, 16+len(stops)*4)
	if clientName != "" {
		lines = append(lines, "Client: "+clientName)
	}
	lines = append(lines,
		"Create a multi-city travel itinerary with times and formatted addresses.",
		"For each city/day:",
		"- confirm attractions (or suggest if missing)",
		"- attach a clean formatted address for each scheduled activity",
		"- include a short weather summary and whether an umbrella is recommended",
		"- include a short air-quality summary and whether a mask is recommended",
		"- include a packing checklist (8+ items) based on conditions + essentials",
		"",
		"Trip input:",
	)
	for _, stop := range stops {
		lines = append(lines, "- "+stop.City+" on "+stop.Date)
		if len(stop.Activities) == 0 {
			lines = append(lines, "  * (no activities provided; suggest some)")
			continue
		}
		for _, activity := range stop.Activities {
			lines = append(lines, "  * "+activity)
		}
	}
	lines = append(lines, "", "Output MUST be valid JSON only (no markdown, no backticks, no extra text).")
	return strings.Join(lines, "\n")
}

// BuildCityExplorerRequest renders the one-day City Explorer instruction.
func BuildCityExplorerRequest(req ExplorerRequest) string {
	startTime := strings.TrimSpace(req.StartTime)
	if startTime == "" {
		startTime = defaultStartTime
	}
	pace := strings.TrimSpace(req.Pace)
	if pace == "" {
		pace = defaultPace
	}

	lines := []string{
		"Create a one-day city visit plan (client-ready).",
		"",
		"Input:",
		"- City: " + req.City,
		"- Start time: " + startTime,
		"- Pace: " + pace + " (slow/moderate/fast)",
	}
	if req.Date != "" {
		lines = append(lines, "- Date: "+req.Date+" (YYYY-MM-DD)")
	}
	if interests := strings.TrimSpace(req.Interests); interests != "" {
		lines = append(lines, "- Interests: "+interests)
	}
	lines = append(lines,
		"",
		"Tool steps (do these):",
		"1) Call city_latlng(city) to get lat/lng.",
		"2) Suggest 4–6 attractions and build a timed schedule.",
		"3) For each attraction, call place_address(city, place_name) and use ONLY formatted_address in the schedule.",
		"4) If date is provided, call weather(lat, lng, target_date) and air_quality(lat, lng) and summarize briefly.",
		"5) Provide a packing checklist (8+ items) based on expected conditions + essentials.",
		"",
		"Return ONLY valid JSON in this schema (keys must match exactly):",
		"{",
		`  "city": "string",`,
		`  "date": "YYYY-MM-DD or empty",`,
		`  "summary": "string",`,
		`  "schedule": [{"start":"HH:MM","end":"HH:MM","activity":"string","address":"string"}],`,
		`  "tips": ["string"],`,
		`  "weather": "string",`,
		`  "air_quality": "string",`,
		`  "packing": ["string"]`,
		"}",
	)
	return strings.Join(lines, "\n")
}

// BuildUpdateRequest wraps the current plan JSON and a change request into an
// instruction that asks for the same schema back.
func BuildUpdateRequest(currentJSON, changeRequest string) string {
	return "Update the existing plan based on the user request.\n" +
		"Return ONLY valid JSON in the SAME schema as the current plan.\n" +
		"Keep everything else consistent.\n\n" +
		"CURRENT JSON:\n" + currentJSON + "\n\n" +
		"USER REQUEST:\n" + changeRequest + "\n"
}
