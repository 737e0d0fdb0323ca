package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

const ruleWidth = 72

var (
	heavyRule = strings.Repeat("=", ruleWidth)
	lightRule = strings.Repeat("-", ruleWidth)
)

// ErrPlanNotObject is returned when the plan is not a JSON object.
var ErrPlanNotObject = errors.New("plan is not a JSON object")

// FormatReport renders plan with the layout for mode.
func FormatReport(plan json.RawMessage, mode Mode, meta ReportMeta) (string, error) {
	if !isObject(plan) {
		return "", ErrPlanNotObject
	}
	if mode == ModeCityExplorer {
		var p ExplorerPlan
		if err := json.Unmarshal(plan, &p); err != nil {
			return "", err
		}
		return FormatExplorerReport(p, meta), nil
	}
	var p MultiCityPlan
	if err := json.Unmarshal(plan, &p); err != nil {
		return "", err
	}
	return FormatMultiCityReport(p, meta), nil
}

// DetectMode picks the layout from the plan keys: "cities" means multi-city, "city"
// means explorer. Anything else keeps fallback.
func DetectMode(plan json.RawMessage, fallback Mode) Mode {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(plan, &keys); err != nil {
		return fallback
	}
	if _, ok := keys["cities"]; ok {
		return ModeTripPlanner
	}
	if _, ok := keys["city"]; ok {
		return ModeCityExplorer
	}
	return fallback
}

// FormatMultiCityReport renders the Trip Planner layout.
func FormatMultiCityReport(plan MultiCityPlan, meta ReportMeta) string {
	var r reportWriter
	r.line(ModeTripPlanner.title())
	r.line("Generated: " + meta.GeneratedLocal)
	r.line("TRAVEL ITINERARY REPORT")
	r.line(heavyRule)
	if meta.ClientName != "" {
		r.line("Prepared for: " + meta.ClientName)
	}
	r.line("Generated at: " + meta.GeneratedLocal)
	r.line("Scope: " + orDefault(plan.Scope, "N/A"))
	r.line("")

	r.section("EXECUTIVE SUMMARY")
	r.line(orDefault(plan.ExecutiveSummary, ""))
	r.line("")

	for _, city := range plan.Cities {
		r.line(heavyRule)
		r.line(orDefault(city.City, "Unknown City") + " — " + orDefault(city.Date, "Unknown Date"))
		r.line(heavyRule)

		r.section("Conditions & Guidance")
		r.line("Weather: " + orDefault(city.Insights.Weather, "N/A"))
		r.line("Umbrella: " + orDefault(city.Insights.Umbrella, "N/A"))
		r.line("Air Quality: " + orDefault(city.Insights.AirQuality, "N/A"))
		r.line("")

		r.section("Schedule")
		r.schedule(city.Schedule, "No scheduled activities provided.")
		r.line("")

		r.bullets("Packing Checklist", city.Packing)
	}
	return r.String()
}

// FormatExplorerReport renders the City Explorer layout.
func FormatExplorerReport(plan ExplorerPlan, meta ReportMeta) string {
	var r reportWriter
	r.line(ModeCityExplorer.title())
	r.line("Generated: " + meta.GeneratedLocal)
	r.line("CITY VISIT PLAN")
	r.line(heavyRule)
	if meta.ClientName != "" {
		r.line("Prepared for: " + meta.ClientName)
	}
	r.line("Generated at: " + meta.GeneratedISO)
	destination := "Destination: " + orDefault(plan.City, "City")
	if date := orDefault(plan.Date, ""); date != "" && date != "N/A" {
		destination += " — " + date
	}
	r.line(destination)
	r.line("")

	r.section("SUMMARY")
	r.line(orDefault(plan.Summary, ""))
	r.line("")

	r.section("Conditions & Guidance")
	r.line("Weather: " + orDefault(plan.Weather, ""))
	r.line("Air Quality: " + orDefault(plan.AirQuality, ""))
	r.line("")

	r.section("Suggested Schedule")
	r.schedule(plan.Schedule, "No schedule was generated.")
	r.line("")

	r.bullets("Practical Tips", plan.Tips)
	r.bullets("Packing Checklist", plan.Packing)
	return r.String()
}

// orDefault returns the trimmed value, or def when it is blank.
func orDefault(v Text, def string) string {
	if s := trimmed(v); s != "" {
		return s
	}
	return def
}

type reportWriter struct {
	lines []string
}

func (r *reportWriter) line(s string) {
	r.lines = append(r.lines, s)
}

func (r *reportWriter) section(title string) {
	r.line(title)
	r.line(lightRule)
}

// schedule writes "start–end | activity" lines. The dash is dropped when a side is
// blank, and addresses go on a continuation line starting with one space.
func (r *reportWriter) schedule(items []ScheduleItem, placeholder string) {
	if len(items) == 0 {
		r.line(placeholder)
		return
	}
	for _, item := range items {
		timeRange := strings.Trim(orDefault(item.Start, "")+"–"+orDefault(item.End, ""), "–")
		r.line(timeRange + " | " + orDefault(item.Activity, ""))
		if address := orDefault(item.Address, ""); address != "" && address != "N/A" {
			r.line(" Address: " + address)
		}
	}
}

func (r *reportWriter) bullets(title string, items []Item) {
	if len(items) == 0 {
		return
	}
	r.section(title)
	for _, item := range items {
		r.line("- " + strings.TrimSpace(string(item)))
	}
	r.line("")
}

func (r *reportWriter) String() string {
	return strings.Join(r.lines, "\n")
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	return json.Valid(raw)
}
