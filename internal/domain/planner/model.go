package planner

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/yanqian/ai-travel-planner/internal/domain/trip"
	"github.com/yanqian/ai-travel-planner/pkg/metrics"
)

// Mode selects the report layout.
type Mode string

const (
	ModeTripPlanner  Mode = "trip_planner"
	ModeCityExplorer Mode = "city_explorer"
)

// Generation statuses.
const (
	StatusOK             = "ok"
	StatusSchemaMismatch = "schema_mismatch"
)

// Text is a plan scalar that decodes from any JSON value. Strings are kept as-is,
// numbers keep their literal form, true becomes "True", and null, false, 0 and
// empty containers decode to "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case 'n', 'f':
		*t = ""
	case 't':
		*t = "True"
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		if s := buf.String(); s == "{}" || s == "[]" {
			*t = ""
		} else {
			*t = Text(s)
		}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			if f, err := n.Float64(); err == nil && f == 0 {
				*t = ""
				return nil
			}
		}
		*t = Text(data)
	}
	return nil
}

// Item is a list entry rendered the way a checklist prints it: every value is
// shown, so null reads "None" and booleans read "True" or "False".
type Item string

func (i *Item) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		*i = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = Item(s)
	case bytes.Equal(data, []byte("null")):
		*i = "None"
	case bytes.Equal(data, []byte("true")):
		*i = "True"
	case bytes.Equal(data, []byte("false")):
		*i = "False"
	case data[0] == '{' || data[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*i = Item(buf.String())
	default:
		*i = Item(data)
	}
	return nil
}

// List decodes a JSON array leniently: a non-array decodes to an empty list and
// elements that do not decode into T are skipped.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// MultiCityPlan is the Trip Planner response shape.
type MultiCityPlan struct {
	ExecutiveSummary Text           `json:"executive_summary"`
	GeneratedAt      Text           `json:"generated_at"`
	ClientName       Text           `json:"client_name"`
	Scope            Text           `json:"scope"`
	Cities           List[CityPlan] `json:"cities"`
}

// CityPlan is one city/day of a multi-city plan.
type CityPlan struct {
	City     Text               `json:"city"`
	Date     Text               `json:"date"`
	Schedule List[ScheduleItem] `json:"schedule"`
	Insights Insights           `json:"insights"`
	Risk     PlanRisk           `json:"risk"`
	Packing  List[Item]         `json:"packing"`
}

// Insights are the per-city conditions sentences.
type Insights struct {
	Weather    Text `json:"weather"`
	Umbrella   Text `json:"umbrella"`
	AirQuality Text `json:"air_quality"`
}

// PlanRisk is the risk block as written by the model.
type PlanRisk struct {
	WeatherRisk    Text `json:"weather_risk"`
	AirQualityRisk Text `json:"air_quality_risk"`
	OverallRisk    Text `json:"overall_risk"`
}

// ExplorerPlan is the City Explorer response shape.
type ExplorerPlan struct {
	City       Text               `json:"city"`
	Date       Text               `json:"date"`
	Summary    Text               `json:"summary"`
	Schedule   List[ScheduleItem] `json:"schedule"`
	Tips       List[Item]         `json:"tips"`
	Weather    Text               `json:"weather"`
	AirQuality Text               `json:"air_quality"`
	Packing    List[Item]         `json:"packing"`
}

// ScheduleItem is one timed activity.
type ScheduleItem struct {
	Start    Text `json:"start"`
	End      Text `json:"end"`
	Activity Text `json:"activity"`
	Address  Text `json:"address"`
}

func (i *Insights) UnmarshalJSON(data []byte) error {
	type plain Insights
	return decodeObject(data, (*plain)(i))
}

func (r *PlanRisk) UnmarshalJSON(data []byte) error {
	type plain PlanRisk
	return decodeObject(data, (*plain)(r))
}

// decodeObject leaves dst zeroed unless data is a JSON object.
func decodeObject(data []byte, dst any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// HistoryEntry is one line of the conversation log.
type HistoryEntry struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is the per-client planning state. It holds at most one current plan.
type Session struct {
	ID             string          `json:"id"`
	ClientName     string          `json:"clientName"`
	Mode           Mode            `json:"mode,omitempty"`
	Status         string          `json:"status,omitempty"`
	Plan           json.RawMessage `json:"plan,omitempty"`
	Report         string          `json:"report,omitempty"`
	DocumentKey    string          `json:"documentKey,omitempty"`
	GeneratedLocal string          `json:"generatedLocal,omitempty"`
	GeneratedISO   string          `json:"generatedIso,omitempty"`
	History        []HistoryEntry  `json:"history,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// HasPlan reports whether the session holds a structured plan.
func (s *Session) HasPlan() bool {
	return len(bytes.TrimSpace(s.Plan)) > 0
}

// ExplorerRequest carries the City Explorer options.
type ExplorerRequest struct {
	City      string
	Date      string
	Interests string
	StartTime string
	Pace      string
}

// ExploreInput is the raw City Explorer form.
type ExploreInput struct {
	Input     string `json:"input"`
	Interests string `json:"interests"`
	Pace      string `json:"pace"`
	StartTime string `json:"startTime"`
}

// ReportMeta carries the per-generation values printed on a report.
type ReportMeta struct {
	ClientName     string
	GeneratedLocal string
	GeneratedISO   string
}

// Generation is the outcome of one agent round-trip.
type Generation struct {
	Status         string             `json:"status"`
	Mode           Mode               `json:"mode"`
	Report         string             `json:"report"`
	HasDocument    bool               `json:"hasDocument"`
	GeneratedLocal string             `json:"generatedLocal"`
	GeneratedISO   string             `json:"generatedIso"`
	Usage          metrics.TokenUsage `json:"usage"`
	ToolCalls      int                `json:"toolCalls"`
}

// PolicyView lists the destination policy for display.
type PolicyView struct {
	BlockedDestinations []string `json:"blockedDestinations"`
	AllowedRegions      []string `json:"allowedRegions"`
}

// ParsePreview is the stateless parse result.
type ParsePreview struct {
	Stops []trip.CityStop `json:"stops"`
}

func (m Mode) valid() bool {
	return m == ModeTripPlanner || m == ModeCityExplorer
}

func (m Mode) title() string {
	if m == ModeCityExplorer {
		return "Travel Planner — City Explorer"
	}
	return "Travel Planner — Itinerary"
}

func trimmed(t Text) string {
	return strings.TrimSpace(string(t))
}
