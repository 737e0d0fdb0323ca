package trip

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/yanqian/ai-travel-planner/pkg/errors"
	"github.com/yanqian/ai-travel-planner/pkg/util"
)

var (
	cityHeaderRe = regexp.MustCompile(`(?i)^City\d+\s*:\s*(.+?)\s+(\d{4}-\d{2}-\d{2})\s*$`)
	// place, optionally followed by ";start-end" (8am-9am, 08:00-09:00, ...).
	activityRe = regexp.MustCompile(`^(.+?)(?:\s*;\s*(.+?)\s*-\s*(.+))?$`)

	explorerHeaderRe = regexp.MustCompile(`(?i)^\s*City\s*:\s*(.+?)\s+(\d{4}-\d{2}-\d{2})\s*$`)
	simpleHeaderRe   = regexp.MustCompile(`^\s*(.+?)\s+(\d{4}-\d{2}-\d{2})\s*$`)
)

// Parse turns "CityN: <name> <YYYY-MM-DD>" blocks into ordered stops.
func Parse(raw string) ([]CityStop, error) {
	var (
		stops   []CityStop
		current *CityStop
	)

	for _, line := range nonEmptyLines(raw) {
		if m := cityHeaderRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				stops = append(stops, *current)
			}
			current = &CityStop{
				City:       strings.TrimSpace(m[1]),
				Date:       strings.TrimSpace(m[2]),
				Activities: []string{},
			}
			continue
		}

		if current == nil {
			return nil, apperrors.Wrap(apperrors.CodeParse, "Trip must start with a line like: City1: Toronto 2025-01-31", nil)
		}
		current.Activities = append(current.Activities, normalizeActivity(line))
	}

	if current != nil {
		stops = append(stops, *current)
	}
	if len(stops) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeParse, "No cities found. Use: City1: <City> YYYY-MM-DD", nil)
	}
	return stops, nil
}

// ParseExplorerBox reads the one-box explorer input: a "City: X date" or "X date" line
// followed by optional activity lines.
func ParseExplorerBox(raw string) (ExplorerInput, error) {
	lines := nonEmptyLines(raw)
	if len(lines) == 0 {
		return ExplorerInput{}, apperrors.Wrap(apperrors.CodeParse, "Please enter at least: City and Date (e.g., Toronto 2026-02-01).", nil)
	}

	m := explorerHeaderRe.FindStringSubmatch(lines[0])
	if m == nil {
		m = simpleHeaderRe.FindStringSubmatch(lines[0])
	}
	if m == nil {
		return ExplorerInput{}, apperrors.Wrap(apperrors.CodeParse, "First line must look like: Toronto 2026-02-01 (or: City: Toronto 2026-02-01).", nil)
	}
	city, date := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])

	activities := lines[1:]
	normalized := append([]string{fmt.Sprintf("City1: %s %s", city, date)}, activities...)
	return ExplorerInput{
		City:          city,
		Date:          date,
		HasActivities: len(activities) > 0,
		TripText:      strings.Join(normalized, "\n"),
	}, nil
}

func normalizeActivity(line string) string {
	m := activityRe.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	place := strings.TrimSpace(m[1])
	start := strings.TrimSpace(m[2])
	end := strings.TrimSpace(m[3])
	if start != "" && end != "" {
		return place + ";" + start + "-" + end
	}
	return place
}

func nonEmptyLines(raw string) []string {
	var out []string
	for _, line := range util.SplitLines(raw) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
