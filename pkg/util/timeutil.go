package util

import "time"

const (
	// LocalLayout is the human readable timestamp printed on reports.
	LocalLayout = "2006-01-02 15:04"
	// ISOLayout is ISO-8601 with second precision and a numeric offset.
	ISOLayout = "2006-01-02T15:04:05-07:00"
)

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// LocalAndISO renders t in loc as the report timestamp pair.
func LocalAndISO(t time.Time, loc *time.Location) (string, string) {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	return local.Format(LocalLayout), local.Format(ISOLayout)
}
