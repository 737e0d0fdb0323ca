package planner

import "time"

// Config holds runtime knobs for the planner service.
type Config struct {
	SessionTTL   time.Duration
	Location     *time.Location
	HistoryLimit int
}

const defaultHistoryLimit = 6
