package models

import "time"

// CycleStats is the aggregate snapshot returned by every control command.
type CycleStats struct {
	TotalEvents     int            `json:"total_events"`
	PendingEvents   int            `json:"pending_events"`
	ApprovedEvents  int            `json:"approved_events"`
	RejectedEvents  int            `json:"rejected_events"`
	BySource        map[string]int `json:"by_source"`
	ByVenue         map[string]int `json:"by_venue"`
	ByCity          map[string]int `json:"by_city"`
	LastUpdate      *time.Time     `json:"last_update,omitempty"`
	MonitoredVenues int            `json:"monitored_venues"`
	SystemStatus    string         `json:"system_status"`
	UpdateFrequency string         `json:"update_frequency"`
	NextUpdate      *time.Time     `json:"next_update,omitempty"`
}

// CycleKind names the kind of collection pass.
type CycleKind string

const (
	CycleFull        CycleKind = "full"
	CycleLightweight CycleKind = "lightweight"
)

// CycleResult summarizes a single collection pass.
type CycleResult struct {
	Kind        CycleKind      `json:"kind"`
	StartedAt   time.Time      `json:"started_at"`
	Duration    time.Duration  `json:"duration"`
	Venues      int            `json:"venues"`
	Processed   int            `json:"processed"`
	New         int            `json:"new"`
	Duplicates  int            `json:"duplicates"`
	Failed      int            `json:"failed"`
	NewBySource map[string]int `json:"new_by_source"`
}
