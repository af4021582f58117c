package models

import "strings"

// EventQuery filters stored events. Empty fields match everything.
type EventQuery struct {
	City     string      `json:"city,omitempty"`
	Category string      `json:"category,omitempty"`
	Status   EventStatus `json:"status,omitempty"`
	Limit    int         `json:"limit,omitempty"`
}

// Matches reports whether the event satisfies every set filter.
// City and category comparisons are case-insensitive.
func (q EventQuery) Matches(e Event) bool {
	if q.City != "" && !strings.EqualFold(q.City, e.City) {
		return false
	}
	if q.Category != "" && !strings.EqualFold(q.Category, e.Category) {
		return false
	}
	if q.Status != "" && q.Status != e.Status {
		return false
	}
	return true
}

// Less orders events by date ascending, then time, then title for stability.
func Less(a, b Event) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	return a.Title < b.Title
}
