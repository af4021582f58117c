package models

import "time"

// NotificationType tags what a notification reports.
type NotificationType string

const (
	NotificationNewEvents NotificationType = "new_events"
)

// Notification is a short operator-facing message about collection activity.
type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Type      NotificationType `json:"type"`
	Source    string           `json:"source,omitempty"`
	Count     int              `json:"count,omitempty"`
}
