package models

import (
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for event dates and identity keys.
const DateLayout = "2006-01-02"

// SourceChannel identifies the channel a candidate event was collected from.
type SourceChannel string

const (
	SourceWebsite  SourceChannel = "website"
	SourceChannelA SourceChannel = "channel-a"
	SourceChannelB SourceChannel = "channel-b"
)

// AllSourceChannels lists every collector channel in collection order.
var AllSourceChannels = []SourceChannel{SourceWebsite, SourceChannelA, SourceChannelB}

// SocialChannels are the channels polled by the lightweight monitoring pass.
var SocialChannels = []SourceChannel{SourceChannelA, SourceChannelB}

// IsValid reports whether the channel is one of the known collector channels.
func (c SourceChannel) IsValid() bool {
	return slices.Contains(AllSourceChannels, c)
}

// CandidateEvent is a freshly collected event record that has not been persisted yet.
type CandidateEvent struct {
	Title       string        `json:"title"`
	VenueID     string        `json:"venue_id"`
	VenueName   string        `json:"venue_name"`
	Date        string        `json:"date"` // YYYY-MM-DD
	Time        string        `json:"time"` // HH:MM
	City        string        `json:"city"`
	Category    string        `json:"category"`
	Price       string        `json:"price"`
	Description string        `json:"description"`
	Source      SourceChannel `json:"source"`
	SourceURL   string        `json:"source_url"`
	ImageURL    string        `json:"image_url,omitempty"`
}

// Key returns the identity key of the candidate.
func (c CandidateEvent) Key() IdentityKey {
	return NewIdentityKey(c.Title, c.VenueName, c.Date)
}

// Event is a persisted, status-tracked event awaiting or past moderation.
type Event struct {
	ID              string        `json:"id" db:"id"`
	Title           string        `json:"title" db:"title"`
	VenueID         string        `json:"venue_id" db:"venue_id"`
	VenueName       string        `json:"venue_name" db:"venue_name"`
	Date            string        `json:"date" db:"event_date"`
	Time            string        `json:"time" db:"event_time"`
	City            string        `json:"city" db:"city"`
	Category        string        `json:"category" db:"category"`
	Price           string        `json:"price" db:"price"`
	Description     string        `json:"description" db:"description"`
	Source          SourceChannel `json:"source" db:"source"`
	SourceURL       string        `json:"source_url" db:"source_url"`
	ImageURL        string        `json:"image_url,omitempty" db:"image_url"`
	Status          EventStatus   `json:"status" db:"status"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
	LastCollectedAt time.Time     `json:"last_collected_at" db:"last_collected_at"`
}

// Key returns the identity key of the event.
func (e Event) Key() IdentityKey {
	return NewIdentityKey(e.Title, e.VenueName, e.Date)
}

// NewEventFromCandidate builds a pending event from a candidate. The caller assigns the ID.
func NewEventFromCandidate(id string, c CandidateEvent, now time.Time) Event {
	return Event{
		ID:              id,
		Title:           c.Title,
		VenueID:         c.VenueID,
		VenueName:       c.VenueName,
		Date:            c.Date,
		Time:            c.Time,
		City:            c.City,
		Category:        c.Category,
		Price:           c.Price,
		Description:     c.Description,
		Source:          c.Source,
		SourceURL:       c.SourceURL,
		ImageURL:        c.ImageURL,
		Status:          EventStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastCollectedAt: now,
	}
}

// EventStatus represents the moderation state of an event.
type EventStatus string

const (
	EventStatusPending  EventStatus = "pending"
	EventStatusApproved EventStatus = "approved"
	EventStatusRejected EventStatus = "rejected"
)

// IsValid reports whether the status is a known moderation state.
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusPending, EventStatusApproved, EventStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Only pending events can be moderated.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if s != EventStatusPending {
		return false
	}
	return next == EventStatusApproved || next == EventStatusRejected
}

// ParseEventStatus converts a case-insensitive string into an EventStatus.
func ParseEventStatus(raw string) (EventStatus, bool) {
	status := EventStatus(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.IsValid()
}

// IdentityKey is the dedup identity of an event: title, venue name and calendar day.
// Time of day is not part of the key.
type IdentityKey struct {
	Title     string
	VenueName string
	Date      string
}

// NewIdentityKey builds an identity key from its parts.
func NewIdentityKey(title, venueName, date string) IdentityKey {
	return IdentityKey{Title: title, VenueName: venueName, Date: date}
}

// String renders the key for logging and map indexing.
func (k IdentityKey) String() string {
	return k.Title + "|" + k.VenueName + "|" + k.Date
}
