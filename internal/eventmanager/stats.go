package eventmanager

import (
	"context"
	"fmt"
	"time"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/ingestion"
	"github.com/venuewatch/venuewatch/internal/models"
)

// AutomationState reports scheduler state for stats.
type AutomationState interface {
	IsRunning() bool
	Frequency() string
	FullInterval() time.Duration
}

// LastRunSource reports when the latest pass finished.
type LastRunSource interface {
	LastRun() (time.Time, bool)
}

// CollectorStatusSource exposes per-channel collector health.
type CollectorStatusSource interface {
	Statuses() []ingestion.CollectorStatus
}

// Snapshot is the stats view returned to operators.
type Snapshot struct {
	models.CycleStats
	Collectors []ingestion.CollectorStatus `json:"collectors,omitempty"`
}

// StatsService derives aggregate counters from the event store.
type StatsService struct {
	repo       ingestion.EventRepository
	venues     VenueSource
	automation AutomationState
	lastRun    LastRunSource
	collectors CollectorStatusSource
	clock      clock.Clock
}

// NewStatsService creates a stats service. automation, lastRun and collectors may be nil.
func NewStatsService(repo ingestion.EventRepository, venues VenueSource, automation AutomationState, lastRun LastRunSource, collectors CollectorStatusSource, clk clock.Clock) *StatsService {
	return &StatsService{
		repo:       repo,
		venues:     venues,
		automation: automation,
		lastRun:    lastRun,
		collectors: collectors,
		clock:      clk,
	}
}

// ComputeStats groups every stored event by status, source, venue and city.
func (s *StatsService) ComputeStats(ctx context.Context) (models.CycleStats, error) {
	stats := models.CycleStats{
		BySource:     make(map[string]int),
		ByVenue:      make(map[string]int),
		ByCity:       make(map[string]int),
		SystemStatus: "stopped",
	}
	if s.venues != nil {
		stats.MonitoredVenues = s.venues.Len()
	}

	if s.automation != nil {
		stats.UpdateFrequency = s.automation.Frequency()
		if s.automation.IsRunning() {
			stats.SystemStatus = "running"
			next := s.clock.Now().Add(s.automation.FullInterval())
			stats.NextUpdate = &next
		}
	}
	if s.lastRun != nil {
		if last, ok := s.lastRun.LastRun(); ok {
			stats.LastUpdate = &last
		}
	}

	events, err := s.repo.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list events: %w", err)
	}

	stats.TotalEvents = len(events)
	for _, e := range events {
		switch e.Status {
		case models.EventStatusPending:
			stats.PendingEvents++
		case models.EventStatusApproved:
			stats.ApprovedEvents++
		case models.EventStatusRejected:
			stats.RejectedEvents++
		}
		stats.BySource[string(e.Source)]++
		stats.ByVenue[e.VenueName]++
		stats.ByCity[e.City]++
	}
	return stats, nil
}

// Snapshot returns the stats plus collector status. A store failure still
// yields the non-store fields.
func (s *StatsService) Snapshot(ctx context.Context) (Snapshot, error) {
	stats, err := s.ComputeStats(ctx)
	snap := Snapshot{CycleStats: stats}
	if s.collectors != nil {
		snap.Collectors = s.collectors.Statuses()
	}
	return snap, err
}
