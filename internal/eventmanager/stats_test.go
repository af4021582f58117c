package eventmanager

import (
	"context"
	"testing"
	"time"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/ingestion"
	"github.com/venuewatch/venuewatch/internal/models"
)

type fakeAutomation struct {
	running bool
}

func (f fakeAutomation) IsRunning() bool             { return f.running }
func (f fakeAutomation) Frequency() string           { return "full cycle every 1h" }
func (f fakeAutomation) FullInterval() time.Duration { return time.Hour }

type fixedLastRun struct {
	at time.Time
}

func (f fixedLastRun) LastRun() (time.Time, bool) { return f.at, !f.at.IsZero() }

type fakeStatuses []ingestion.CollectorStatus

func (f fakeStatuses) Statuses() []ingestion.CollectorStatus { return f }

func TestComputeStats(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	vlc := testVenue("loco", "Loco Club")
	mad := testVenue("sala", "Sala Sol")
	mad.City = "Madrid"

	a, _ := repo.Save(ctx, cand(vlc, "Jazz Night", "2024-07-05", models.SourceWebsite))
	b, _ := repo.Save(ctx, cand(vlc, "Latin Night", "2024-07-06", models.SourceChannelA))
	_, _ = repo.Save(ctx, cand(mad, "Flamenco", "2024-07-07", models.SourceChannelA))
	_ = repo.UpdateStatus(ctx, a.ID, models.EventStatusApproved)
	_ = repo.UpdateStatus(ctx, b.ID, models.EventStatusRejected)

	registry := testRegistry(t, vlc, mad)
	clk := clock.NewManual(testNow)

	t.Run("stopped", func(t *testing.T) {
		svc := NewStatsService(repo, registry, fakeAutomation{}, fixedLastRun{}, nil, clk)
		stats, err := svc.ComputeStats(ctx)
		if err != nil {
			t.Fatalf("ComputeStats: %v", err)
		}
		if stats.TotalEvents != 3 || stats.PendingEvents != 1 || stats.ApprovedEvents != 1 || stats.RejectedEvents != 1 {
			t.Errorf("unexpected counts %+v", stats)
		}
		if stats.BySource["channel-a"] != 2 || stats.BySource["website"] != 1 {
			t.Errorf("unexpected by-source %v", stats.BySource)
		}
		if stats.ByVenue["Loco Club"] != 2 || stats.ByCity["Madrid"] != 1 {
			t.Errorf("unexpected grouping venue=%v city=%v", stats.ByVenue, stats.ByCity)
		}
		if stats.MonitoredVenues != 2 {
			t.Errorf("expected 2 monitored venues, got %d", stats.MonitoredVenues)
		}
		if stats.SystemStatus != "stopped" || stats.NextUpdate != nil || stats.LastUpdate != nil {
			t.Errorf("unexpected stopped state %+v", stats)
		}
	})

	t.Run("running", func(t *testing.T) {
		last := testNow.Add(-10 * time.Minute)
		svc := NewStatsService(repo, registry, fakeAutomation{running: true}, fixedLastRun{at: last}, nil, clk)
		stats, err := svc.ComputeStats(ctx)
		if err != nil {
			t.Fatalf("ComputeStats: %v", err)
		}
		if stats.SystemStatus != "running" || stats.UpdateFrequency == "" {
			t.Errorf("unexpected running state %+v", stats)
		}
		if stats.NextUpdate == nil || !stats.NextUpdate.Equal(testNow.Add(time.Hour)) {
			t.Errorf("expected next update one hour out, got %v", stats.NextUpdate)
		}
		if stats.LastUpdate == nil || !stats.LastUpdate.Equal(last) {
			t.Errorf("expected last update %v, got %v", last, stats.LastUpdate)
		}
	})

	t.Run("snapshot", func(t *testing.T) {
		statuses := fakeStatuses{{Channel: models.SourceWebsite, Healthy: true}}
		svc := NewStatsService(repo, registry, nil, nil, statuses, clk)
		snap, err := svc.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if snap.TotalEvents != 3 || len(snap.Collectors) != 1 {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})
}
