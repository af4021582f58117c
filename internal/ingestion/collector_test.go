package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/venuewatch/venuewatch/internal/logging"
	"github.com/venuewatch/venuewatch/internal/models"
)

// stubCapability returns fixed candidates per channel, or an error.
type stubCapability struct {
	events map[models.SourceChannel][]models.CandidateEvent
	errs   map[models.SourceChannel]error
	panics map[models.SourceChannel]bool
}

func newStubCapability() *stubCapability {
	return &stubCapability{
		events: make(map[models.SourceChannel][]models.CandidateEvent),
		errs:   make(map[models.SourceChannel]error),
		panics: make(map[models.SourceChannel]bool),
	}
}

func (s *stubCapability) Name() string { return "stub" }

func (s *stubCapability) Fetch(ctx context.Context, channel models.SourceChannel, venue models.Venue) ([]models.CandidateEvent, error) {
	if s.panics[channel] {
		panic("boom")
	}
	if err := s.errs[channel]; err != nil {
		return nil, err
	}
	out := make([]models.CandidateEvent, len(s.events[channel]))
	copy(out, s.events[channel])
	return out, nil
}

func (s *stubCapability) HealthCheck(ctx context.Context) error { return nil }

func TestChannelCollector_StampsVenueAndChannel(t *testing.T) {
	stub := newStubCapability()
	stub.events[models.SourceChannelA] = []models.CandidateEvent{{Title: "Jazz Night", Date: "2026-05-10"}}

	c := NewChannelACollector(stub, logging.Discard())
	venue := testVenue()

	got, err := c.Collect(context.Background(), venue)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	e := got[0]
	if e.Source != models.SourceChannelA || e.VenueID != venue.ID || e.VenueName != venue.Name {
		t.Errorf("candidate not stamped: %+v", e)
	}
	if e.City != "Valencia" || e.Category != "music" {
		t.Errorf("city/category defaults not applied: %+v", e)
	}

	status := c.Status()
	if status.TotalCollected != 1 || !status.Healthy {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestChannelCollector_SkipsVenueWithoutHandle(t *testing.T) {
	stub := newStubCapability()
	stub.events[models.SourceChannelB] = []models.CandidateEvent{{Title: "Never", Date: "2026-05-10"}}

	c := NewChannelBCollector(stub, logging.Discard())
	venue := testVenue()
	venue.ChannelB = ""

	got, err := c.Collect(context.Background(), venue)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
	if c.Status().Skipped != 1 {
		t.Errorf("expected skipped count 1, got %d", c.Status().Skipped)
	}
}

func TestChannelCollector_RecordsErrors(t *testing.T) {
	stub := newStubCapability()
	stub.errs[models.SourceWebsite] = errors.New("unreachable")

	c := NewWebsiteCollector(stub, logging.Discard())
	if _, err := c.Collect(context.Background(), testVenue()); err == nil {
		t.Fatal("expected error")
	}

	status := c.Status()
	if status.Healthy || status.TotalErrors != 1 || status.LastError != "unreachable" {
		t.Errorf("unexpected status %+v", status)
	}
}
