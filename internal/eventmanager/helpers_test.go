package eventmanager

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/ingestion"
	"github.com/venuewatch/venuewatch/internal/logging"
	"github.com/venuewatch/venuewatch/internal/models"
	"github.com/venuewatch/venuewatch/internal/venues"
)

var testNow = time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

func testVenue(id, name string) models.Venue {
	return models.Venue{
		ID:       id,
		Name:     name,
		City:     "Valencia",
		Category: "nightlife",
		Website:  "https://" + id + ".example",
		ChannelA: id,
		ChannelB: id + ".vlc",
	}
}

func testRegistry(t *testing.T, vs ...models.Venue) *venues.Registry {
	t.Helper()
	r, err := venues.New(vs)
	if err != nil {
		t.Fatalf("venues.New: %v", err)
	}
	return r
}

func cand(v models.Venue, title, date string, source models.SourceChannel) models.CandidateEvent {
	return models.CandidateEvent{
		Title:     title,
		VenueID:   v.ID,
		VenueName: v.Name,
		Date:      date,
		Time:      "22:00",
		City:      v.City,
		Category:  v.Category,
		Price:     "€10",
		Source:    source,
	}
}

// stubCollector returns fixed candidates per venue ID.
type stubCollector struct {
	mu       sync.Mutex
	byVenue  map[string][]models.CandidateEvent
	panics   map[string]bool
	channels [][]models.SourceChannel
	calls    []string

	entered chan string
	block   chan struct{}
}

func newStubCollector() *stubCollector {
	return &stubCollector{
		byVenue: make(map[string][]models.CandidateEvent),
		panics:  make(map[string]bool),
	}
}

func (s *stubCollector) CollectAll(ctx context.Context, venue models.Venue) ingestion.CollectionResult {
	return s.collect(venue, nil)
}

func (s *stubCollector) CollectChannels(ctx context.Context, venue models.Venue, channels []models.SourceChannel) ingestion.CollectionResult {
	s.mu.Lock()
	s.channels = append(s.channels, channels)
	s.mu.Unlock()
	return s.collect(venue, channels)
}

func (s *stubCollector) collect(venue models.Venue, channels []models.SourceChannel) ingestion.CollectionResult {
	if s.entered != nil {
		s.entered <- venue.ID
	}
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	s.calls = append(s.calls, venue.ID)
	panics := s.panics[venue.ID]
	all := slices.Clone(s.byVenue[venue.ID])
	s.mu.Unlock()

	if panics {
		panic("collector exploded for " + venue.ID)
	}

	res := ingestion.CollectionResult{
		Venue:      venue,
		PerChannel: make(map[models.SourceChannel]int),
		Failures:   make(map[models.SourceChannel]error),
	}
	for _, c := range all {
		if channels != nil && !slices.Contains(channels, c.Source) {
			continue
		}
		res.Candidates = append(res.Candidates, c)
		res.PerChannel[c.Source]++
	}
	return res
}

func (s *stubCollector) visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

type fakeEnricher struct {
	full  time.Duration
	light time.Duration
}

func (f fakeEnricher) Enrich(ctx context.Context, c models.CandidateEvent) models.CandidateEvent {
	c.Description = "enriched: " + c.Title
	c.ImageURL = "https://img.example/" + c.Category + ".jpg"
	return c
}

func (f fakeEnricher) Delay(kind models.CycleKind) time.Duration {
	if kind == models.CycleLightweight {
		return f.light
	}
	return f.full
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (n *recordingNotifier) NewEvents(ctx context.Context, count int, source string) models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	note := models.Notification{Type: models.NotificationNewEvents, Count: count, Source: source}
	n.notes = append(n.notes, note)
	return note
}

func (n *recordingNotifier) all() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.notes)
}

// recordingSleeper records requested pauses without sleeping.
type recordingSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slept = append(r.slept, d)
	return nil
}

func (r *recordingSleeper) count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.slept {
		if s == d {
			n++
		}
	}
	return n
}

type recordingRecorder struct {
	mu      sync.Mutex
	results []models.CycleResult
	err     error
}

func (r *recordingRecorder) Record(ctx context.Context, result models.CycleResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return r.err
}

// failingRepo fails every save with a retryable error.
type failingRepo struct {
	*ingestion.MemoryEventRepository
	mu    sync.Mutex
	saves int
}

func (f *failingRepo) Save(ctx context.Context, c models.CandidateEvent) (models.Event, error) {
	f.mu.Lock()
	f.saves++
	f.mu.Unlock()
	return models.Event{}, ingestion.NewRetryableError(errors.New("connection reset"))
}

func fastRetry() ingestion.RetryPolicy {
	return ingestion.RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, BackoffFactor: 2}
}

func newMemoryRepo() *ingestion.MemoryEventRepository {
	return ingestion.NewMemoryEventRepository(ingestion.WithClock(clock.NewManual(testNow)))
}

type harness struct {
	orch      *Orchestrator
	repo      ingestion.EventRepository
	collector *stubCollector
	notifier  *recordingNotifier
	sleeper   *recordingSleeper
}

func newHarness(t *testing.T, repo ingestion.EventRepository, vs []models.Venue, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		repo:      repo,
		collector: newStubCollector(),
		notifier:  &recordingNotifier{},
		sleeper:   &recordingSleeper{},
	}
	opts = append([]Option{WithSleeper(h.sleeper.sleep), WithRetryPolicy(fastRetry())}, opts...)
	h.orch = NewOrchestrator(
		testRegistry(t, vs...),
		h.collector,
		repo,
		fakeEnricher{full: 300 * time.Millisecond, light: time.Second},
		h.notifier,
		clock.NewManual(testNow),
		logging.Discard(),
		DefaultConfig(),
		opts...,
	)
	return h
}
