// Package eventmanager runs collection passes over the venue registry and
// moderates the events they persist.
package eventmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/ingestion"
	"github.com/venuewatch/venuewatch/internal/models"
)

// VenueSource lists the venues to collect for.
type VenueSource interface {
	All() []models.Venue
	SearchByName(name string) []models.Venue
	Len() int
}

// CandidateCollector gathers candidates for one venue.
type CandidateCollector interface {
	CollectAll(ctx context.Context, venue models.Venue) ingestion.CollectionResult
	CollectChannels(ctx context.Context, venue models.Venue, channels []models.SourceChannel) ingestion.CollectionResult
}

// Enricher fills in descriptions and images, and dictates the pause after each persisted event.
type Enricher interface {
	Enrich(ctx context.Context, candidate models.CandidateEvent) models.CandidateEvent
	Delay(kind models.CycleKind) time.Duration
}

// Notifier is told how many new events a pass persisted.
type Notifier interface {
	NewEvents(ctx context.Context, count int, source string) models.Notification
}

// CycleRecorder keeps a history of finished passes.
type CycleRecorder interface {
	Record(ctx context.Context, result models.CycleResult) error
}

// MetricsRecorder receives per-pass counters.
type MetricsRecorder interface {
	ObserveCandidates(source models.SourceChannel, n int)
	ObserveCycle(result models.CycleResult)
}

// Sleeper pauses for d. Passes use it for batch throttling and enrichment pacing.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config holds pass tuning.
type Config struct {
	BatchSize  int
	BatchDelay time.Duration
}

// DefaultConfig returns batches of three venues with one second between batches.
func DefaultConfig() Config {
	return Config{
		BatchSize:  3,
		BatchDelay: time.Second,
	}
}

// Orchestrator runs full and lightweight collection passes.
type Orchestrator struct {
	venues    VenueSource
	collector CandidateCollector
	repo      ingestion.EventRepository
	dedup     *ingestion.StoreDeduplicator
	enricher  Enricher
	notifier  Notifier
	clock     clock.Clock
	logger    *slog.Logger
	config    Config

	sleep       Sleeper
	retryPolicy ingestion.RetryPolicy
	recorder    CycleRecorder
	metrics     MetricsRecorder
	afterCycle  []func(context.Context, models.CycleResult)

	mu      sync.Mutex
	lastRun time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) { o.sleep = s }
}

// WithRetryPolicy sets the policy used for store calls.
func WithRetryPolicy(p ingestion.RetryPolicy) Option {
	return func(o *Orchestrator) { o.retryPolicy = p }
}

// WithCycleRecorder stores every finished pass.
func WithCycleRecorder(r CycleRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithMetrics reports pass counters.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithAfterCycle registers a hook run after every pass.
func WithAfterCycle(fn func(context.Context, models.CycleResult)) Option {
	return func(o *Orchestrator) { o.afterCycle = append(o.afterCycle, fn) }
}

// NewOrchestrator wires a pass runner.
func NewOrchestrator(
	venues VenueSource,
	collector CandidateCollector,
	repo ingestion.EventRepository,
	enricher Enricher,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	cfg Config,
	opts ...Option,
) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}

	o := &Orchestrator{
		venues:      venues,
		collector:   collector,
		repo:        repo,
		dedup:       ingestion.NewStoreDeduplicator(repo),
		enricher:    enricher,
		notifier:    notifier,
		clock:       clk,
		logger:      logger,
		config:      cfg,
		sleep:       sleepContext,
		retryPolicy: ingestion.StoreRetryPolicy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// outcome is what happened to one candidate.
type outcome int

const (
	outcomeNew outcome = iota
	outcomeDuplicate
	outcomeFailed
)

// tally accumulates counters across concurrently processed venues.
type tally struct {
	mu     sync.Mutex
	result *models.CycleResult
}

func (t *tally) add(source models.SourceChannel, o outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.result.Processed++
	switch o {
	case outcomeNew:
		t.result.New++
		t.result.NewBySource[string(source)]++
	case outcomeDuplicate:
		t.result.Duplicates++
	case outcomeFailed:
		t.result.Failed++
	}
}

// RunFullCycle collects every channel for every venue. Venues are processed in
// registry order in batches; venues within a batch run concurrently.
func (o *Orchestrator) RunFullCycle(ctx context.Context) (models.CycleResult, error) {
	venues := o.venues.All()
	result, t := o.begin(models.CycleFull, len(venues))

	o.logger.Info("starting full cycle", "venues", len(venues), "batch_size", o.config.BatchSize)

	for start := 0; start < len(venues); start += o.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return o.finish(ctx, result), fmt.Errorf("full cycle interrupted: %w", err)
		}
		if start > 0 && o.config.BatchDelay > 0 {
			if err := o.sleep(ctx, o.config.BatchDelay); err != nil {
				return o.finish(ctx, result), fmt.Errorf("full cycle interrupted: %w", err)
			}
		}

		end := min(start+o.config.BatchSize, len(venues))
		var wg sync.WaitGroup
		for _, venue := range venues[start:end] {
			wg.Add(1)
			go func(v models.Venue) {
				defer wg.Done()
				o.safeProcessVenue(ctx, v, models.CycleFull, nil, t)
			}(venue)
		}
		wg.Wait()
	}

	return o.finish(ctx, result), nil
}

// RunLightweightCycle polls only the social channels, one venue at a time.
func (o *Orchestrator) RunLightweightCycle(ctx context.Context) (models.CycleResult, error) {
	venues := o.venues.All()
	result, t := o.begin(models.CycleLightweight, len(venues))

	o.logger.Info("starting lightweight cycle", "venues", len(venues))

	for _, venue := range venues {
		if err := ctx.Err(); err != nil {
			return o.finish(ctx, result), fmt.Errorf("lightweight cycle interrupted: %w", err)
		}
		o.safeProcessVenue(ctx, venue, models.CycleLightweight, models.SocialChannels, t)
	}

	return o.finish(ctx, result), nil
}

// SearchVenue collects raw candidates for venues whose name contains name,
// case-insensitively. Nothing is stored.
func (o *Orchestrator) SearchVenue(ctx context.Context, name string) []models.CandidateEvent {
	matches := o.venues.SearchByName(name)
	o.logger.Info("searching venues", "query", name, "matches", len(matches))

	candidates := []models.CandidateEvent{}
	for _, venue := range matches {
		res := o.collector.CollectAll(ctx, venue)
		candidates = append(candidates, res.Candidates...)
	}
	return candidates
}

// LastRun returns when the most recent pass finished.
func (o *Orchestrator) LastRun() (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastRun, !o.lastRun.IsZero()
}

func (o *Orchestrator) begin(kind models.CycleKind, venues int) (*models.CycleResult, *tally) {
	result := &models.CycleResult{
		Kind:        kind,
		StartedAt:   o.clock.Now(),
		Venues:      venues,
		NewBySource: make(map[string]int),
	}
	return result, &tally{result: result}
}

func (o *Orchestrator) finish(ctx context.Context, result *models.CycleResult) models.CycleResult {
	finished := o.clock.Now()
	result.Duration = finished.Sub(result.StartedAt)

	o.mu.Lock()
	o.lastRun = finished
	o.mu.Unlock()

	o.logger.Info("cycle completed",
		"kind", result.Kind,
		"venues", result.Venues,
		"processed", result.Processed,
		"new", result.New,
		"duplicates", result.Duplicates,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds())

	if result.New > 0 && o.notifier != nil {
		o.notifier.NewEvents(ctx, result.New, notificationSource(result.Kind))
	}
	if o.metrics != nil {
		o.metrics.ObserveCycle(*result)
	}
	if o.recorder != nil {
		if err := o.recorder.Record(ctx, *result); err != nil {
			o.logger.Warn("failed to record cycle", "kind", result.Kind, "error", err)
		}
	}
	for _, hook := range o.afterCycle {
		hook(ctx, *result)
	}
	return *result
}

func notificationSource(kind models.CycleKind) string {
	if kind == models.CycleLightweight {
		return "social channels"
	}
	return "all sources"
}

// safeProcessVenue isolates a venue: a panic is logged and the venue skipped.
func (o *Orchestrator) safeProcessVenue(ctx context.Context, venue models.Venue, kind models.CycleKind, channels []models.SourceChannel, t *tally) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("venue processing panicked, skipping venue",
				"venue", venue.Name,
				"kind", kind,
				"panic", r)
		}
	}()
	o.processVenue(ctx, venue, kind, channels, t)
}

func (o *Orchestrator) processVenue(ctx context.Context, venue models.Venue, kind models.CycleKind, channels []models.SourceChannel, t *tally) {
	var res ingestion.CollectionResult
	if channels == nil {
		res = o.collector.CollectAll(ctx, venue)
	} else {
		res = o.collector.CollectChannels(ctx, venue, channels)
	}

	if o.metrics != nil {
		for channel, n := range res.PerChannel {
			o.metrics.ObserveCandidates(channel, n)
		}
	}
	if len(res.Failures) > 0 {
		o.logger.Warn("some channels failed for venue",
			"venue", venue.Name,
			"failed_channels", len(res.Failures))
	}

	newCount := 0
	for _, candidate := range res.Candidates {
		out := o.processCandidate(ctx, candidate, kind)
		t.add(candidate.Source, out)
		if out != outcomeNew {
			continue
		}
		newCount++
		if err := o.sleep(ctx, o.enricher.Delay(kind)); err != nil {
			o.logger.Warn("enrichment pacing interrupted", "venue", venue.Name, "error", err)
			return
		}
	}

	o.logger.Debug("venue processed",
		"venue", venue.Name,
		"kind", kind,
		"candidates", len(res.Candidates),
		"new", newCount)
}

func (o *Orchestrator) processCandidate(ctx context.Context, candidate models.CandidateEvent, kind models.CycleKind) outcome {
	isNew, err := ingestion.RetryValue(ctx, o.retryPolicy, func() (bool, error) {
		return o.dedup.IsNew(ctx, candidate)
	})
	if err != nil {
		o.logger.Error("dedup check failed",
			"title", candidate.Title,
			"venue", candidate.VenueName,
			"error", err)
		return outcomeFailed
	}
	if !isNew {
		return outcomeDuplicate
	}

	enriched := o.enricher.Enrich(ctx, candidate)

	event, err := ingestion.RetryValue(ctx, o.retryPolicy, func() (models.Event, error) {
		return o.repo.Save(ctx, enriched)
	})
	switch {
	case errors.Is(err, models.ErrDuplicateEvent):
		o.logger.Debug("event stored concurrently, counting as duplicate",
			"key", candidate.Key().String())
		return outcomeDuplicate
	case err != nil:
		o.logger.Error("failed to save event",
			"title", candidate.Title,
			"venue", candidate.VenueName,
			"kind", kind,
			"error", err)
		return outcomeFailed
	}

	o.logger.Debug("event saved", "event_id", event.ID, "key", event.Key().String())
	return outcomeNew
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
