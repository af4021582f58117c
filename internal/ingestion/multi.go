package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/venuewatch/venuewatch/internal/models"
)

// CollectionResult is the merged outcome of running several collectors for one venue.
type CollectionResult struct {
	Venue      models.Venue
	Candidates []models.CandidateEvent
	PerChannel map[models.SourceChannel]int
	Failures   map[models.SourceChannel]error
	Duplicates int // dropped within this pass
}

// MultiCollector runs every collector for a venue concurrently and merges the results.
type MultiCollector struct {
	collectors []Collector
	logger     *slog.Logger
}

// NewMultiCollector creates a collector set. Collector order fixes merge order,
// so earlier collectors win identity-key ties.
func NewMultiCollector(collectors []Collector, logger *slog.Logger) *MultiCollector {
	return &MultiCollector{
		collectors: collectors,
		logger:     logger,
	}
}

// CollectAll runs every collector for the venue.
func (m *MultiCollector) CollectAll(ctx context.Context, venue models.Venue) CollectionResult {
	return m.collect(ctx, venue, m.collectors)
}

// CollectChannels runs only the collectors serving the given channels.
func (m *MultiCollector) CollectChannels(ctx context.Context, venue models.Venue, channels []models.SourceChannel) CollectionResult {
	selected := make([]Collector, 0, len(channels))
	for _, c := range m.collectors {
		if slices.Contains(channels, c.Channel()) {
			selected = append(selected, c)
		}
	}
	return m.collect(ctx, venue, selected)
}

func (m *MultiCollector) collect(ctx context.Context, venue models.Venue, collectors []Collector) CollectionResult {
	type outcome struct {
		candidates []models.CandidateEvent
		err        error
	}
	outcomes := make([]outcome, len(collectors))

	var wg sync.WaitGroup
	for i, c := range collectors {
		wg.Add(1)
		go func(i int, c Collector) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i].err = fmt.Errorf("collector panic: %v", r)
				}
			}()
			outcomes[i].candidates, outcomes[i].err = c.Collect(ctx, venue)
		}(i, c)
	}
	wg.Wait()

	result := CollectionResult{
		Venue:      venue,
		PerChannel: make(map[models.SourceChannel]int),
		Failures:   make(map[models.SourceChannel]error),
	}

	var merged []models.CandidateEvent
	for i, c := range collectors {
		o := outcomes[i]
		if o.err != nil {
			m.logger.Warn("collector failed",
				"venue", venue.Name,
				"channel", c.Channel(),
				"error", o.err,
			)
			result.Failures[c.Channel()] = o.err
			continue
		}
		result.PerChannel[c.Channel()] = len(o.candidates)
		merged = append(merged, o.candidates...)
	}

	result.Candidates = NewPassDeduplicator().Filter(merged)
	result.Duplicates = len(merged) - len(result.Candidates)

	m.logger.Debug("venue collection complete",
		"venue", venue.Name,
		"raw_count", len(merged),
		"unique", len(result.Candidates),
		"failed_channels", len(result.Failures),
	)
	return result
}

// Channels returns the channels covered, in collector order.
func (m *MultiCollector) Channels() []models.SourceChannel {
	out := make([]models.SourceChannel, 0, len(m.collectors))
	for _, c := range m.collectors {
		out = append(out, c.Channel())
	}
	return out
}

// Statuses returns a status snapshot for every collector.
func (m *MultiCollector) Statuses() []CollectorStatus {
	out := make([]CollectorStatus, 0, len(m.collectors))
	for _, c := range m.collectors {
		out = append(out, c.Status())
	}
	return out
}

// HealthCheck checks the health of all collectors.
func (m *MultiCollector) HealthCheck(ctx context.Context) map[models.SourceChannel]error {
	results := make(map[models.SourceChannel]error, len(m.collectors))
	for _, c := range m.collectors {
		results[c.Channel()] = c.HealthCheck(ctx)
	}
	return results
}
