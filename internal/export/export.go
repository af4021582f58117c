// Package export writes event store snapshots as JSONL and ships them to
// destinations such as S3.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/models"
)

// EventLister lists every stored event.
type EventLister interface {
	List(ctx context.Context) ([]models.Event, error)
}

// header is the first JSONL record written by WriteJSONL.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	EventCount int       `json:"event_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string       `json:"type"`
	Data models.Event `json:"data"`
}

// WriteJSONL writes a header line followed by one line per event, ordered by
// date, time and title.
func WriteJSONL(ctx context.Context, lister EventLister, w io.Writer, now time.Time) (int, error) {
	events, err := lister.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return models.Less(events[i], events[j])
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    "1",
		Type:       "header",
		Timestamp:  now.UTC(),
		EventCount: len(events),
	}); err != nil {
		return 0, fmt.Errorf("encode header: %w", err)
	}

	for _, e := range events {
		if err := enc.Encode(record{Type: "event", Data: e}); err != nil {
			return 0, fmt.Errorf("encode event %s: %w", e.ID, err)
		}
	}
	return len(events), nil
}

// Destination receives a complete JSONL payload.
type Destination interface {
	Write(ctx context.Context, data []byte) error
}

// Exporter snapshots the store to every destination.
type Exporter struct {
	lister       EventLister
	destinations []Destination
	clock        clock.Clock
	logger       *slog.Logger
}

// NewExporter creates an exporter.
func NewExporter(lister EventLister, clk clock.Clock, logger *slog.Logger, destinations ...Destination) *Exporter {
	return &Exporter{
		lister:       lister,
		destinations: destinations,
		clock:        clk,
		logger:       logger,
	}
}

// Run writes one snapshot to each destination. A failing destination does not
// stop the others.
func (e *Exporter) Run(ctx context.Context) error {
	var buf bytes.Buffer
	count, err := WriteJSONL(ctx, e.lister, &buf, e.clock.Now())
	if err != nil {
		return err
	}

	var errs []error
	for _, d := range e.destinations {
		if err := d.Write(ctx, buf.Bytes()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}

	e.logger.Info("exported event snapshot",
		"events", count,
		"bytes", buf.Len(),
		"destinations", len(e.destinations))
	return nil
}

// AfterCycle exports after every full cycle that persisted new events.
func (e *Exporter) AfterCycle(ctx context.Context, result models.CycleResult) {
	if result.Kind != models.CycleFull || result.New == 0 {
		return
	}
	if err := e.Run(ctx); err != nil {
		e.logger.Warn("post-cycle export failed", "error", err)
	}
}
