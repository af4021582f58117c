// Package notify records and fans out operator notifications about collection activity.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/idgen"
	"github.com/venuewatch/venuewatch/internal/models"
)

// DefaultRingCapacity bounds the in-memory notification list.
const DefaultRingCapacity = 50

// Sink receives notifications.
type Sink interface {
	Notify(ctx context.Context, n models.Notification) error
}

// RingSink keeps the most recent notifications in memory, newest first.
type RingSink struct {
	mu       sync.RWMutex
	capacity int
	items    []models.Notification
}

// NewRingSink creates a ring holding at most capacity notifications.
func NewRingSink(capacity int) *RingSink {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &RingSink{capacity: capacity, items: make([]models.Notification, 0, capacity)}
}

// Notify prepends n and drops the oldest entries beyond capacity.
func (r *RingSink) Notify(ctx context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, models.Notification{})
	copy(r.items[1:], r.items)
	r.items[0] = n
	if len(r.items) > r.capacity {
		r.items = r.items[:r.capacity]
	}
	return nil
}

// List returns a copy of the stored notifications, newest first.
func (r *RingSink) List() []models.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of stored notifications.
func (r *RingSink) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// MultiSink delivers to every sink. One failing sink does not stop the others.
type MultiSink struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewMultiSink fans notifications out to sinks in order.
func NewMultiSink(logger *slog.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: logger}
}

// Notify delivers n to each sink and joins the errors.
func (m *MultiSink) Notify(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, n); err != nil {
			m.logger.Warn("notification sink failed", "sink", fmt.Sprintf("%T", s), "id", n.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notifier builds notifications and hands them to a sink.
type Notifier struct {
	sink   Sink
	clock  clock.Clock
	logger *slog.Logger
}

// NewNotifier creates a notifier delivering to sink.
func NewNotifier(sink Sink, clk clock.Clock, logger *slog.Logger) *Notifier {
	return &Notifier{sink: sink, clock: clk, logger: logger}
}

// NewEvents records that count new events were persisted by a pass tagged source.
func (n *Notifier) NewEvents(ctx context.Context, count int, source string) models.Notification {
	noun := "events"
	if count == 1 {
		noun = "event"
	}
	return n.emit(ctx, models.Notification{
		Message: fmt.Sprintf("%d new %s found (%s)", count, noun, source),
		Type:    models.NotificationNewEvents,
		Source:  source,
		Count:   count,
	})
}

func (n *Notifier) emit(ctx context.Context, note models.Notification) models.Notification {
	id, err := idgen.Notification()
	if err != nil {
		n.logger.Error("failed to generate notification id", "error", err)
		id = fmt.Sprintf("ntf-%d", n.clock.Now().UnixNano())
	}
	note.ID = id
	note.Timestamp = n.clock.Now()

	if err := n.sink.Notify(ctx, note); err != nil {
		n.logger.Warn("notification delivery incomplete", "id", note.ID, "error", err)
	}
	return note
}
