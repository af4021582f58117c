package ingestion

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/models"
)

// EventRepository defines the interface for storing and retrieving events.
type EventRepository interface {
	// Save persists a candidate as a new pending event with a fresh ID and
	// timestamps. It returns models.ErrDuplicateEvent when an event with the
	// same identity key is already stored.
	Save(ctx context.Context, candidate models.CandidateEvent) (models.Event, error)

	// GetByID retrieves an event by its ID or returns models.ErrEventNotFound.
	GetByID(ctx context.Context, id string) (*models.Event, error)

	// Query returns events matching every set filter, ordered by date ascending,
	// truncated to the query limit.
	Query(ctx context.Context, query models.EventQuery) ([]models.Event, error)

	// List returns every stored event.
	List(ctx context.Context) ([]models.Event, error)

	// Exists reports whether an event with the identity key is stored.
	Exists(ctx context.Context, title, venueName, date string) (bool, error)

	// UpdateStatus changes the status of an event. Unknown IDs are a no-op.
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error

	// UpdateStatusIf changes the status only while it still equals from. It
	// reports whether the change was applied and returns
	// models.ErrEventNotFound for unknown IDs.
	UpdateStatusIf(ctx context.Context, id string, from, to models.EventStatus) (bool, error)

	// Delete removes an event by its ID.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)
}

// RepositoryOption customizes an in-process repository.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	clock clock.Clock
	newID func() string
}

// WithClock sets the clock used for event timestamps.
func WithClock(c clock.Clock) RepositoryOption {
	return func(o *repositoryOptions) { o.clock = c }
}

// WithIDGenerator overrides UUID event IDs.
func WithIDGenerator(fn func() string) RepositoryOption {
	return func(o *repositoryOptions) { o.newID = fn }
}

func buildOptions(opts []RepositoryOption) repositoryOptions {
	o := repositoryOptions{clock: clock.NewSystem(), newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MemoryEventRepository implements an in-memory event repository. The identity
// check and insert happen under one lock, so concurrent saves of the same key
// yield exactly one event.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[string]models.Event
	keys   map[models.IdentityKey]string // identity key -> ID
	opts   repositoryOptions
}

// NewMemoryEventRepository creates a new in-memory event repository.
func NewMemoryEventRepository(opts ...RepositoryOption) *MemoryEventRepository {
	return &MemoryEventRepository{
		events: make(map[string]models.Event),
		keys:   make(map[models.IdentityKey]string),
		opts:   buildOptions(opts),
	}
}

// Save stores a candidate as a pending event.
func (r *MemoryEventRepository) Save(ctx context.Context, candidate models.CandidateEvent) (models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := candidate.Key()
	if _, exists := r.keys[key]; exists {
		return models.Event{}, models.ErrDuplicateEvent
	}

	event := models.NewEventFromCandidate(r.opts.newID(), candidate, r.opts.clock.Now())
	r.events[event.ID] = event
	r.keys[key] = event.ID
	return event, nil
}

// GetByID retrieves an event by ID.
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return &event, nil
}

// Query retrieves events matching query parameters.
func (r *MemoryEventRepository) Query(ctx context.Context, query models.EventQuery) ([]models.Event, error) {
	r.mu.RLock()
	matching := make([]models.Event, 0)
	for _, event := range r.events {
		if query.Matches(event) {
			matching = append(matching, event)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matching, func(i, j int) bool { return models.Less(matching[i], matching[j]) })

	if query.Limit > 0 && len(matching) > query.Limit {
		matching = matching[:query.Limit]
	}
	return matching, nil
}

// List returns every event ordered by date.
func (r *MemoryEventRepository) List(ctx context.Context) ([]models.Event, error) {
	return r.Query(ctx, models.EventQuery{})
}

// Exists checks the identity key index.
func (r *MemoryEventRepository) Exists(ctx context.Context, title, venueName, date string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.keys[models.NewIdentityKey(title, venueName, date)]
	return ok, nil
}

// UpdateStatus changes an event's status.
func (r *MemoryEventRepository) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return nil
	}

	event.Status = status
	event.UpdatedAt = r.opts.clock.Now()
	r.events[id] = event
	return nil
}

// UpdateStatusIf changes an event's status when it currently equals from.
func (r *MemoryEventRepository) UpdateStatusIf(ctx context.Context, id string, from, to models.EventStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return false, models.ErrEventNotFound
	}
	if event.Status != from {
		return false, nil
	}

	event.Status = to
	event.UpdatedAt = r.opts.clock.Now()
	r.events[id] = event
	return true, nil
}

// Delete removes an event.
func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event, ok := r.events[id]; ok {
		delete(r.keys, event.Key())
		delete(r.events, id)
	}
	return nil
}

// Count returns the number of events.
func (r *MemoryEventRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events), nil
}

// snapshot copies every event, for persistence and rollback.
func (r *MemoryEventRepository) snapshot() []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// restore replaces the contents with events. Later duplicates of a key are dropped.
func (r *MemoryEventRepository) restore(events []models.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = make(map[string]models.Event, len(events))
	r.keys = make(map[models.IdentityKey]string, len(events))
	dropped := 0
	for _, e := range events {
		status, ok := models.ParseEventStatus(string(e.Status))
		if strings.TrimSpace(e.ID) == "" || !ok || !e.Source.IsValid() {
			dropped++
			continue
		}
		e.Status = status
		if _, dup := r.keys[e.Key()]; dup {
			dropped++
			continue
		}
		r.events[e.ID] = e
		r.keys[e.Key()] = e.ID
	}
	return dropped
}
