package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/venuewatch/venuewatch/internal/models"
)

// fileFormatVersion is written into every snapshot.
const fileFormatVersion = 1

type fileSnapshot struct {
	Version int            `json:"version"`
	Events  []models.Event `json:"events"`
}

// FileEventRepository keeps events in memory and rewrites the whole collection
// to a JSON file after every successful mutation. A failed write rolls the
// in-memory change back and returns a RetryableError.
type FileEventRepository struct {
	path   string
	mem    *MemoryEventRepository
	logger *slog.Logger

	writeMu sync.Mutex
}

// NewFileEventRepository loads path if it exists and returns a write-through repository.
func NewFileEventRepository(path string, logger *slog.Logger, opts ...RepositoryOption) (*FileEventRepository, error) {
	r := &FileEventRepository{
		path:   path,
		mem:    NewMemoryEventRepository(opts...),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("event store file not found, starting empty", "path", path)
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("read event store %s: %w", path, err)
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode event store %s: %w", path, err)
	}
	if dropped := r.mem.restore(snap.Events); dropped > 0 {
		logger.Warn("dropped invalid or duplicate events while loading store", "path", path, "dropped", dropped)
	}
	logger.Info("event store loaded", "path", path, "events", len(snap.Events))
	return r, nil
}

// Save stores the candidate and persists the collection.
func (r *FileEventRepository) Save(ctx context.Context, candidate models.CandidateEvent) (models.Event, error) {
	var saved models.Event
	err := r.mutate(func() error {
		var err error
		saved, err = r.mem.Save(ctx, candidate)
		return err
	})
	return saved, err
}

// GetByID retrieves an event by ID.
func (r *FileEventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	return r.mem.GetByID(ctx, id)
}

// Query retrieves events matching query parameters.
func (r *FileEventRepository) Query(ctx context.Context, query models.EventQuery) ([]models.Event, error) {
	return r.mem.Query(ctx, query)
}

// List returns every event.
func (r *FileEventRepository) List(ctx context.Context) ([]models.Event, error) {
	return r.mem.List(ctx)
}

// Exists checks the identity key index.
func (r *FileEventRepository) Exists(ctx context.Context, title, venueName, date string) (bool, error) {
	return r.mem.Exists(ctx, title, venueName, date)
}

// UpdateStatus changes an event's status and persists the collection.
func (r *FileEventRepository) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	return r.mutate(func() error {
		return r.mem.UpdateStatus(ctx, id, status)
	})
}

// UpdateStatusIf changes an event's status when it currently equals from and
// persists the collection.
func (r *FileEventRepository) UpdateStatusIf(ctx context.Context, id string, from, to models.EventStatus) (bool, error) {
	var applied bool
	err := r.mutate(func() error {
		var err error
		applied, err = r.mem.UpdateStatusIf(ctx, id, from, to)
		return err
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Delete removes an event and persists the collection.
func (r *FileEventRepository) Delete(ctx context.Context, id string) error {
	return r.mutate(func() error {
		return r.mem.Delete(ctx, id)
	})
}

// Count returns the number of events.
func (r *FileEventRepository) Count(ctx context.Context) (int, error) {
	return r.mem.Count(ctx)
}

func (r *FileEventRepository) mutate(apply func() error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	before := r.mem.snapshot()
	if err := apply(); err != nil {
		return err
	}

	if err := r.persist(r.mem.snapshot()); err != nil {
		r.mem.restore(before)
		r.logger.Error("failed to persist event store, change rolled back", "path", r.path, "error", err)
		return NewRetryableError(fmt.Errorf("persist event store: %w", err))
	}
	return nil
}

// persist writes to a temp file in the same directory and renames it over the target.
func (r *FileEventRepository) persist(events []models.Event) error {
	data, err := json.MarshalIndent(fileSnapshot{Version: fileFormatVersion, Events: events}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".events-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
