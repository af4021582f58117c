package ingestion

import (
	"context"
	"sync"

	"github.com/venuewatch/venuewatch/internal/models"
)

// Deduplicator decides whether an event with the identity key was already persisted.
// Matching is exact on title, venue name and calendar day.
type Deduplicator interface {
	Exists(ctx context.Context, title, venueName, date string) (bool, error)
}

// StoreDeduplicator answers dedup queries from the event repository.
type StoreDeduplicator struct {
	repo EventRepository
}

// NewStoreDeduplicator creates a deduplicator backed by repo.
func NewStoreDeduplicator(repo EventRepository) *StoreDeduplicator {
	return &StoreDeduplicator{repo: repo}
}

// Exists reports whether the repository holds an event with the identity key.
func (d *StoreDeduplicator) Exists(ctx context.Context, title, venueName, date string) (bool, error) {
	return d.repo.Exists(ctx, title, venueName, date)
}

// IsNew reports whether the candidate has not been persisted yet.
func (d *StoreDeduplicator) IsNew(ctx context.Context, candidate models.CandidateEvent) (bool, error) {
	exists, err := d.Exists(ctx, candidate.Title, candidate.VenueName, candidate.Date)
	return !exists, err
}

// PassDeduplicator tracks identity keys seen during one collection pass.
type PassDeduplicator struct {
	mu   sync.Mutex
	seen map[models.IdentityKey]struct{}
}

// NewPassDeduplicator creates an empty pass-scoped deduplicator.
func NewPassDeduplicator() *PassDeduplicator {
	return &PassDeduplicator{seen: make(map[models.IdentityKey]struct{})}
}

// IsNew checks if the candidate key has not been seen in this pass.
func (d *PassDeduplicator) IsNew(candidate models.CandidateEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[candidate.Key()]
	return !ok
}

// Mark records the candidate key as seen.
func (d *PassDeduplicator) Mark(candidate models.CandidateEvent) {
	d.mu.Lock()
	d.seen[candidate.Key()] = struct{}{}
	d.mu.Unlock()
}

// Filter returns candidates whose key was not seen before, marking them.
// The first occurrence of a key wins.
func (d *PassDeduplicator) Filter(candidates []models.CandidateEvent) []models.CandidateEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	unique := make([]models.CandidateEvent, 0, len(candidates))
	for _, c := range candidates {
		key := c.Key()
		if _, ok := d.seen[key]; ok {
			continue
		}
		d.seen[key] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}

// Len returns the number of distinct keys seen.
func (d *PassDeduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
