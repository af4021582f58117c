package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/venuewatch/venuewatch/internal/models"
)

// CycleRunRepository stores the history of collection passes.
type CycleRunRepository struct {
	db *sqlx.DB
}

// NewCycleRunRepository creates a new cycle run repository.
func NewCycleRunRepository(db *sqlx.DB) *CycleRunRepository {
	return &CycleRunRepository{db: db}
}

type cycleRunRow struct {
	ID          string    `db:"id"`
	Kind        string    `db:"kind"`
	StartedAt   time.Time `db:"started_at"`
	DurationMs  int64     `db:"duration_ms"`
	Venues      int       `db:"venues"`
	Processed   int       `db:"processed"`
	NewEvents   int       `db:"new_events"`
	Duplicates  int       `db:"duplicates"`
	Failed      int       `db:"failed"`
	NewBySource []byte    `db:"new_by_source"`
}

// Record stores a finished pass.
func (r *CycleRunRepository) Record(ctx context.Context, result models.CycleResult) error {
	var bySource []byte
	if result.NewBySource != nil {
		var err error
		bySource, err = json.Marshal(result.NewBySource)
		if err != nil {
			return fmt.Errorf("failed to marshal per-source counts: %w", err)
		}
	}

	query := `
		INSERT INTO cycle_runs (id, kind, started_at, duration_ms, venues, processed, new_events, duplicates, failed, new_by_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(),
		string(result.Kind),
		result.StartedAt,
		result.Duration.Milliseconds(),
		result.Venues,
		result.Processed,
		result.New,
		result.Duplicates,
		result.Failed,
		bySource,
	)
	if err != nil {
		return fmt.Errorf("failed to record cycle run: %w", err)
	}
	return nil
}

// Recent returns the latest passes, newest first.
func (r *CycleRunRepository) Recent(ctx context.Context, limit int) ([]models.CycleResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}

	var rows []cycleRunRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, kind, started_at, duration_ms, venues, processed, new_events, duplicates, failed, new_by_source
		FROM cycle_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycle runs: %w", err)
	}

	results := make([]models.CycleResult, 0, len(rows))
	for _, row := range rows {
		result := models.CycleResult{
			Kind:       models.CycleKind(row.Kind),
			StartedAt:  row.StartedAt,
			Duration:   time.Duration(row.DurationMs) * time.Millisecond,
			Venues:     row.Venues,
			Processed:  row.Processed,
			New:        row.NewEvents,
			Duplicates: row.Duplicates,
			Failed:     row.Failed,
		}
		if len(row.NewBySource) > 0 {
			if err := json.Unmarshal(row.NewBySource, &result.NewBySource); err != nil {
				return nil, fmt.Errorf("failed to unmarshal per-source counts: %w", err)
			}
		}
		results = append(results, result)
	}
	return results, nil
}
