package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/ingestion"
	"github.com/venuewatch/venuewatch/internal/models"
)

const eventColumns = `id, title, venue_id, venue_name, event_date, event_time, city, category,
	price, description, source, source_url, image_url, status, created_at, updated_at, last_collected_at`

// PostgresEventRepository implements ingestion.EventRepository on PostgreSQL.
// The identity key is enforced by the events_identity_key unique constraint.
type PostgresEventRepository struct {
	db    *sqlx.DB
	clock clock.Clock
	newID func() string
}

var _ ingestion.EventRepository = (*PostgresEventRepository)(nil)

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(db *sqlx.DB, clk clock.Clock) *PostgresEventRepository {
	return &PostgresEventRepository{db: db, clock: clk, newID: uuid.NewString}
}

// Save inserts the candidate as a pending event. A conflicting identity key
// inserts nothing and yields models.ErrDuplicateEvent.
func (r *PostgresEventRepository) Save(ctx context.Context, candidate models.CandidateEvent) (models.Event, error) {
	event := models.NewEventFromCandidate(r.newID(), candidate, r.clock.Now())

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (:id, :title, :venue_id, :venue_name, :event_date, :event_time, :city, :category,
			:price, :description, :source, :source_url, :image_url, :status, :created_at, :updated_at, :last_collected_at)
		ON CONFLICT ON CONSTRAINT events_identity_key DO NOTHING
	`

	result, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return models.Event{}, classifyWriteError(fmt.Errorf("failed to insert event: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return models.Event{}, models.ErrDuplicateEvent
	}
	return event, nil
}

// GetByID retrieves an event by its ID.
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := r.db.GetContext(ctx, &event, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// Query retrieves events matching the filters, ordered by date ascending.
func (r *PostgresEventRepository) Query(ctx context.Context, q models.EventQuery) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if q.City != "" {
		query += fmt.Sprintf(" AND lower(city) = lower($%d)", argPos)
		args = append(args, q.City)
		argPos++
	}
	if q.Category != "" {
		query += fmt.Sprintf(" AND lower(category) = lower($%d)", argPos)
		args = append(args, q.Category)
		argPos++
	}
	if q.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(q.Status))
		argPos++
	}

	query += " ORDER BY event_date ASC, event_time ASC, title ASC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, q.Limit)
	}

	events := []models.Event{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}

// List returns every event ordered by date.
func (r *PostgresEventRepository) List(ctx context.Context) ([]models.Event, error) {
	return r.Query(ctx, models.EventQuery{})
}

// Exists reports whether an event with the identity key is stored.
func (r *PostgresEventRepository) Exists(ctx context.Context, title, venueName, date string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM events WHERE title = $1 AND venue_name = $2 AND event_date = $3)`,
		title, venueName, date)
	if err != nil {
		return false, fmt.Errorf("failed to check event existence: %w", err)
	}
	return exists, nil
}

// UpdateStatus changes an event's status. Unknown IDs update nothing.
func (r *PostgresEventRepository) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE events SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), r.clock.Now(), id)
	if err != nil {
		return classifyWriteError(fmt.Errorf("failed to update event status: %w", err))
	}
	return nil
}

// UpdateStatusIf changes the status only while the row still holds from, so
// concurrent moderators cannot both transition the same event.
func (r *PostgresEventRepository) UpdateStatusIf(ctx context.Context, id string, from, to models.EventStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), r.clock.Now(), id, string(from))
	if err != nil {
		return false, classifyWriteError(fmt.Errorf("failed to update event status: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// Delete removes an event by its ID.
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// Count returns the number of stored events.
func (r *PostgresEventRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM events`); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}
