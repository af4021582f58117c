package eventmanager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/venuewatch/venuewatch/internal/ingestion"
	"github.com/venuewatch/venuewatch/internal/models"
)

// ApprovalService moves events through moderation.
type ApprovalService struct {
	repo   ingestion.EventRepository
	logger *slog.Logger
}

// NewApprovalService creates a moderation service over repo.
func NewApprovalService(repo ingestion.EventRepository, logger *slog.Logger) *ApprovalService {
	return &ApprovalService{repo: repo, logger: logger}
}

// Approve marks a pending event approved.
func (s *ApprovalService) Approve(ctx context.Context, id string) (*models.Event, error) {
	return s.transition(ctx, id, models.EventStatusApproved)
}

// Reject marks a pending event rejected.
func (s *ApprovalService) Reject(ctx context.Context, id string) (*models.Event, error) {
	return s.transition(ctx, id, models.EventStatusRejected)
}

// Pending returns events awaiting moderation, soonest first.
func (s *ApprovalService) Pending(ctx context.Context) ([]models.Event, error) {
	return s.repo.Query(ctx, models.EventQuery{Status: models.EventStatusPending})
}

// Approved returns approved events matching the query's city, category and limit.
func (s *ApprovalService) Approved(ctx context.Context, query models.EventQuery) ([]models.Event, error) {
	query.Status = models.EventStatusApproved
	return s.repo.Query(ctx, query)
}

func (s *ApprovalService) transition(ctx context.Context, id string, next models.EventStatus) (*models.Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !event.Status.CanTransitionTo(next) {
		s.logger.Warn("rejected status change",
			"event_id", id,
			"from", event.Status,
			"to", next)
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, event.Status, next)
	}

	// The store re-checks the current status so a concurrent moderator cannot
	// overwrite a decision that landed after the read above.
	applied, err := ingestion.RetryValue(ctx, ingestion.StoreRetryPolicy(), func() (bool, error) {
		return s.repo.UpdateStatusIf(ctx, id, event.Status, next)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update event status: %w", err)
	}
	if !applied {
		s.logger.Warn("status changed concurrently",
			"event_id", id,
			"to", next)
		return nil, fmt.Errorf("%w: %s changed before -> %s", models.ErrInvalidTransition, id, next)
	}

	s.logger.Info("event moderated",
		"event_id", id,
		"title", event.Title,
		"status", next)

	return s.repo.GetByID(ctx, id)
}
