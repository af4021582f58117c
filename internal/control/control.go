// Package control exposes the operator command surface over automation,
// collection and moderation.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/venuewatch/venuewatch/internal/eventmanager"
	"github.com/venuewatch/venuewatch/internal/models"
	"github.com/venuewatch/venuewatch/internal/scheduler"
)

// Command names accepted by Dispatch.
const (
	CmdStart                    = "start"
	CmdStop                     = "stop"
	CmdRunCycleNow              = "run-cycle-now"
	CmdForceUpdateAllVenues     = "force-update-all-venues"
	CmdRunLightweightMonitoring = "run-lightweight-monitoring"
	CmdSearchVenue              = "search-venue"
	CmdGetStatus                = "get-status"
	CmdGetStats                 = "get-stats"
	CmdApproveEvent             = "approve-event"
	CmdRejectEvent              = "reject-event"
	CmdGetPendingEvents         = "get-pending-events"
	CmdGetApprovedEvents        = "get-approved-events"
	CmdGetNotifications         = "get-notifications"
)

var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Automation is the scheduler lifecycle.
type Automation interface {
	Start(ctx context.Context)
	Stop()
	Status() scheduler.Status
	ForceRunNow(ctx context.Context) (full, light models.CycleResult, err error)
}

// Runner runs collection passes on demand.
type Runner interface {
	RunFullCycle(ctx context.Context) (models.CycleResult, error)
	RunLightweightCycle(ctx context.Context) (models.CycleResult, error)
	SearchVenue(ctx context.Context, name string) []models.CandidateEvent
}

// Moderator approves and lists events.
type Moderator interface {
	Approve(ctx context.Context, id string) (*models.Event, error)
	Reject(ctx context.Context, id string) (*models.Event, error)
	Pending(ctx context.Context) ([]models.Event, error)
	Approved(ctx context.Context, query models.EventQuery) ([]models.Event, error)
}

// StatsProvider computes the stats snapshot.
type StatsProvider interface {
	Snapshot(ctx context.Context) (eventmanager.Snapshot, error)
}

// NotificationLister returns recent notifications, newest first.
type NotificationLister interface {
	List() []models.Notification
}

// Surface is the command surface. Lifecycle and read commands always return a
// stats snapshot; only approval commands surface errors.
type Surface struct {
	automation    Automation
	runner        Runner
	moderator     Moderator
	stats         StatsProvider
	notifications NotificationLister
	logger        *slog.Logger
}

// New creates a command surface.
func New(automation Automation, runner Runner, moderator Moderator, stats StatsProvider, notifications NotificationLister, logger *slog.Logger) *Surface {
	return &Surface{
		automation:    automation,
		runner:        runner,
		moderator:     moderator,
		stats:         stats,
		notifications: notifications,
		logger:        logger,
	}
}

// Start starts automation and returns the stats snapshot.
func (s *Surface) Start(ctx context.Context) eventmanager.Snapshot {
	s.automation.Start(ctx)
	return s.GetStats(ctx)
}

// Stop halts automation and returns the stats snapshot.
func (s *Surface) Stop(ctx context.Context) eventmanager.Snapshot {
	s.automation.Stop()
	return s.GetStats(ctx)
}

// RunCycleNow runs one full pass synchronously.
func (s *Surface) RunCycleNow(ctx context.Context) eventmanager.Snapshot {
	if _, err := s.runner.RunFullCycle(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("manual full cycle failed", "error", err)
	}
	return s.GetStats(ctx)
}

// ForceUpdateAllVenues runs the full pass and then the lightweight pass.
func (s *Surface) ForceUpdateAllVenues(ctx context.Context) eventmanager.Snapshot {
	if _, _, err := s.automation.ForceRunNow(ctx); err != nil {
		s.logger.Error("forced update failed", "error", err)
	}
	return s.GetStats(ctx)
}

// RunLightweightMonitoring runs only the social channel pass.
func (s *Surface) RunLightweightMonitoring(ctx context.Context) eventmanager.Snapshot {
	if _, err := s.runner.RunLightweightCycle(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("manual lightweight cycle failed", "error", err)
	}
	return s.GetStats(ctx)
}

// SearchVenue returns unsaved candidates for venues matching name.
func (s *Surface) SearchVenue(ctx context.Context, name string) []models.CandidateEvent {
	return s.runner.SearchVenue(ctx, name)
}

// GetStatus reports whether automation is running.
func (s *Surface) GetStatus() scheduler.Status {
	return s.automation.Status()
}

// GetStats returns the stats snapshot. Store failures are logged and the
// partial snapshot is returned.
func (s *Surface) GetStats(ctx context.Context) eventmanager.Snapshot {
	snap, err := s.stats.Snapshot(ctx)
	if err != nil {
		s.logger.Error("failed to compute stats", "error", err)
	}
	return snap
}

// ApproveEvent approves a pending event.
func (s *Surface) ApproveEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.moderator.Approve(ctx, id)
}

// RejectEvent rejects a pending event.
func (s *Surface) RejectEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.moderator.Reject(ctx, id)
}

// GetPendingEvents lists events awaiting moderation.
func (s *Surface) GetPendingEvents(ctx context.Context) ([]models.Event, error) {
	return s.moderator.Pending(ctx)
}

// GetApprovedEvents lists approved events matching the query.
func (s *Surface) GetApprovedEvents(ctx context.Context, query models.EventQuery) ([]models.Event, error) {
	return s.moderator.Approved(ctx, query)
}

// GetNotifications returns the recent notification ring.
func (s *Surface) GetNotifications() []models.Notification {
	if s.notifications == nil {
		return []models.Notification{}
	}
	return s.notifications.List()
}

// Params carries command arguments by name.
type Params map[string]string

// Dispatch runs the named command.
func (s *Surface) Dispatch(ctx context.Context, command string, params Params) (any, error) {
	s.logger.Debug("dispatching command", "command", command)

	switch command {
	case CmdStart:
		return s.Start(ctx), nil
	case CmdStop:
		return s.Stop(ctx), nil
	case CmdRunCycleNow:
		return s.RunCycleNow(ctx), nil
	case CmdForceUpdateAllVenues:
		return s.ForceUpdateAllVenues(ctx), nil
	case CmdRunLightweightMonitoring:
		return s.RunLightweightMonitoring(ctx), nil
	case CmdSearchVenue:
		name, err := params.require("name")
		if err != nil {
			return nil, err
		}
		return s.SearchVenue(ctx, name), nil
	case CmdGetStatus:
		return s.GetStatus(), nil
	case CmdGetStats:
		return s.GetStats(ctx), nil
	case CmdApproveEvent:
		id, err := params.require("id")
		if err != nil {
			return nil, err
		}
		return s.ApproveEvent(ctx, id)
	case CmdRejectEvent:
		id, err := params.require("id")
		if err != nil {
			return nil, err
		}
		return s.RejectEvent(ctx, id)
	case CmdGetPendingEvents:
		return s.GetPendingEvents(ctx)
	case CmdGetApprovedEvents:
		query, err := params.query()
		if err != nil {
			return nil, err
		}
		return s.GetApprovedEvents(ctx, query)
	case CmdGetNotifications:
		return s.GetNotifications(), nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownCommand, command)
}

func (p Params) require(name string) (string, error) {
	v := p[name]
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	return v, nil
}

func (p Params) query() (models.EventQuery, error) {
	q := models.EventQuery{
		City:     p["city"],
		Category: p["category"],
	}
	if raw := p["limit"]; raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, fmt.Errorf("%w: limit %q", ErrInvalidParameter, raw)
		}
		q.Limit = limit
	}
	return q, nil
}
