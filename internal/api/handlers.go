package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/venuewatch/venuewatch/internal/control"
	"github.com/venuewatch/venuewatch/internal/models"
)

// Dispatcher runs control commands by name.
type Dispatcher interface {
	Dispatch(ctx context.Context, command string, params control.Params) (any, error)
}

// HealthChecker reports per-channel collector health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) map[models.SourceChannel]error
}

// StoreChecker reports event store reachability and pool statistics.
type StoreChecker interface {
	Ping(ctx context.Context) error
	Stats() map[string]interface{}
}

// automationCommands are the commands reachable through POST /api/automation/{command}.
var automationCommands = map[string]bool{
	control.CmdStart:                    true,
	control.CmdStop:                     true,
	control.CmdRunCycleNow:              true,
	control.CmdForceUpdateAllVenues:     true,
	control.CmdRunLightweightMonitoring: true,
}

// passWriteTimeout bounds the response of requests that run a collection
// pass, which routinely outlive the server-wide write timeout.
const passWriteTimeout = 15 * time.Minute

// Handler forwards HTTP requests to the control surface.
type Handler struct {
	surface Dispatcher
	health  HealthChecker
	store   StoreChecker
	logger  *slog.Logger
}

// NewHandler creates a handler. health and store may be nil.
func NewHandler(surface Dispatcher, health HealthChecker, store StoreChecker, logger *slog.Logger) *Handler {
	return &Handler{
		surface: surface,
		health:  health,
		store:   store,
		logger:  logger,
	}
}

// Automation handles POST /api/automation/{command}
func (h *Handler) Automation(w http.ResponseWriter, r *http.Request) {
	command := r.PathValue("command")
	if !automationCommands[command] {
		writeError(w, http.StatusNotFound, "Unknown automation command")
		return
	}
	h.extendWriteDeadline(w)
	h.dispatch(w, r, command, nil)
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, control.CmdGetStatus, nil)
}

// Stats handles GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, control.CmdGetStats, nil)
}

// PendingEvents handles GET /api/events/pending
func (h *Handler) PendingEvents(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, control.CmdGetPendingEvents, nil)
}

// ApprovedEvents handles GET /api/events/approved?city=&category=&limit=
func (h *Handler) ApprovedEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.dispatch(w, r, control.CmdGetApprovedEvents, control.Params{
		"city":     q.Get("city"),
		"category": q.Get("category"),
		"limit":    q.Get("limit"),
	})
}

// ApproveEvent handles POST /api/events/{id}/approve
func (h *Handler) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, control.CmdApproveEvent, control.Params{"id": r.PathValue("id")})
}

// RejectEvent handles POST /api/events/{id}/reject
func (h *Handler) RejectEvent(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, control.CmdRejectEvent, control.Params{"id": r.PathValue("id")})
}

// SearchVenue handles GET /api/venues/search?name=
func (h *Handler) SearchVenue(w http.ResponseWriter, r *http.Request) {
	h.extendWriteDeadline(w)
	h.dispatch(w, r, control.CmdSearchVenue, control.Params{"name": r.URL.Query().Get("name")})
}

// Notifications handles GET /api/notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, control.CmdGetNotifications, nil)
}

// Healthz handles GET /healthz. Any unhealthy collector capability yields 503.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	status := http.StatusOK

	if h.health != nil {
		channels := make(map[string]string)
		for channel, err := range h.health.HealthCheck(r.Context()) {
			if err != nil {
				channels[string(channel)] = err.Error()
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				continue
			}
			channels[string(channel)] = "ok"
		}
		body["collectors"] = channels
	}

	if h.store != nil {
		store := map[string]any{"status": "ok", "pool": h.store.Stats()}
		if err := h.store.Ping(r.Context()); err != nil {
			store["status"] = err.Error()
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		body["store"] = store
	}

	writeJSON(w, h.logger, status, body)
}

func (h *Handler) extendWriteDeadline(w http.ResponseWriter) {
	err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(passWriteTimeout))
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to extend write deadline", "error", err)
	}
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, command string, params control.Params) {
	result, err := h.surface.Dispatch(r.Context(), command, params)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("command failed", "command", command, "error", err)
			writeError(w, status, "Internal server error")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrEventNotFound), errors.Is(err, models.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, control.ErrMissingParameter), errors.Is(err, control.ErrInvalidParameter):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
