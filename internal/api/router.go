package api

import (
	"log/slog"
	"net/http"

	"github.com/venuewatch/venuewatch/internal/auth"
)

// SetupRoutes configures all API routes. Mutating and moderation routes
// require a bearer token from /api/auth/login. store is nil unless events
// live in PostgreSQL.
func SetupRoutes(mux *http.ServeMux, surface Dispatcher, health HealthChecker, store StoreChecker, authConfig auth.Config, logger *slog.Logger) {
	handler := NewHandler(surface, health, store, logger)
	authHandler := NewAuthHandler(authConfig, logger)
	requireAuth := auth.AuthMiddleware(authConfig)

	// Authentication routes (public)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("GET /api/auth/validate", requireAuth(http.HandlerFunc(authHandler.ValidateToken)))

	// Automation lifecycle (admin only)
	mux.Handle("POST /api/automation/{command}", requireAuth(http.HandlerFunc(handler.Automation)))

	// Read routes (public)
	mux.HandleFunc("GET /api/status", handler.Status)
	mux.HandleFunc("GET /api/stats", handler.Stats)
	mux.HandleFunc("GET /api/events/approved", handler.ApprovedEvents)
	mux.HandleFunc("GET /api/venues/search", handler.SearchVenue)
	mux.HandleFunc("GET /api/notifications", handler.Notifications)

	// Moderation routes (admin only)
	mux.Handle("GET /api/events/pending", requireAuth(http.HandlerFunc(handler.PendingEvents)))
	mux.Handle("POST /api/events/{id}/approve", requireAuth(http.HandlerFunc(handler.ApproveEvent)))
	mux.Handle("POST /api/events/{id}/reject", requireAuth(http.HandlerFunc(handler.RejectEvent)))

	// CORS preflight for every API route
	mux.HandleFunc("OPTIONS /api/", preflight)

	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
}
