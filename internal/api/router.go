package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Train commands
			r.Route("/trains/{channel}", func(r chi.Router) {
				r.Post("/power", s.handleTrainPower)
				r.Post("/selfdrive", s.handleSelfDrive)
			})

			// Switch commands
			r.Post("/switches/{channel}/ports/{port}", s.handleSetSwitch)
			r.Get("/switches/{channel}/reliability", s.handleSwitchReliability)

			// Connected device listings
			r.Route("/connected", func(r chi.Router) {
				r.Get("/trains", s.handleConnectedTrains)
				r.Get("/switches", s.handleConnectedSwitches)
			})

			// System management
			r.Post("/system/reset", s.handleSystemReset)
			r.Get("/metrics", s.handleMetrics)

			// WebSocket (auth via api_key query parameter)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
