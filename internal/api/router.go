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
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Device surface
		r.Get("/status", s.handleStatus)
		r.Get("/sensors", s.handleSensors)
		r.Get("/config", s.handleGetConfig)

		// History (requires the database)
		r.Get("/sensors/history", s.handleSensorHistory)
		r.Get("/control/history", s.handleControlHistory)

		// Live events
		r.Get("/ws", s.handleWebSocket)

		// Mutating routes, guarded when an API token secret is configured
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/control", s.handleControl)
			r.Post("/config", s.handleUpdateConfig)
			r.Post("/reboot", s.handleReboot)
		})
	})

	return r
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeNotFound(w, "no route for "+r.URL.Path)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, r.Method+" not allowed on "+r.URL.Path)
}
