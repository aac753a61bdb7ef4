/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/cycles        Cycle selection (epoch-bounded)
  /api/scores        Live/frozen per-user scores
  /api/sync          Explicit snapshot sync
  /api/snapshots     Frozen records for a cycle
  /api/users         User + base compensation admin
  /api/exceptions    Work-exception admin
  /api/tasks         Completed-task intake
  /api/incidents     Stability-incident intake

SECURITY NOTE:
  No authentication middleware; auth/session handling belongs to the
  surrounding application when the engine is embedded.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/cycles", h.ListCycles)
		r.Get("/scores", h.GetScores)

		r.Post("/sync", h.SyncCycle)
		r.Get("/snapshots", h.ListSnapshots)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.SaveUser)
		})

		r.Route("/exceptions", func(r chi.Router) {
			r.Get("/", h.ListExceptions)
			r.Post("/", h.CreateException)
			r.Put("/{id}", h.UpdateException)
			r.Delete("/{id}", h.DeleteException)
		})

		r.Post("/tasks", h.CreateTask)
		r.Post("/incidents", h.CreateIncident)
	})

	return r
}
