package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouterConfig collects what NewRouter mounts.
type RouterConfig struct {
	Commands    Invoker
	AuthEnabled bool
	Token       string

	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
	// Socket, if non-nil, is mounted at GET /ws.
	Socket http.Handler
}

// NewRouter creates a chi router with all API routes, meant to be mounted
// under /api. Every route sits behind the auth middleware.
func NewRouter(cfg RouterConfig) chi.Router {
	h := NewHandler(cfg.Commands)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	r.Get("/connection", h.CheckConnection)

	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	r.Get("/search", h.Search)

	r.Post("/invoke/{command}", h.Invoke)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}
	if cfg.Socket != nil {
		r.Get("/ws", cfg.Socket.ServeHTTP)
	}

	return r
}

// MountHealth adds the unauthenticated probes. /health/live always answers
// 200; /health/ready answers 503 while no store connection is held.
func MountHealth(r chi.Router, connected func() bool) {
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !connected() {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "database not connected"})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	})
}
