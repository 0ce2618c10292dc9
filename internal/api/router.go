package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/redisnotes/internal/connector"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(conn *connector.Connector, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(conn)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Group(func(r chi.Router) {
		r.Use(RequireEnabled(conn))

		r.Get("/notes", h.ListNotes)
		r.Post("/notes", h.CreateNote)
		r.Get("/notes/{id}", h.GetNote)
		r.Put("/notes/{id}", h.UpdateNote)
		r.Delete("/notes/{id}", h.DeleteNote)

		r.Get("/search", h.Search)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
