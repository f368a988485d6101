package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/synamic/internal/contentservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *contentservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Contents CRUD.
	r.Get("/contents", h.ListContents)
	r.Post("/contents", h.CreateContent)
	r.Get("/contents/*", h.GetContent)
	r.Put("/contents/*", h.UpdateContent)
	r.Delete("/contents/*", h.DeleteContent)

	// Search.
	r.Get("/search", h.Search)

	// Marks.
	r.Get("/marks", h.Marks)
	r.Get("/marks/{key}", h.ContentsByMark)

	// Parsers and types.
	r.Post("/syd/parse", h.ParseSyd)
	r.Post("/models/parse", h.ParseModel)
	r.Get("/types", h.Types)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
