package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter mounts every API route on a chi router. authEnabled
// controls Bearer token enforcement. sseHandler, if non-nil, is
// mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/by-title", h.GetNoteByTitle)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Per-note derived views.
	r.Get("/notes/{id}/backlinks", h.Backlinks)
	r.Get("/notes/{id}/related", h.Related)
	r.Get("/notes/{id}/versions", h.ListVersions)
	r.Post("/notes/{id}/versions/{versionID}/restore", h.RestoreVersion)

	// Collection-wide views.
	r.Get("/search", h.Search)
	r.Get("/recommendations", h.Recommendations)
	r.Get("/graph", h.Graph)
	r.Get("/tags", h.Tags)

	// Portability.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	// Draft tooling.
	r.Post("/links/preview", h.PreviewLinks)

	// SSE endpoint, behind the same auth middleware.
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
