package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/store"
)

// Handler holds the API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler over the service.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func noteID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}

// respondErr maps service errors onto HTTP statuses. Unrecognized
// errors are logged and reported as internal.
func respondErr(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("conflict"))
	case errors.Is(err, apperr.ErrInvalidImport):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, apperr.ErrWorkerClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("temporarily unavailable"))
	default:
		slog.Error(what+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, total, err := h.svc.ListNotes(r.Context(),
		queryInt(r, "limit"), queryInt(r, "offset"), q.Get("tag"), q.Get("sort"))
	if err != nil {
		respondErr(w, err, "list notes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": items, "total": total})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetNote(r.Context(), noteID(r))
	if err != nil {
		respondErr(w, err, "get note")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// GetNoteByTitle handles GET /api/notes/by-title?title=...
func (h *Handler) GetNoteByTitle(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'title' is required"))
		return
	}
	n, err := h.svc.GetNoteByTitle(r.Context(), title)
	if err != nil {
		respondErr(w, err, "get note by title")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	n, err := h.svc.CreateNote(r.Context(), req.draft())
	if err != nil {
		respondErr(w, err, "create note")
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// UpdateNote handles PUT /api/notes/{id}. An If-Match header carrying
// the content checksum enables optimistic concurrency.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	if len(ifMatch) >= 2 && ifMatch[0] == '"' && ifMatch[len(ifMatch)-1] == '"' {
		ifMatch = ifMatch[1 : len(ifMatch)-1]
	}

	n, err := h.svc.UpdateNote(r.Context(), noteID(r), req.draft(), ifMatch)
	if err != nil {
		respondErr(w, err, "update note")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), noteID(r)); err != nil {
		respondErr(w, err, "delete note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.Search(r.Context(), q, queryInt(r, "limit"))
	if err != nil {
		respondErr(w, err, "search")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Related handles GET /api/notes/{id}/related.
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Related(r.Context(), noteID(r), queryInt(r, "limit"))
	if err != nil {
		respondErr(w, err, "related notes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Recommendations handles GET /api/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	results := h.svc.General(r.Context(), queryInt(r, "limit"))
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Backlinks handles GET /api/notes/{id}/backlinks.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	bl, err := h.svc.Backlinks(r.Context(), noteID(r))
	if err != nil {
		respondErr(w, err, "backlinks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": bl})
}

// PreviewLinks handles POST /api/links/preview.
func (h *Handler) PreviewLinks(w http.ResponseWriter, r *http.Request) {
	var req PreviewLinksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	links, err := h.svc.PreviewLinks(r.Context(), req.Body)
	if err != nil {
		respondErr(w, err, "preview links")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

// Graph handles GET /api/graph.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, edges, err := h.svc.Graph(r.Context())
	if err != nil {
		respondErr(w, err, "graph")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "edges": edges})
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.svc.TagFrequency(r.Context())})
}

// ListVersions handles GET /api/notes/{id}/versions.
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.svc.ListVersions(r.Context(), noteID(r))
	if err != nil {
		respondErr(w, err, "list versions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

// RestoreVersion handles POST /api/notes/{id}/versions/{versionID}/restore.
func (h *Handler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.RestoreVersion(r.Context(), noteID(r), chi.URLParam(r, "versionID"))
	if err != nil {
		respondErr(w, err, "restore version")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Export handles GET /api/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Export(r.Context()))
}

// Import handles POST /api/import.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	var doc store.Export
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	count, err := h.svc.Import(r.Context(), doc)
	if err != nil {
		respondErr(w, err, "import")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": count})
}
