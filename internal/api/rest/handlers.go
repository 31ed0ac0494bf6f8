// Package rest holds the versioned REST handlers. Handlers return
// errors instead of writing error bodies themselves; the server's
// error adapter turns them into envelopes.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkamau/groundwork/internal/failure"
	"github.com/mkamau/groundwork/internal/note"
	"github.com/mkamau/groundwork/pkg/objutil"
)

const defaultPageSize = 50

// NotesStore is the persistence surface the handlers need.
type NotesStore interface {
	Create(ctx context.Context, n note.Note) (note.Note, error)
	GetByID(ctx context.Context, id uuid.UUID) (note.Note, error)
	List(ctx context.Context, limit, offset int) ([]note.Note, error)
	Update(ctx context.Context, n note.Note) (note.Note, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// HandlerFunc is a fallible HTTP handler.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrapper adapts a fallible handler into a plain one, routing errors
// through the transport's error adapter.
type Wrapper func(fn HandlerFunc) http.HandlerFunc

// Handler provides the REST API handlers.
type Handler struct {
	notes NotesStore
	wrap  Wrapper
}

// NewHandler creates the REST handler set.
func NewHandler(notes NotesStore, wrap Wrapper) *Handler {
	return &Handler{notes: notes, wrap: wrap}
}

// Router mounts the REST routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Route("/notes", func(r chi.Router) {
		r.Post("/", h.wrap(h.CreateNote))
		r.Get("/", h.wrap(h.ListNotes))
		r.Get("/{noteID}", h.wrap(h.GetNote))
		r.Patch("/{noteID}", h.wrap(h.PatchNote))
		r.Delete("/{noteID}", h.wrap(h.DeleteNote))
	})

	return r
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CreateNote handles POST /api/v1/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) error {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return failure.NewDomain("invalid request body")
	}

	n := note.New(req.Title, req.Body)
	if err := n.Validate(); err != nil {
		return err
	}

	created, err := h.notes.Create(r.Context(), n)
	if err != nil {
		return err
	}

	respondJSON(w, http.StatusCreated, created)
	return nil
}

// ListNotes handles GET /api/v1/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) error {
	limit := queryInt(r, "limit", defaultPageSize)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 200 {
		return failure.NewDomain("limit must be between 1 and 200")
	}

	notes, err := h.notes.List(r.Context(), limit, offset)
	if err != nil {
		return err
	}
	if notes == nil {
		notes = []note.Note{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"notes":  notes,
		"limit":  limit,
		"offset": offset,
	})
	return nil
}

// GetNote handles GET /api/v1/notes/{noteID}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) error {
	id, err := noteID(r)
	if err != nil {
		return err
	}

	n, err := h.notes.GetByID(r.Context(), id)
	if err != nil {
		return err
	}

	respondJSON(w, http.StatusOK, n)
	return nil
}

// PatchNote handles PATCH /api/v1/notes/{noteID}. The body is a
// partial document; unknown fields are ignored.
func (h *Handler) PatchNote(w http.ResponseWriter, r *http.Request) error {
	id, err := noteID(r)
	if err != nil {
		return err
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		return failure.NewDomain("invalid request body")
	}

	current, err := h.notes.GetByID(r.Context(), id)
	if err != nil {
		return err
	}

	merged := objutil.Merge(
		map[string]any{"title": current.Title, "body": current.Body},
		objutil.Pick(patch, "title", "body"),
	)
	current.Title = objutil.String(merged, "title", current.Title)
	current.Body = objutil.String(merged, "body", current.Body)

	if err := current.Validate(); err != nil {
		return err
	}

	updated, err := h.notes.Update(r.Context(), current)
	if err != nil {
		return err
	}

	respondJSON(w, http.StatusOK, updated)
	return nil
}

// DeleteNote handles DELETE /api/v1/notes/{noteID}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) error {
	id, err := noteID(r)
	if err != nil {
		return err
	}

	if err := h.notes.Delete(r.Context(), id); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func noteID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "noteID"))
	if err != nil {
		return uuid.Nil, failure.NewDomain("invalid note id")
	}
	return id, nil
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
