package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/store"
)

// Editor is the lifecycle surface of the editor controller.
type Editor interface {
	HandleMessage(ctx context.Context, raw string) error
	LoadNote(ctx context.Context, note models.Note) error
	NewNote(ctx context.Context) error
	Clear(ctx context.Context) error
	Exit(ctx context.Context) error
	BackPress(ctx context.Context) (editor.BackResult, error)
	SetFullscreen(ctx context.Context, on bool) error
	QueueAction(ctx context.Context, a models.DeferredAction) error
	State(ctx context.Context) (editor.Snapshot, error)
}

// Notes is the notes list and vault surface.
type Notes interface {
	List(ctx context.Context, limit, offset int, tag string) ([]models.NoteSummary, int, error)
	Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error)
	Open(ctx context.Context, id string) (models.Note, error)
	Delete(ctx context.Context, id string) error
	Lock(ctx context.Context, id string) error
	Unlock(ctx context.Context, password string) error
	Export(ctx context.Context, id string) (string, error)
	Import(ctx context.Context, data []byte) (string, error)
}

// Handler holds API route handlers.
type Handler struct {
	editor Editor
	notes  Notes
}

// NewHandler creates a new Handler.
func NewHandler(ed Editor, n Notes) *Handler {
	return &Handler{editor: ed, notes: n}
}

// BridgeMessage handles POST /bridge/messages. The request body is the raw
// payload the view posted.
func (h *Handler) BridgeMessage(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if err := h.editor.HandleMessage(r.Context(), string(raw)); err != nil {
		writeError(w, "bridge message", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadNote handles POST /api/editor/load.
func (h *Handler) LoadNote(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "load note", err)
		return
	}
	ctx := r.Context()
	if req.Type == loadTypeNew {
		if err := h.editor.NewNote(ctx); err != nil {
			writeError(w, "new note", err)
			return
		}
		h.writeState(w, r)
		return
	}
	note, err := h.notes.Open(ctx, req.ID)
	if err != nil {
		writeError(w, "open note", err)
		return
	}
	if err := h.editor.LoadNote(ctx, note); err != nil {
		writeError(w, "load note", err)
		return
	}
	h.writeState(w, r)
}

// Clear handles POST /api/editor/clear.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Clear(r.Context()); err != nil {
		writeError(w, "clear editor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Exit handles POST /api/editor/exit.
func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Exit(r.Context()); err != nil {
		writeError(w, "exit editor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Back handles POST /api/editor/back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	res, err := h.editor.BackPress(r.Context())
	if err != nil {
		writeError(w, "back press", err)
		return
	}
	writeJSON(w, http.StatusOK, BackResponse{Result: res})
}

// Fullscreen handles POST /api/editor/fullscreen.
func (h *Handler) Fullscreen(w http.ResponseWriter, r *http.Request) {
	var req FullscreenRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "fullscreen", err)
		return
	}
	if err := h.editor.SetFullscreen(r.Context(), req.On); err != nil {
		writeError(w, "fullscreen", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueueAction handles POST /api/editor/action.
func (h *Handler) QueueAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "queue action", err)
		return
	}
	if err := h.editor.QueueAction(r.Context(), req); err != nil {
		writeError(w, "queue action", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// State handles GET /api/editor/state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, r)
}

func (h *Handler) writeState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.editor.State(r.Context())
	if err != nil {
		writeError(w, "editor state", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListNotes handles GET /api/notes. With a q parameter it runs a
// full-text search instead.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if query := q.Get("q"); query != "" {
		results, err := h.notes.Search(r.Context(), query, limit)
		if err != nil {
			writeError(w, "search", err)
			return
		}
		writeJSON(w, http.StatusOK, SearchResponse{Results: results})
		return
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	items, total, err := h.notes.List(r.Context(), limit, offset, q.Get("tag"))
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LockNote handles POST /api/notes/{id}/lock.
func (h *Handler) LockNote(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Lock(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "lock note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportNote handles POST /api/notes/{id}/export.
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	path, err := h.notes.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "export note", err)
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{Path: path})
}

// ImportNote handles POST /api/notes/import. The body is a Markdown
// document, optionally with YAML frontmatter.
func (h *Handler) ImportNote(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	id, err := h.notes.Import(r.Context(), data)
	if err != nil {
		writeError(w, "import note", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{ID: id})
}

// UnlockVault handles POST /api/vault/unlock.
func (h *Handler) UnlockVault(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "unlock vault", err)
		return
	}
	if err := h.notes.Unlock(r.Context(), req.Password); err != nil {
		writeError(w, "unlock vault", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
