package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/offnote/internal/noteservice"
)

// Handler holds the local API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List local notes, optionally filtered by a search query
//	@Tags			notes
//	@Produce		json
//	@Param			q	query		string	false	"Case-insensitive match on title or content"
//	@Success		200	{object}	LocalListResponse
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	var (
		notes []NoteView
		err   error
	)
	if q == "" {
		notes, err = h.svc.ListNotes(r.Context())
	} else {
		notes, err = h.svc.Search(r.Context(), q)
	}
	if err != nil {
		writeError(w, "list notes", "", err)
		return
	}
	if notes == nil {
		notes = []NoteView{}
	}
	writeJSON(w, http.StatusOK, LocalListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a local note with its sync status
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteView
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, "get note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note locally
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteView
//	@Failure		400		{object}	errResponse
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(w, "create note", "", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Edit a local note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	NoteView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), id, req.Title, req.Content)
	if err != nil {
		writeError(w, "update note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}. The remote copy is untouched.
//
//	@Summary		Delete a local note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeError(w, "delete note", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncNote handles POST /api/notes/{id}/sync.
//
//	@Summary		Push one note now
//	@Tags			sync
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	SyncNoteResponse
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id}/sync [post]
func (h *Handler) SyncNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.svc.SyncNote(r.Context(), id)
	if err != nil {
		writeError(w, "sync note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncNoteResponse{ID: id, Status: st})
}

// ResyncNote handles POST /api/notes/{id}/resync.
//
//	@Summary		Mark a note dirty and push it, even if it was synced
//	@Tags			sync
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	SyncNoteResponse
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id}/resync [post]
func (h *Handler) ResyncNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.svc.Resync(r.Context(), id)
	if err != nil {
		writeError(w, "resync note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncNoteResponse{ID: id, Status: st})
}

// SyncAll handles POST /api/sync.
//
//	@Summary		Run a full reconcile pass
//	@Description	Returns immediately with a skip reason when offline or when a pass is already running.
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Router			/sync [post]
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, syncResponse(h.svc.SyncAll(r.Context())))
}

// SyncStatus handles GET /api/sync/status.
//
//	@Summary		Connectivity and per-note sync status
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	StatusReport
//	@Router			/sync/status [get]
func (h *Handler) SyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}
