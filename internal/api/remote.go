package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/offnote/internal/models"
)

// RemoteStore is the authoritative note table behind the remote endpoint.
type RemoteStore interface {
	List(ctx context.Context) ([]models.RemoteNote, error)
	Get(ctx context.Context, id string) (*models.RemoteNote, error)
	Create(ctx context.Context, n models.RemoteNote) (*models.RemoteNote, error)
	Update(ctx context.Context, n models.RemoteNote) (*models.RemoteNote, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// RemoteHandler serves the remote CRUD endpoint that clients sync against.
type RemoteHandler struct {
	store RemoteStore
}

// NewRemoteHandler creates a new RemoteHandler.
func NewRemoteHandler(store RemoteStore) *RemoteHandler {
	return &RemoteHandler{store: store}
}

// List handles GET /api/notes.
//
//	@Summary		List every note on the server
//	@Tags			remote
//	@Produce		json
//	@Success		200	{array}	models.RemoteNote
//	@Router			/notes [get]
func (h *RemoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, "list notes", "", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// Get handles GET /api/notes/{id}.
//
//	@Summary		Get a note by id
//	@Tags			remote
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.RemoteNote
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id} [get]
func (h *RemoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Create handles POST /api/notes.
//
//	@Summary		Create a note under a client-chosen id
//	@Tags			remote
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteBody	true	"Note to create"
//	@Success		201		{object}	models.RemoteNote
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/notes [post]
func (h *RemoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body NoteBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	n, err := h.store.Create(r.Context(), body.remote())
	if err != nil {
		writeError(w, "create note", body.ID, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// Update handles PUT /api/notes/{id}. The body id, when present, must match
// the path.
//
//	@Summary		Replace a note's title and content
//	@Tags			remote
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Note id"
//	@Param			body	body		NoteBody	true	"Updated note"
//	@Success		200		{object}	models.RemoteNote
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/notes/{id} [put]
func (h *RemoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body NoteBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.ID != "" && body.ID != id {
		writeJSON(w, http.StatusBadRequest, errorBody("id does not match path"))
		return
	}
	body.ID = id
	if err := body.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	n, err := h.store.Update(r.Context(), body.remote())
	if err != nil {
		writeError(w, "update note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Delete handles DELETE /api/notes/{id}. Clients never call it; it exists for
// administration.
//
//	@Summary		Delete a note
//	@Tags			remote
//	@Param			id	path	string	true	"Note id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id} [delete]
func (h *RemoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.store.Delete(r.Context(), id)
	if err != nil {
		writeError(w, "delete note", id, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
