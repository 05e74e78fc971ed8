package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/offnote/internal/noteservice"
)

// NewRouter creates the local API router.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *noteservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Sync.
	r.Post("/notes/{id}/sync", h.SyncNote)
	r.Post("/notes/{id}/resync", h.ResyncNote)
	r.Post("/sync", h.SyncAll)
	r.Get("/sync/status", h.SyncStatus)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// NewRemoteRouter creates the remote endpoint's router.
func NewRemoteRouter(store RemoteStore) chi.Router {
	h := NewRemoteHandler(store)

	r := chi.NewRouter()
	r.Get("/notes", h.List)
	r.Post("/notes", h.Create)
	r.Get("/notes/{id}", h.Get)
	r.Put("/notes/{id}", h.Update)
	r.Delete("/notes/{id}", h.Delete)
	return r
}
