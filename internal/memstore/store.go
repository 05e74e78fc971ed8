// Package memstore is the remote endpoint's authoritative note store: a
// map-backed CRUD table that stamps every accepted write with the server time.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/starford/offnote/internal/apperr"
	"github.com/starford/offnote/internal/models"
)

// Store holds notes in memory.
type Store struct {
	mu    sync.RWMutex
	notes map[string]models.RemoteNote
	now   func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		notes: make(map[string]models.RemoteNote),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List returns all notes, most recently updated first.
func (s *Store) List(_ context.Context) ([]models.RemoteNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RemoteNote, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Get returns a note or apperr.ErrNotFound.
func (s *Store) Get(_ context.Context, id string) (*models.RemoteNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &n, nil
}

// Create stores a new note stamped with the server time.
func (s *Store) Create(_ context.Context, n models.RemoteNote) (*models.RemoteNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[n.ID]; ok {
		return nil, apperr.ErrAlreadyExists
	}
	n.UpdatedAt = s.now()
	s.notes[n.ID] = n
	return &n, nil
}

// Update replaces title and content of an existing note and stamps it.
func (s *Store) Update(_ context.Context, n models.RemoteNote) (*models.RemoteNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notes[n.ID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	existing.Title = n.Title
	existing.Content = n.Content
	existing.UpdatedAt = s.now()
	s.notes[n.ID] = existing
	return &existing, nil
}

// Delete removes a note and reports whether it existed.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return false, nil
	}
	delete(s.notes, id)
	return true, nil
}
