package noteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/starford/offnote/internal/apperr"
	"github.com/starford/offnote/internal/localstore"
	"github.com/starford/offnote/internal/models"
	"github.com/starford/offnote/internal/syncengine"
)

// Note event kinds passed to EventPublisher.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Syncer is the part of the sync engine the service drives.
type Syncer interface {
	ReconcileAll(ctx context.Context) syncengine.Result
	SyncOne(ctx context.Context, id string)
	CurrentStatus(id string) models.SyncStatus
	Statuses() map[string]models.SyncStatus
	Running() bool
	MarkDirty(id string)
	Forget(id string)
}

// EventPublisher receives note lifecycle events.
type EventPublisher interface {
	PublishNoteEvent(kind, id string)
}

// NoteView is a note together with its sync status.
type NoteView struct {
	models.Note
	Status models.SyncStatus `json:"status"`
}

// StatusReport is the aggregate sync state.
type StatusReport struct {
	Online   bool                         `json:"online"`
	Running  bool                         `json:"running"`
	Summary  models.Summary               `json:"summary"`
	Headline string                       `json:"headline"`
	Statuses map[string]models.SyncStatus `json:"statuses"`
}

// Service coordinates the local replica and the sync engine for user-facing
// operations. Every local edit marks the note dirty; pushing is left to the
// engine.
type Service struct {
	store  localstore.Store
	sync   Syncer
	conn   syncengine.Connectivity
	events EventPublisher
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithEvents publishes note lifecycle events to p.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates a new note service.
func NewService(store localstore.Store, sync Syncer, conn syncengine.Connectivity, opts ...Option) *Service {
	s := &Service{
		store: store,
		sync:  sync,
		conn:  conn,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prime seeds the engine with notes left dirty by a previous run.
func (s *Service) Prime(ctx context.Context) error {
	dirty, err := s.store.ListUnsynced(ctx)
	if err != nil {
		return err
	}
	for _, n := range dirty {
		s.sync.MarkDirty(n.ID)
	}
	return nil
}

// CreateNote stores a new unsynced note. A blank title becomes the default.
func (s *Service) CreateNote(ctx context.Context, title, content string) (*NoteView, error) {
	return s.create(ctx, s.newID(), title, content)
}

func (s *Service) create(ctx context.Context, id, title, content string) (*NoteView, error) {
	if err := checkTitle(title); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = models.DefaultTitle
	}
	n := models.Note{
		ID:        id,
		Title:     title,
		Content:   content,
		UpdatedAt: time.Now().UTC(),
		Synced:    false,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}
	s.sync.MarkDirty(id)
	s.publish(EventCreated, id)
	return s.GetNote(ctx, id)
}

// GetNote returns one note with its status.
func (s *Service) GetNote(ctx context.Context, id string) (*NoteView, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(*n)
	return &v, nil
}

// UpdateNote applies a local edit. At least one field must be set.
func (s *Service) UpdateNote(ctx context.Context, id string, title, content *string) (*NoteView, error) {
	if title == nil && content == nil {
		return nil, apperr.ErrInvalid
	}
	if title != nil {
		if err := checkTitle(*title); err != nil {
			return nil, err
		}
	}
	if err := s.store.Update(ctx, id, models.UserEdit(title, content)); err != nil {
		return nil, err
	}
	s.sync.MarkDirty(id)
	s.publish(EventUpdated, id)
	return s.GetNote(ctx, id)
}

// checkTitle rejects titles the remote would refuse, so an over-long title
// never reaches the replica from any entry point.
func checkTitle(title string) error {
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return fmt.Errorf("%w: title longer than %d characters", apperr.ErrInvalid, models.MaxTitleLength)
	}
	return nil
}

// DeleteNote removes a note locally. Deletions are not propagated.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.sync.Forget(id)
	s.publish(EventDeleted, id)
	return nil
}

// ListNotes returns every note, most recent first.
func (s *Service) ListNotes(ctx context.Context) ([]NoteView, error) {
	notes, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(notes), nil
}

// Search returns notes matching query in title or content. A blank query
// lists everything.
func (s *Service) Search(ctx context.Context, query string) ([]NoteView, error) {
	notes, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.views(notes), nil
}

// ImportNote applies an edit made outside the service (a vault file). An
// unknown id creates the note; identical content is a no-op.
func (s *Service) ImportNote(ctx context.Context, id, title, content string) error {
	existing, err := s.store.Get(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		_, err := s.create(ctx, id, title, content)
		return err
	case err != nil:
		return err
	case existing.Title == title && existing.Content == content:
		return nil
	}
	_, err = s.UpdateNote(ctx, id, &title, &content)
	return err
}

// SyncNote pushes one note now and returns its resulting status.
func (s *Service) SyncNote(ctx context.Context, id string) (models.SyncStatus, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return "", err
	}
	s.sync.SyncOne(ctx, id)
	return s.sync.CurrentStatus(id), nil
}

// Resync forces a push of a note even if it is marked synced, e.g. after the
// remote copy was lost.
func (s *Service) Resync(ctx context.Context, id string) (models.SyncStatus, error) {
	if err := s.store.MarkUnsynced(ctx, id); err != nil {
		return "", err
	}
	s.sync.MarkDirty(id)
	s.sync.SyncOne(ctx, id)
	return s.sync.CurrentStatus(id), nil
}

// SyncAll runs a full reconcile pass.
func (s *Service) SyncAll(ctx context.Context) syncengine.Result {
	return s.sync.ReconcileAll(ctx)
}

// Status reports connectivity and the aggregate sync state.
func (s *Service) Status() StatusReport {
	statuses := s.sync.Statuses()
	sum := models.Summarize(statuses)
	return StatusReport{
		Online:   s.conn.Online(),
		Running:  s.sync.Running(),
		Summary:  sum,
		Headline: sum.Headline(),
		Statuses: statuses,
	}
}

func (s *Service) view(n models.Note) NoteView {
	st := s.sync.CurrentStatus(n.ID)
	// Untracked notes read as synced; the stored flag knows better.
	if st == models.StatusSynced && !n.Synced {
		st = models.StatusUnsynced
	}
	return NoteView{Note: n, Status: st}
}

func (s *Service) views(notes []models.Note) []NoteView {
	out := make([]NoteView, len(notes))
	for i, n := range notes {
		out[i] = s.view(n)
	}
	return out
}

func (s *Service) publish(kind, id string) {
	if s.events != nil {
		s.events.PublishNoteEvent(kind, id)
	}
}
