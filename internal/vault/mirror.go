// Package vault mirrors the local replica into a directory of Markdown files,
// one <id>.md per note, and imports edits made to those files.
package vault

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/offnote/internal/apperr"
	"github.com/starford/offnote/internal/checksum"
	"github.com/starford/offnote/internal/localstore"
	"github.com/starford/offnote/internal/models"
	"github.com/starford/offnote/internal/parser"
	"github.com/starford/offnote/internal/storage"
)

// Importer applies an external file edit to the replica.
type Importer interface {
	ImportNote(ctx context.Context, id, title, content string) error
}

// FileName returns the vault file name of a note.
func FileName(id string) string { return id + ".md" }

// noteID extracts the note id from a vault file name. Only UUID stems are
// accepted since the remote rejects anything else.
func noteID(name string) (string, bool) {
	if !storage.IsNoteFile(name) || strings.ContainsRune(name, '/') {
		return "", false
	}
	stem := strings.TrimSuffix(name, ".md")
	if _, err := uuid.Parse(stem); err != nil {
		return "", false
	}
	return stem, true
}

// MirroredStore decorates a localstore.Store: every successful mutation is
// re-rendered into the vault. Mirror failures are logged, never returned.
type MirroredStore struct {
	localstore.Store
	files  storage.Provider
	logger *slog.Logger

	// writeMu orders render-and-write so a stale read never lands last.
	writeMu sync.Mutex

	mu      sync.Mutex
	written map[string]string // file name -> checksum of our last write
}

var _ localstore.Store = (*MirroredStore)(nil)

// NewMirroredStore wraps store with a vault mirror rooted at files.
func NewMirroredStore(store localstore.Store, files storage.Provider, logger *slog.Logger) *MirroredStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirroredStore{
		Store:   store,
		files:   files,
		logger:  logger,
		written: make(map[string]string),
	}
}

// Create inserts the note and writes its file.
func (s *MirroredStore) Create(ctx context.Context, n models.Note) error {
	if err := s.Store.Create(ctx, n); err != nil {
		return err
	}
	s.refresh(ctx, n.ID)
	return nil
}

// Update applies the patch and rewrites the file.
func (s *MirroredStore) Update(ctx context.Context, id string, p models.Patch) error {
	if err := s.Store.Update(ctx, id, p); err != nil {
		return err
	}
	s.refresh(ctx, id)
	return nil
}

// Delete removes the note and its file.
func (s *MirroredStore) Delete(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	name := FileName(id)
	s.forget(name)
	if err := s.files.Delete(name); err != nil {
		s.logger.Warn("vault: delete file", slog.String("file", name), slog.String("error", err.Error()))
	}
	return nil
}

// MarkSynced sets the flag and rewrites the file.
func (s *MirroredStore) MarkSynced(ctx context.Context, id string) error {
	if err := s.Store.MarkSynced(ctx, id); err != nil {
		return err
	}
	s.refresh(ctx, id)
	return nil
}

// MarkUnsynced clears the flag and rewrites the file.
func (s *MirroredStore) MarkUnsynced(ctx context.Context, id string) error {
	if err := s.Store.MarkUnsynced(ctx, id); err != nil {
		return err
	}
	s.refresh(ctx, id)
	return nil
}

// ConfirmPush records the push and rewrites the file when it took effect.
func (s *MirroredStore) ConfirmPush(ctx context.Context, id string, pushedAt, remoteAt time.Time) (bool, error) {
	ok, err := s.Store.ConfirmPush(ctx, id, pushedAt, remoteAt)
	if err != nil || !ok {
		return ok, err
	}
	s.refresh(ctx, id)
	return true, nil
}

// ApplyRemote overwrites the note with the remote copy and rewrites the file
// when it took effect.
func (s *MirroredStore) ApplyRemote(ctx context.Context, rn models.RemoteNote, expectAt time.Time) (bool, error) {
	ok, err := s.Store.ApplyRemote(ctx, rn, expectAt)
	if err != nil || !ok {
		return ok, err
	}
	s.refresh(ctx, rn.ID)
	return true, nil
}

// Reconcile brings the vault and the replica together: missing files are
// restored, and files that differ from what was last written are imported as
// edits. Files named after unknown UUIDs become new notes.
func (s *MirroredStore) Reconcile(ctx context.Context, imp Importer) error {
	notes, err := s.Store.List(ctx)
	if err != nil {
		return err
	}
	metas, err := s.files.List("")
	if err != nil {
		return err
	}
	onDisk := make(map[string]models.FileMeta, len(metas))
	for _, m := range metas {
		onDisk[m.Name] = m
	}

	for _, n := range notes {
		name := FileName(n.ID)
		meta, ok := onDisk[name]
		delete(onDisk, name)
		if !ok {
			s.logger.Debug("vault: restore file", slog.String("file", name))
			s.refresh(ctx, n.ID)
			continue
		}
		if meta.Checksum != s.lastWritten(name) {
			s.importFile(ctx, imp, name)
		}
	}
	for name := range onDisk {
		if _, ok := noteID(name); ok {
			s.importFile(ctx, imp, name)
		}
	}
	return nil
}

// importFile hands a changed file to imp unless it is our own last write.
func (s *MirroredStore) importFile(ctx context.Context, imp Importer, name string) {
	id, ok := noteID(name)
	if !ok {
		return
	}
	data, err := s.files.Read(name)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warn("vault: read file", slog.String("file", name), slog.String("error", err.Error()))
		return
	}
	sum := checksum.Sum(data)
	if sum == s.lastWritten(name) {
		return
	}
	doc, err := parser.Parse(data)
	if err != nil {
		s.logger.Warn("vault: parse file", slog.String("file", name), slog.String("error", err.Error()))
		return
	}
	if doc.HasFrontmatter && doc.ID != "" && doc.ID != id {
		s.logger.Warn("vault: frontmatter id ignored", slog.String("file", name), slog.String("frontmatter_id", doc.ID))
	}

	// Remember first: an import that changes the note rewrites the file and
	// replaces this checksum with the rendered one.
	s.remember(name, sum)
	if err := imp.ImportNote(ctx, id, doc.Title, doc.Body); err != nil {
		s.logger.Warn("vault: import file", slog.String("file", name), slog.String("error", err.Error()))
		s.forget(name)
		return
	}
	s.logger.Debug("vault: imported", slog.String("file", name))
}

func (s *MirroredStore) refresh(ctx context.Context, id string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, err := s.Store.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("vault: load note", slog.String("id", id), slog.String("error", err.Error()))
		return
	}
	data, err := parser.Render(*n)
	if err != nil {
		s.logger.Warn("vault: render note", slog.String("id", id), slog.String("error", err.Error()))
		return
	}
	name := FileName(id)
	s.remember(name, checksum.Sum(data))
	if err := s.files.Write(name, data); err != nil {
		s.forget(name)
		s.logger.Warn("vault: write file", slog.String("file", name), slog.String("error", err.Error()))
	}
}

func (s *MirroredStore) remember(name, sum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written[name] = sum
}

func (s *MirroredStore) forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.written, name)
}

func (s *MirroredStore) lastWritten(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written[name]
}
