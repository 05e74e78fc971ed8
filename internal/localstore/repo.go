package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/offnote/internal/apperr"
	"github.com/starford/offnote/internal/models"
)

const selectCols = `SELECT id, title, content, updated_at, synced FROM notes`

// List returns every note, most recently updated first.
func (db *DB) List(ctx context.Context) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, selectCols+` ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("localstore: list: %w", err)
	}
	return scanNotes(rows)
}

// ListUnsynced returns notes with pending local edits, most recent first.
func (db *DB) ListUnsynced(ctx context.Context) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, selectCols+` WHERE synced = 0 ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("localstore: list unsynced: %w", err)
	}
	return scanNotes(rows)
}

// Get returns the note with the given id or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, id string) (*models.Note, error) {
	row := db.conn.QueryRowContext(ctx, selectCols+` WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: get %s: %w", id, err)
	}
	return n, nil
}

// Create inserts a new note. A zero UpdatedAt is stamped with the current time.
func (db *DB) Create(ctx context.Context, n models.Note) error {
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = db.now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, updated_at, synced)
		VALUES (?, ?, ?, ?, ?)
	`, n.ID, n.Title, n.Content, n.UpdatedAt.UnixNano(), n.Synced)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("localstore: create %s: %w", n.ID, err)
	}
	return nil
}

// Update applies a partial update. Fields left nil in p are unchanged; a nil
// UpdatedAt stamps the note with the current time.
func (db *DB) Update(ctx context.Context, id string, p models.Patch) error {
	sets := []string{"updated_at = ?"}
	at := db.now()
	if p.UpdatedAt != nil {
		at = *p.UpdatedAt
	}
	args := []any{at.UnixNano()}
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *p.Content)
	}
	if p.Synced != nil {
		sets = append(sets, "synced = ?")
		args = append(args, *p.Synced)
	}
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx, `UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("localstore: update %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// Delete removes a note. Deletes are local only.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("localstore: delete %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// MarkSynced sets the synced flag without touching updated_at.
func (db *DB) MarkSynced(ctx context.Context, id string) error {
	return db.setSynced(ctx, id, true)
}

// MarkUnsynced clears the synced flag without touching updated_at.
func (db *DB) MarkUnsynced(ctx context.Context, id string) error {
	return db.setSynced(ctx, id, false)
}

func (db *DB) setSynced(ctx context.Context, id string, synced bool) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE notes SET synced = ? WHERE id = ?`, synced, id)
	if err != nil {
		return fmt.Errorf("localstore: set synced %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// ConfirmPush records a successful push: the note takes the remote timestamp
// and becomes synced, but only if it still carries pushedAt. It reports false
// when the note was edited (or deleted) while the push was in flight.
func (db *DB) ConfirmPush(ctx context.Context, id string, pushedAt, remoteAt time.Time) (bool, error) {
	if remoteAt.IsZero() {
		remoteAt = pushedAt
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE notes SET synced = 1, updated_at = ?
		WHERE id = ? AND updated_at = ? AND synced = 0
	`, remoteAt.UnixNano(), id, pushedAt.UnixNano())
	if err != nil {
		return false, fmt.Errorf("localstore: confirm push %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("localstore: confirm push %s: %w", id, err)
	}
	return n == 1, nil
}

// ApplyRemote overwrites a synced note with the remote copy, but only if it
// still carries expectAt. It reports false when the note was edited (or
// deleted) after the caller read it.
func (db *DB) ApplyRemote(ctx context.Context, rn models.RemoteNote, expectAt time.Time) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, updated_at = ?, synced = 1
		WHERE id = ? AND synced = 1 AND updated_at = ?
	`, rn.Title, rn.Content, rn.UpdatedAt.UnixNano(), rn.ID, expectAt.UnixNano())
	if err != nil {
		return false, fmt.Errorf("localstore: apply remote %s: %w", rn.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("localstore: apply remote %s: %w", rn.ID, err)
	}
	return n == 1, nil
}

// Search returns notes whose title or content contains query, ignoring case,
// most recent first. The query is matched as given, surrounding spaces
// included; a blank query returns every note.
func (db *DB) Search(ctx context.Context, query string) ([]models.Note, error) {
	all, err := db.List(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return all, nil
	}
	term := strings.ToLower(query)
	// SQLite's LIKE and lower() only fold ASCII, so match in Go.
	out := make([]models.Note, 0, len(all))
	for _, n := range all {
		if strings.Contains(strings.ToLower(n.Title), term) || strings.Contains(strings.ToLower(n.Content), term) {
			out = append(out, n)
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (*models.Note, error) {
	var (
		n  models.Note
		ns int64
	)
	if err := r.Scan(&n.ID, &n.Title, &n.Content, &ns, &n.Synced); err != nil {
		return nil, err
	}
	n.UpdatedAt = time.Unix(0, ns).UTC()
	return &n, nil
}

func scanNotes(rows *sql.Rows) ([]models.Note, error) {
	defer rows.Close()
	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("localstore: scan: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("localstore: rows affected %s: %w", id, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
