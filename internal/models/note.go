// Package models defines the domain types for offnote.
package models

import "time"

// DefaultTitle is assigned to notes created without a title.
const DefaultTitle = "Untitled Note"

// MaxTitleLength is the longest title the remote accepts, in characters.
const MaxTitleLength = 500

// Note is the local replica of a note. Synced is a purely local flag: it is
// true iff the local copy is known to match the remote copy as of UpdatedAt.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
	Synced    bool      `json:"synced"`
}

// RemoteNote is the wire and server-side shape of a note. The remote replica
// has no notion of sync state.
type RemoteNote struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Remote returns the full note body sent on push.
func (n Note) Remote() RemoteNote {
	return RemoteNote{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		UpdatedAt: n.UpdatedAt,
	}
}

// FromRemote builds a local note from a remote one. Pulled notes are synced by
// definition.
func FromRemote(r RemoteNote) Note {
	return Note{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		UpdatedAt: r.UpdatedAt,
		Synced:    true,
	}
}

// Patch is a partial update to a local note. Nil fields are left unchanged.
// A nil UpdatedAt means "now" (a local edit); server-authoritative patches
// carry the remote timestamp.
type Patch struct {
	Title     *string
	Content   *string
	UpdatedAt *time.Time
	Synced    *bool
}

// UserEdit returns the patch for a local edit: it always marks the note dirty.
func UserEdit(title, content *string) Patch {
	dirty := false
	return Patch{Title: title, Content: content, Synced: &dirty}
}

// RemoteOverwrite returns the patch that replaces local data with the remote
// copy and marks the note synced.
func RemoteOverwrite(r RemoteNote) Patch {
	synced := true
	at := r.UpdatedAt
	return Patch{Title: &r.Title, Content: &r.Content, UpdatedAt: &at, Synced: &synced}
}

// FileMeta describes one mirrored note file in the vault.
type FileMeta struct {
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
