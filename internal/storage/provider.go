// Package storage defines the vault file-system abstraction used by the
// note mirror.
package storage

import "github.com/starford/offnote/internal/models"

// Provider is the interface for vault file operations. All names are
// relative to the vault root.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// List returns metadata for every note file (*.md) under dir.
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of a file. Missing files yield an error
	// matching os.ErrNotExist.
	Read(name string) ([]byte, error)
	// Write atomically replaces the content of a file.
	Write(name string, content []byte) error
	// Delete removes a file. Deleting a missing file is not an error.
	Delete(name string) error
}
