// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/offnote/internal/localstore"
	"github.com/starford/offnote/internal/storage"
)

// TestDB creates a temporary SQLite replica that is automatically cleaned up.
func TestDB(t testing.TB) *localstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "offnote-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := localstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t testing.TB) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
