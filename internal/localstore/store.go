package localstore

import (
	"context"
	"time"

	"github.com/starford/offnote/internal/models"
)

// Store defines the local replica operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing and decoration (see vault.MirroredStore).
type Store interface {
	List(ctx context.Context) ([]models.Note, error)
	Get(ctx context.Context, id string) (*models.Note, error)
	Create(ctx context.Context, n models.Note) error
	Update(ctx context.Context, id string, p models.Patch) error
	Delete(ctx context.Context, id string) error
	ListUnsynced(ctx context.Context) ([]models.Note, error)
	MarkSynced(ctx context.Context, id string) error
	MarkUnsynced(ctx context.Context, id string) error
	ConfirmPush(ctx context.Context, id string, pushedAt, remoteAt time.Time) (bool, error)
	ApplyRemote(ctx context.Context, rn models.RemoteNote, expectAt time.Time) (bool, error)
	Search(ctx context.Context, query string) ([]models.Note, error)
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
