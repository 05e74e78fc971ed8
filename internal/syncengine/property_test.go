package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/starford/offnote/internal/models"
	"github.com/starford/offnote/internal/testutil"
)

const (
	localAbsent = iota
	localSynced
	localDirty
)

// After one healthy pass every note is synced, dirty local notes keep their
// content and win remotely, and synced notes take the remote copy only when it
// is strictly newer.
func TestProperty_ReconcileOutcome(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	db := testutil.TestDB(t)
	ctx := context.Background()

	properties.Property("pull-then-push settles every note", prop.ForAll(
		func(localState int, remotePresent bool, localOffset, remoteOffset int) bool {
			id := uuid.NewString()
			localAt := base.Add(time.Duration(localOffset) * time.Minute)
			remoteAt := base.Add(time.Duration(remoteOffset) * time.Minute)

			rem := newFakeRemote()
			if remotePresent {
				rem.put(models.RemoteNote{ID: id, Title: "remote", UpdatedAt: remoteAt})
			}
			if localState != localAbsent {
				err := db.Create(ctx, models.Note{ID: id, Title: "local", UpdatedAt: localAt, Synced: localState == localSynced})
				if err != nil {
					return false
				}
			}

			eng := New(db, rem, onlineConn(), WithLogger(quiet))
			res := eng.ReconcileAll(ctx)
			if !res.Ran() || res.Failed != 0 {
				return false
			}

			got, err := db.Get(ctx, id)
			if localState == localAbsent && !remotePresent {
				return err != nil
			}
			if err != nil || !got.Synced {
				return false
			}
			r, onRemote := rem.note(id)

			switch {
			case localState == localAbsent:
				return got.Title == "remote" && got.UpdatedAt.Equal(remoteAt)
			case localState == localDirty:
				return got.Title == "local" && onRemote && r.Title == "local" && got.UpdatedAt.Equal(r.UpdatedAt)
			case remotePresent && remoteAt.After(localAt):
				return got.Title == "remote" && got.UpdatedAt.Equal(remoteAt)
			default:
				return got.Title == "local" && got.UpdatedAt.Equal(localAt)
			}
		},
		gen.IntRange(localAbsent, localDirty),
		gen.Bool(),
		gen.IntRange(-3, 3),
		gen.IntRange(-3, 3),
	))

	properties.TestingRun(t)
}

// Offline passes are inert regardless of what is pending.
func TestProperty_OfflineIsInert(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	db := testutil.TestDB(t)
	ctx := context.Background()

	properties.Property("offline reconcile makes no calls", prop.ForAll(
		func(dirty int) bool {
			for i := 0; i < dirty; i++ {
				if err := db.Create(ctx, models.Note{ID: uuid.NewString(), UpdatedAt: base}); err != nil {
					return false
				}
			}
			local := &countingLocal{Local: db}
			rem := newFakeRemote()
			eng := New(local, rem, &fakeConn{}, WithLogger(quiet))
			res := eng.ReconcileAll(ctx)
			return res.Skipped == SkipOffline && local.calls.Load() == 0 && rem.calls.Load() == 0 && len(eng.Statuses()) == 0
		},
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
