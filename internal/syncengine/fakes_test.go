package syncengine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/offnote/internal/apperr"
	"github.com/starford/offnote/internal/models"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeRemote is an in-memory endpoint that stamps writes with a monotonic
// clock and lets tests inject failures and hooks.
type fakeRemote struct {
	mu    sync.Mutex
	notes map[string]models.RemoteNote
	clock time.Time

	listErr  error
	getErr   error
	writeErr error
	// failWrites fails Create/Update for the listed ids only.
	failWrites map[string]error
	// onList runs before List returns; onWrite runs inside Create/Update.
	onList  func()
	onWrite func(n models.RemoteNote)

	calls   atomic.Int64
	creates atomic.Int64
	updates atomic.Int64
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		notes: make(map[string]models.RemoteNote),
		clock: base.Add(time.Hour),
	}
}

func (r *fakeRemote) put(n models.RemoteNote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.ID] = n
}

func (r *fakeRemote) note(id string) (models.RemoteNote, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	return n, ok
}

func (r *fakeRemote) writeFailure(id string) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failWrites[id]
}

func (r *fakeRemote) List(_ context.Context) ([]models.RemoteNote, error) {
	r.calls.Add(1)
	if r.onList != nil {
		r.onList()
	}
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RemoteNote, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRemote) Get(_ context.Context, id string) (*models.RemoteNote, error) {
	r.calls.Add(1)
	if r.getErr != nil {
		return nil, r.getErr
	}
	n, ok := r.note(id)
	if !ok {
		return nil, fmt.Errorf("remote: GET %s: %w", id, apperr.ErrNotFound)
	}
	return &n, nil
}

func (r *fakeRemote) Create(_ context.Context, n models.RemoteNote) (*models.RemoteNote, error) {
	r.calls.Add(1)
	r.creates.Add(1)
	if r.onWrite != nil {
		r.onWrite(n)
	}
	if err := r.writeFailure(n.ID); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[n.ID]; ok {
		return nil, apperr.ErrAlreadyExists
	}
	r.clock = r.clock.Add(time.Second)
	n.UpdatedAt = r.clock
	r.notes[n.ID] = n
	return &n, nil
}

func (r *fakeRemote) Update(_ context.Context, n models.RemoteNote) (*models.RemoteNote, error) {
	r.calls.Add(1)
	r.updates.Add(1)
	if r.onWrite != nil {
		r.onWrite(n)
	}
	if err := r.writeFailure(n.ID); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[n.ID]; !ok {
		return nil, apperr.ErrNotFound
	}
	r.clock = r.clock.Add(time.Second)
	n.UpdatedAt = r.clock
	r.notes[n.ID] = n
	return &n, nil
}

type fakeConn struct{ online atomic.Bool }

func onlineConn() *fakeConn {
	c := &fakeConn{}
	c.online.Store(true)
	return c
}

func (c *fakeConn) Online() bool { return c.online.Load() }

// countingLocal records every call that reaches the local store.
type countingLocal struct {
	Local
	calls atomic.Int64
}

func (l *countingLocal) Get(ctx context.Context, id string) (*models.Note, error) {
	l.calls.Add(1)
	return l.Local.Get(ctx, id)
}

func (l *countingLocal) Create(ctx context.Context, n models.Note) error {
	l.calls.Add(1)
	return l.Local.Create(ctx, n)
}

func (l *countingLocal) Update(ctx context.Context, id string, p models.Patch) error {
	l.calls.Add(1)
	return l.Local.Update(ctx, id, p)
}

func (l *countingLocal) ListUnsynced(ctx context.Context) ([]models.Note, error) {
	l.calls.Add(1)
	return l.Local.ListUnsynced(ctx)
}

func (l *countingLocal) ConfirmPush(ctx context.Context, id string, pushedAt, remoteAt time.Time) (bool, error) {
	l.calls.Add(1)
	return l.Local.ConfirmPush(ctx, id, pushedAt, remoteAt)
}

func (l *countingLocal) ApplyRemote(ctx context.Context, rn models.RemoteNote, expectAt time.Time) (bool, error) {
	l.calls.Add(1)
	return l.Local.ApplyRemote(ctx, rn, expectAt)
}

// hookedLocal runs afterGet once, right after the first Get of id returns,
// to interleave a change between the engine's read and its next step.
type hookedLocal struct {
	Local
	id       string
	fired    atomic.Bool
	afterGet func()
}

func (l *hookedLocal) Get(ctx context.Context, id string) (*models.Note, error) {
	n, err := l.Local.Get(ctx, id)
	if id == l.id && l.fired.CompareAndSwap(false, true) {
		l.afterGet()
	}
	return n, err
}

// recorder collects status snapshots delivered to a subscriber.
type recorder struct {
	mu    sync.Mutex
	snaps []map[string]models.SyncStatus
}

func (r *recorder) record(m map[string]models.SyncStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, m)
}

// history returns the sequence of statuses id went through.
func (r *recorder) history(id string) []models.SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SyncStatus
	for _, s := range r.snaps {
		st, ok := s[id]
		if !ok {
			continue
		}
		if len(out) == 0 || out[len(out)-1] != st {
			out = append(out, st)
		}
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}
