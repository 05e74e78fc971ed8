// Package syncengine reconciles the local note replica with the remote
// endpoint: a pull of the remote collection followed by a push of every note
// with pending local edits.
package syncengine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/offnote/internal/apperr"
	"github.com/starford/offnote/internal/models"
)

// Local is the subset of the local store the engine needs.
type Local interface {
	Get(ctx context.Context, id string) (*models.Note, error)
	Create(ctx context.Context, n models.Note) error
	Update(ctx context.Context, id string, p models.Patch) error
	ListUnsynced(ctx context.Context) ([]models.Note, error)
	ConfirmPush(ctx context.Context, id string, pushedAt, remoteAt time.Time) (bool, error)
	ApplyRemote(ctx context.Context, rn models.RemoteNote, expectAt time.Time) (bool, error)
}

// Remote is the remote CRUD endpoint.
type Remote interface {
	List(ctx context.Context) ([]models.RemoteNote, error)
	Get(ctx context.Context, id string) (*models.RemoteNote, error)
	Create(ctx context.Context, n models.RemoteNote) (*models.RemoteNote, error)
	Update(ctx context.Context, n models.RemoteNote) (*models.RemoteNote, error)
}

// Connectivity reports whether the remote is believed reachable.
type Connectivity interface {
	Online() bool
}

// Skip reasons reported in Result.Skipped.
const (
	SkipOffline = "offline"
	SkipRunning = "running"
)

// Result reports what one ReconcileAll call did.
type Result struct {
	Skipped     string        `json:"skipped,omitempty"`
	PullFailed  bool          `json:"pullFailed,omitempty"`
	Inserted    int           `json:"inserted"`
	Overwritten int           `json:"overwritten"`
	KeptLocal   int           `json:"keptLocal"`
	Pushed      int           `json:"pushed"`
	Requeued    int           `json:"requeued"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
}

// Ran reports whether the pass actually executed.
func (r Result) Ran() bool { return r.Skipped == "" }

type pushOutcome int

const (
	pushed pushOutcome = iota
	requeued
	failed
	skipped
)

// Engine owns the per-note status map and the single-flight reconcile guard.
type Engine struct {
	local   Local
	remote  Remote
	conn    Connectivity
	logger  *slog.Logger
	metrics *Metrics

	running atomic.Bool
	// pushMu serializes single-note pushes between ReconcileAll and SyncOne.
	pushMu sync.Mutex

	mu       sync.Mutex
	statuses map[string]models.SyncStatus
	subs     []subscription
	nextSub  uint64
	notifyMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the collectors the engine reports to.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// New creates an engine. All three collaborators are required.
func New(local Local, remote Remote, conn Connectivity, opts ...Option) *Engine {
	e := &Engine{
		local:    local,
		remote:   remote,
		conn:     conn,
		logger:   slog.Default(),
		metrics:  NewMetrics(nil),
		statuses: make(map[string]models.SyncStatus),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running reports whether a reconcile pass is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// ReconcileAll runs one pull-then-push pass. It returns immediately when
// offline or when another pass is in progress. Failures are recorded in the
// status map and the result; nothing is returned as an error.
func (e *Engine) ReconcileAll(ctx context.Context) Result {
	if !e.conn.Online() {
		e.metrics.runs.WithLabelValues(SkipOffline).Inc()
		e.logger.Debug("sync: skipped", slog.String("reason", SkipOffline))
		return Result{Skipped: SkipOffline}
	}
	if !e.running.CompareAndSwap(false, true) {
		e.metrics.runs.WithLabelValues(SkipRunning).Inc()
		e.logger.Debug("sync: skipped", slog.String("reason", SkipRunning))
		return Result{Skipped: SkipRunning}
	}
	defer e.running.Store(false)

	start := time.Now()
	var res Result
	e.pull(ctx, &res)
	e.push(ctx, &res)
	res.Duration = time.Since(start)

	e.metrics.runs.WithLabelValues("completed").Inc()
	e.metrics.duration.Observe(res.Duration.Seconds())
	e.logger.Info("sync: reconciled",
		slog.Bool("pull_failed", res.PullFailed),
		slog.Int("inserted", res.Inserted),
		slog.Int("overwritten", res.Overwritten),
		slog.Int("kept_local", res.KeptLocal),
		slog.Int("pushed", res.Pushed),
		slog.Int("requeued", res.Requeued),
		slog.Int("failed", res.Failed),
		slog.Duration("duration", res.Duration),
	)
	return res
}

// SyncOne pushes a single note if it has pending edits. It does not consult
// connectivity: a failed push just marks the note as errored.
func (e *Engine) SyncOne(ctx context.Context, id string) {
	n, err := e.local.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			e.logger.Warn("sync: load note", slog.String("id", id), slog.String("error", err.Error()))
		}
		return
	}
	if n.Synced {
		return
	}
	e.pushNote(ctx, id)
}

// pull merges the remote collection into the local store. A note with pending
// local edits is never overwritten; otherwise the strictly newer side wins.
func (e *Engine) pull(ctx context.Context, res *Result) {
	notes, err := e.remote.List(ctx)
	if err != nil {
		res.PullFailed = true
		e.metrics.pulled.WithLabelValues("failed").Inc()
		e.logger.Warn("sync: pull failed", slog.String("error", err.Error()))
		return
	}

	for _, rn := range notes {
		local, err := e.local.Get(ctx, rn.ID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			if err := e.local.Create(ctx, models.FromRemote(rn)); err != nil {
				e.logger.Warn("sync: insert pulled note", slog.String("id", rn.ID), slog.String("error", err.Error()))
				continue
			}
			res.Inserted++
			e.metrics.pulled.WithLabelValues("inserted").Inc()
			e.setStatus(rn.ID, models.StatusSynced)
		case err != nil:
			e.logger.Warn("sync: load local note", slog.String("id", rn.ID), slog.String("error", err.Error()))
		case !local.Synced:
			res.KeptLocal++
			e.metrics.pulled.WithLabelValues("kept_local").Inc()
		case rn.UpdatedAt.After(local.UpdatedAt):
			ok, err := e.local.ApplyRemote(ctx, rn, local.UpdatedAt)
			if err != nil {
				e.logger.Warn("sync: overwrite local note", slog.String("id", rn.ID), slog.String("error", err.Error()))
				continue
			}
			if !ok {
				// Edited (or deleted) since it was read; the local side wins.
				res.KeptLocal++
				e.metrics.pulled.WithLabelValues("kept_local").Inc()
				continue
			}
			res.Overwritten++
			e.metrics.pulled.WithLabelValues("overwritten").Inc()
			e.setStatus(rn.ID, models.StatusSynced)
		}
	}
}

func (e *Engine) push(ctx context.Context, res *Result) {
	notes, err := e.local.ListUnsynced(ctx)
	if err != nil {
		e.logger.Warn("sync: list unsynced", slog.String("error", err.Error()))
		return
	}
	for _, n := range notes {
		switch e.pushNote(ctx, n.ID) {
		case pushed:
			res.Pushed++
		case requeued:
			res.Requeued++
		case failed:
			res.Failed++
		}
	}
}

// pushNote sends the full note body, creating it remotely when the existence
// probe says it is missing. The note is reloaded under pushMu, so a caller
// that waited behind another push of the same note never sends a stale body.
// The note is marked synced only if it was not edited while the push was in
// flight.
func (e *Engine) pushNote(ctx context.Context, id string) pushOutcome {
	e.pushMu.Lock()
	defer e.pushMu.Unlock()

	n, err := e.local.Get(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		e.Forget(id)
		return skipped
	case err != nil:
		return e.fail(id, "load", err)
	case n.Synced:
		return skipped
	}

	e.setStatus(n.ID, models.StatusSyncing)

	op := "update"
	_, err = e.remote.Get(ctx, n.ID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		op = "create"
	case err != nil:
		return e.fail(n.ID, "probe", err)
	}

	var saved *models.RemoteNote
	if op == "create" {
		saved, err = e.remote.Create(ctx, n.Remote())
	} else {
		saved, err = e.remote.Update(ctx, n.Remote())
	}
	if err != nil {
		e.metrics.pushes.WithLabelValues(op, "error").Inc()
		return e.fail(n.ID, op, err)
	}
	e.metrics.pushes.WithLabelValues(op, "ok").Inc()

	remoteAt := n.UpdatedAt
	if saved != nil && !saved.UpdatedAt.IsZero() {
		remoteAt = saved.UpdatedAt
	}
	ok, err := e.local.ConfirmPush(ctx, n.ID, n.UpdatedAt, remoteAt)
	if err != nil {
		return e.fail(n.ID, "confirm", err)
	}
	if ok {
		e.setStatus(n.ID, models.StatusSynced)
		return pushed
	}
	return e.settleStale(ctx, n.ID)
}

// settleStale resolves a push whose confirmation lost the race with a local
// change: the note was edited, deleted, or already synced by another push.
func (e *Engine) settleStale(ctx context.Context, id string) pushOutcome {
	cur, err := e.local.Get(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		e.Forget(id)
	case err != nil:
		return e.fail(id, "confirm", err)
	case cur.Synced:
		e.setStatus(id, models.StatusSynced)
	default:
		e.logger.Info("sync: note changed during push", slog.String("id", id))
		e.setStatus(id, models.StatusUnsynced)
	}
	return requeued
}

func (e *Engine) fail(id, stage string, err error) pushOutcome {
	e.logger.Warn("sync: push failed",
		slog.String("id", id),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
	e.setStatus(id, models.StatusError)
	return failed
}
