package syncengine

import (
	"maps"
	"sync"

	"github.com/starford/offnote/internal/models"
)

// Subscriber receives the full status map after every status change. It is
// called synchronously on the goroutine that changed the status and must not
// start a sync itself.
type Subscriber func(statuses map[string]models.SyncStatus)

type subscription struct {
	id uint64
	fn Subscriber
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is idempotent and never affects other subscribers.
func (e *Engine) Subscribe(fn Subscriber) func() {
	e.mu.Lock()
	e.nextSub++
	id := e.nextSub
	// Copy on write: deliveries iterate over the slice they captured.
	subs := make([]subscription, len(e.subs), len(e.subs)+1)
	copy(subs, e.subs)
	e.subs = append(subs, subscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			kept := make([]subscription, 0, len(e.subs))
			for _, s := range e.subs {
				if s.id != id {
					kept = append(kept, s)
				}
			}
			e.subs = kept
		})
	}
}

// CurrentStatus returns the tracked status of a note. Untracked notes are
// reported as synced.
func (e *Engine) CurrentStatus(id string) models.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.statuses[id]; ok {
		return st
	}
	return models.StatusSynced
}

// Statuses returns a copy of every tracked status.
func (e *Engine) Statuses() map[string]models.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.statuses)
}

// Summary aggregates the tracked statuses.
func (e *Engine) Summary() models.Summary {
	return models.Summarize(e.Statuses())
}

// MarkDirty records that a note has pending local edits.
func (e *Engine) MarkDirty(id string) {
	e.setStatus(id, models.StatusUnsynced)
}

// Forget drops the status of a note that no longer exists locally.
func (e *Engine) Forget(id string) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	if _, ok := e.statuses[id]; !ok {
		e.mu.Unlock()
		return
	}
	delete(e.statuses, id)
	snap, subs := maps.Clone(e.statuses), e.subs
	e.mu.Unlock()

	e.deliver(snap, subs)
}

func (e *Engine) setStatus(id string, st models.SyncStatus) {
	// notifyMu orders deliveries: observers see snapshots in change order.
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	if prev, ok := e.statuses[id]; ok && prev == st {
		e.mu.Unlock()
		return
	}
	e.statuses[id] = st
	snap, subs := maps.Clone(e.statuses), e.subs
	e.mu.Unlock()

	e.deliver(snap, subs)
}

func (e *Engine) deliver(snap map[string]models.SyncStatus, subs []subscription) {
	e.metrics.observe(snap)
	for _, s := range subs {
		s.fn(maps.Clone(snap))
	}
}
