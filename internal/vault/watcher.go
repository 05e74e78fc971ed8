package vault

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	importDelay    = 100 * time.Millisecond
	reconcileDelay = 200 * time.Millisecond
)

// Watch imports external edits to vault files until ctx is cancelled.
// Writes are batched briefly so a file is read once its writer is done.
// Removed or renamed note files trigger a short debounced reconcile that
// restores them from the replica: deletions go through the API, not the
// vault.
func (s *MirroredStore) Watch(ctx context.Context, imp Importer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := s.files.Root()
	if err := w.Add(root); err != nil {
		return err
	}
	s.logger.Info("vault: watching", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	var importTimer *time.Timer
	var importCh <-chan time.Time
	pending := make(map[string]struct{})

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	scheduleImport := func(name string) {
		pending[name] = struct{}{}
		if importTimer == nil {
			importTimer = time.NewTimer(importDelay)
			importCh = importTimer.C
		} else {
			importTimer.Reset(importDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			if importTimer != nil {
				importTimer.Stop()
			}
			s.logger.Info("vault: watcher stopped")
			return nil

		case <-importCh:
			for name := range pending {
				s.importFile(ctx, imp, name)
			}
			clear(pending)

		case <-reconcileCh:
			if err := s.Reconcile(ctx, imp); err != nil {
				s.logger.Warn("vault: reconcile", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if _, ok := noteID(name); !ok {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				scheduleImport(name)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("vault: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
