package models

import "fmt"

// SyncStatus is the engine's transient view of one note.
type SyncStatus string

// Sync statuses.
const (
	StatusSynced   SyncStatus = "synced"
	StatusSyncing  SyncStatus = "syncing"
	StatusUnsynced SyncStatus = "unsynced"
	StatusError    SyncStatus = "error"
)

// Summary aggregates a status map into counts.
type Summary struct {
	Synced   int `json:"synced"`
	Syncing  int `json:"syncing"`
	Unsynced int `json:"unsynced"`
	Error    int `json:"error"`
}

// Summarize counts statuses in m.
func Summarize(m map[string]SyncStatus) Summary {
	var s Summary
	for _, st := range m {
		switch st {
		case StatusSyncing:
			s.Syncing++
		case StatusUnsynced:
			s.Unsynced++
		case StatusError:
			s.Error++
		default:
			s.Synced++
		}
	}
	return s
}

// Headline returns the one-line summary shown to users. In-flight work wins
// over errors, errors over pending edits.
func (s Summary) Headline() string {
	switch {
	case s.Syncing > 0:
		return "Syncing..."
	case s.Error > 0:
		return fmt.Sprintf("%d sync errors", s.Error)
	case s.Unsynced > 0:
		return fmt.Sprintf("%d unsynced", s.Unsynced)
	default:
		return "All synced"
	}
}
