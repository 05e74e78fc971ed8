package syncengine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/offnote/internal/models"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	runs     *prometheus.CounterVec
	pulled   *prometheus.CounterVec
	pushes   *prometheus.CounterVec
	duration prometheus.Histogram
	notes    *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offnote",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Reconcile invocations by outcome.",
		}, []string{"outcome"}),
		pulled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offnote",
			Subsystem: "sync",
			Name:      "pulled_notes_total",
			Help:      "Remote notes handled during pull by action.",
		}, []string{"action"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offnote",
			Subsystem: "sync",
			Name:      "pushes_total",
			Help:      "Remote writes issued during push.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "offnote",
			Subsystem: "sync",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of completed reconcile passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		notes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "offnote",
			Subsystem: "sync",
			Name:      "notes",
			Help:      "Tracked notes by sync status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.pulled, m.pushes, m.duration, m.notes)
	}
	return m
}

func (m *Metrics) observe(statuses map[string]models.SyncStatus) {
	s := models.Summarize(statuses)
	m.notes.WithLabelValues(string(models.StatusSynced)).Set(float64(s.Synced))
	m.notes.WithLabelValues(string(models.StatusSyncing)).Set(float64(s.Syncing))
	m.notes.WithLabelValues(string(models.StatusUnsynced)).Set(float64(s.Unsynced))
	m.notes.WithLabelValues(string(models.StatusError)).Set(float64(s.Error))
}
