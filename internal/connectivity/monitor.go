// Package connectivity tracks whether the remote endpoint is reachable by
// probing it periodically.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Prober checks reachability of the remote. A nil error means online.
type Prober interface {
	Ping(ctx context.Context) error
}

// Fixed is a connectivity signal that never changes.
type Fixed bool

// Online implements the connectivity signal.
func (f Fixed) Online() bool { return bool(f) }

// Monitor probes the remote and reports transitions to listeners.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	online atomic.Bool
	probed atomic.Bool

	mu        sync.Mutex
	listeners []func(online bool)
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the time between probes.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithTimeout bounds a single probe.
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the monitor logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a monitor. It reports offline until the first probe succeeds.
func New(p Prober, opts ...Option) *Monitor {
	m := &Monitor{
		prober:   p,
		interval: 5 * time.Second,
		timeout:  3 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Online reports the result of the latest probe.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// OnChange registers fn to be called on every transition. The first probe
// always counts as a transition.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Check runs one probe, records the result and notifies listeners if the
// state changed.
func (m *Monitor) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Ping(pctx)
	cancel()
	if ctx.Err() != nil {
		return m.Online()
	}

	up := err == nil
	prev := m.online.Swap(up)
	first := !m.probed.Swap(true)
	if prev == up && !first {
		return up
	}

	if up {
		m.logger.Info("connectivity: online")
	} else {
		m.logger.Warn("connectivity: offline", slog.String("error", err.Error()))
	}

	m.mu.Lock()
	listeners := append([]func(bool){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(up)
	}
	return up
}

// Run probes immediately and then every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
