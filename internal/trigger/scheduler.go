// Package trigger decides when a reconcile pass runs: on a cron schedule, a
// short delay after connectivity returns, and on demand.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/offnote/internal/syncengine"
)

// Reconciler runs one reconcile pass.
type Reconciler interface {
	ReconcileAll(ctx context.Context) syncengine.Result
}

// Scheduler drives a Reconciler. Overlapping passes are not its concern: the
// engine's single-flight guard rejects them.
type Scheduler struct {
	rec         Reconciler
	cron        *cron.Cron
	onlineDelay time.Duration
	logger      *slog.Logger
	// ctx is the Run context; scheduled jobs inherit it.
	ctx         context.Context

	online chan struct{}
	now    chan struct{}
}

// New creates a scheduler. schedule is a standard cron expression or a
// descriptor such as "@every 30s"; an empty schedule disables periodic runs.
func New(rec Reconciler, schedule string, onlineDelay time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		rec:         rec,
		onlineDelay: onlineDelay,
		logger:      logger,
		ctx:         context.Background(),
		online:      make(chan struct{}, 1),
		now:         make(chan struct{}, 1),
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if schedule != "" {
		if _, err := s.cron.AddFunc(schedule, func() { s.run("schedule") }); err != nil {
			return nil, fmt.Errorf("trigger: schedule %q: %w", schedule, err)
		}
	}
	return s, nil
}

// OnConnectivity is a connectivity listener: coming online arms the delayed
// reconcile. Repeated transitions inside the delay restart it.
func (s *Scheduler) OnConnectivity(online bool) {
	if !online {
		return
	}
	select {
	case s.online <- struct{}{}:
	default:
	}
}

// Kick requests an immediate pass without blocking.
func (s *Scheduler) Kick() {
	select {
	case s.now <- struct{}{}:
	default:
	}
}

// Run starts the cron scheduler and serves triggers until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("trigger: started", slog.Duration("online_delay", s.onlineDelay))

	var delay *time.Timer
	var delayCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if delay != nil {
				delay.Stop()
			}
			<-s.cron.Stop().Done()
			s.logger.Info("trigger: stopped")
			return nil

		case <-s.online:
			if delay == nil {
				delay = time.NewTimer(s.onlineDelay)
				delayCh = delay.C
			} else {
				delay.Reset(s.onlineDelay)
			}

		case <-delayCh:
			s.run("online")

		case <-s.now:
			s.run("manual")
		}
	}
}

func (s *Scheduler) run(reason string) {
	res := s.rec.ReconcileAll(s.ctx)
	if !res.Ran() {
		s.logger.Debug("trigger: pass skipped", slog.String("trigger", reason), slog.String("reason", res.Skipped))
		return
	}
	s.logger.Debug("trigger: pass done", slog.String("trigger", reason), slog.Int("pushed", res.Pushed))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
