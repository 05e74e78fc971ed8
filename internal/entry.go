// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/offnote/internal/api"
	"github.com/starford/offnote/internal/connectivity"
	"github.com/starford/offnote/internal/localstore"
	"github.com/starford/offnote/internal/mcpserver"
	"github.com/starford/offnote/internal/memstore"
	"github.com/starford/offnote/internal/noteservice"
	"github.com/starford/offnote/internal/remote"
	"github.com/starford/offnote/internal/sse"
	"github.com/starford/offnote/internal/storage"
	"github.com/starford/offnote/internal/syncengine"
	"github.com/starford/offnote/internal/trigger"
	"github.com/starford/offnote/internal/vault"
)

// RunServer runs the remote endpoint: an in-memory note table behind the
// remote HTTP API.
func RunServer(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger, closer := newLogger(cfg.App, app.console)
	defer closer.Close()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", "server"),
		slog.String("http_address", cfg.Server.HTTP.Address()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	r := newRouter()
	r.Mount("/api", api.NewRemoteRouter(memstore.New()))

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)
	serveHTTP(g, gCtx, httpServer, logger)

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Server stopped successfully")
	return nil
}

// RunClient runs the offline-first client: the local replica, the sync
// engine and its triggers, the optional vault mirror, and the local HTTP API
// with SSE and metrics.
func RunClient(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger, closer := newLogger(cfg.App, app.console)
	defer closer.Close()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", "client"),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("remote_url", cfg.Remote.URL),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c, err := newClient(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer c.close()

	r := newRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/api", api.NewRouter(c.svc, c.broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)
	c.start(g, gCtx)
	serveHTTP(g, gCtx, httpServer, logger)

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Client stopped successfully")
	return nil
}

// RunMCP runs the client stack behind an MCP stdio server. Logs go to the
// configured console writer; stdout belongs to the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger, closer := newLogger(cfg.App, app.console)
	defer closer.Close()
	slog.SetDefault(logger)

	c, err := newClient(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.close()

	srv := mcpserver.New(c.svc)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)
	c.start(g, gCtx)
	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server starting on stdio")
		return srv.ServeStdio()
	})

	return g.Wait()
}

// client is the wired client stack shared by the client and mcp commands.
type client struct {
	logger  *slog.Logger
	db      *localstore.DB
	mirror  *vault.MirroredStore
	monitor *connectivity.Monitor
	engine  *syncengine.Engine
	sched   *trigger.Scheduler
	broker  *sse.Broker
	svc     *noteservice.Service
	unsub   func()
}

func newClient(ctx context.Context, cfg *Config, logger *slog.Logger, reg prometheus.Registerer) (*client, error) {
	db, err := localstore.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init local store: %w", err)
	}
	c := &client{logger: logger, db: db}

	var store localstore.Store = db
	if cfg.Vault.Enabled() {
		if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
			c.close()
			return nil, fmt.Errorf("create vault dir: %w", err)
		}
		files, err := storage.NewFS(cfg.Vault.Path)
		if err != nil {
			c.close()
			return nil, fmt.Errorf("init vault: %w", err)
		}
		c.mirror = vault.NewMirroredStore(db, files, logger)
		store = c.mirror
	}

	rc, err := remote.New(cfg.Remote.URL,
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithRateLimit(cfg.Remote.RateLimit.RPS, cfg.Remote.RateLimit.Burst),
	)
	if err != nil {
		c.close()
		return nil, err
	}

	c.monitor = connectivity.New(rc,
		connectivity.WithInterval(cfg.Sync.ProbeInterval),
		connectivity.WithTimeout(cfg.Sync.ProbeTimeout),
		connectivity.WithLogger(logger),
	)

	metrics := syncengine.NewMetrics(reg)
	if reg != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "offnote",
			Name:      "remote_online",
			Help:      "1 when the remote endpoint answered the latest probe.",
		}, func() float64 {
			if c.monitor.Online() {
				return 1
			}
			return 0
		}))
	}

	c.engine = syncengine.New(store, rc, c.monitor,
		syncengine.WithLogger(logger),
		syncengine.WithMetrics(metrics),
	)

	c.broker = sse.NewBroker(0)
	c.unsub = c.engine.Subscribe(c.broker.PublishStatus)

	c.svc = noteservice.NewService(store, c.engine, c.monitor, noteservice.WithEvents(c.broker))

	c.sched, err = trigger.New(c.engine, cfg.Sync.Schedule, cfg.Sync.OnlineDelay, logger)
	if err != nil {
		c.close()
		return nil, err
	}
	c.monitor.OnChange(c.sched.OnConnectivity)

	if err := c.svc.Prime(ctx); err != nil {
		c.close()
		return nil, fmt.Errorf("prime sync status: %w", err)
	}
	if c.mirror != nil {
		if err := c.mirror.Reconcile(ctx, c.svc); err != nil {
			logger.Warn("initial vault reconcile failed", slog.String("error", err.Error()))
		}
	}
	return c, nil
}

// start launches the background loops: connectivity probes, reconcile
// triggers and the vault watcher.
func (c *client) start(g *errgroup.Group, ctx context.Context) {
	g.Go(func() error {
		return c.monitor.Run(ctx)
	})
	g.Go(func() error {
		return c.sched.Run(ctx)
	})
	if c.mirror != nil {
		g.Go(func() error {
			if err := c.mirror.Watch(ctx, c.svc); err != nil {
				c.logger.Error("vault watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}
}

func (c *client) close() {
	if c.unsub != nil {
		c.unsub()
	}
	if c.broker != nil {
		c.broker.Close()
	}
	if err := c.db.Close(); err != nil {
		c.logger.Warn("close local store", slog.String("error", err.Error()))
	}
}

func newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}

// serveHTTP runs srv in g and shuts it down on a signal or when ctx ends.
func serveHTTP(g *errgroup.Group, ctx context.Context, srv *http.Server, logger *slog.Logger) {
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-ctx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})
}

// errShutdown cancels the group's context so background loops stop with the
// HTTP server. It is not reported as a failure.
var errShutdown = errors.New("shutdown")
