// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/glance/internal/api"
	"github.com/starford/glance/internal/bootsync"
	"github.com/starford/glance/internal/bridge"
	"github.com/starford/glance/internal/deeplink"
	"github.com/starford/glance/internal/host"
	"github.com/starford/glance/internal/mcpserver"
	"github.com/starford/glance/internal/metrics"
	"github.com/starford/glance/internal/signals"
	"github.com/starford/glance/internal/sse"
	"github.com/starford/glance/internal/storage"
)

const keepAliveInterval = 15 * time.Second

// stack is everything built from the configuration, shared by the HTTP
// and MCP entry points.
type stack struct {
	store      storage.Provider
	broker     *sse.Broker
	metrics    *metrics.Metrics
	components bridge.Components
	runtime    *bridge.Runtime
	callbacks  *bridge.Callbacks
}

func (s *stack) close(logger *slog.Logger) {
	s.components.Close()
	s.broker.Close()
	if err := s.store.Close(); err != nil {
		logger.Error("store close failed", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func buildStack(cfg *Config, logger *slog.Logger) (*stack, error) {
	loc, err := cfg.Host.Location()
	if err != nil {
		return nil, fmt.Errorf("host timezone: %w", err)
	}

	store, err := storage.Open(cfg.Store.Engine, cfg.Store.Location(), logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	deps := bridge.Deps{
		Store: store,
		Links: deeplink.NewLinks(cfg.DeepLink.Base),
		Capabilities: host.Capabilities{
			PlatformVersion: cfg.Host.PlatformVersion,
			PinSupported:    cfg.Host.PinSupported,
		},
		PositionalIDs: cfg.Host.PositionalItemIDs,
		Location:      loc,
		BootTimeout:   cfg.Boot.Timeout,
		BootTask:      cfg.Boot.Task,
		Logger:        logger,
		Metrics:       metrics.New(),
	}
	if len(cfg.Boot.Command) > 0 {
		rt, err := bootsync.NewCommandRuntime(cfg.Boot.Command, logger)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("boot command: %w", err)
		}
		deps.Runtime = rt
	}

	broker := sse.NewBroker(keepAliveInterval)
	deps.Events = broker

	components := bridge.Wire(deps)
	return &stack{
		store:      store,
		broker:     broker,
		metrics:    deps.Metrics,
		components: components,
		runtime:    bridge.NewRuntime(components),
		callbacks:  bridge.NewCallbacks(components),
	}, nil
}

// Run starts the daemon: the HTTP bridge and host API, the event stream
// and, when configured, the signal directory watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_engine", cfg.Store.Engine),
		slog.String("store_path", cfg.Store.Location()),
		slog.Int("platform_version", cfg.Host.PlatformVersion),
		slog.Bool("boot_sync", len(cfg.Boot.Command) > 0),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close(logger)

	apiRouter := api.NewRouter(st.runtime, st.callbacks, cfg.Auth.AuthEnabled(), cfg.Auth.Token, st.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, _, err := st.store.Get(req.Context(), host.RegistryNamespace, "ready"); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"store unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", st.metrics.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	st.watchSignals(gCtx, g, cfg.Host.SignalDir, logger)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE handlers block until their client leaves; close the broker
		// first so Shutdown does not wait on them.
		st.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the signal watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the bridge operations over MCP on stdio until the client
// disconnects. Host callbacks reach this process only through the signal
// spool directory (host.signal_dir).
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	st, err := buildStack(app.config, logger)
	if err != nil {
		return err
	}
	defer st.close(logger)

	if app.config.Host.SignalDir == "" {
		logger.Warn("host.signal_dir is not set; launch and lifecycle signals cannot reach the MCP server")
	}
	logger.Info("Starting MCP server on stdio", slog.String("version", app.version))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.New(st.runtime, app.version)
	return st.serveMCP(ctx, srv, app.config.Host.SignalDir, os.Stdin, os.Stdout, logger)
}

// serveMCP runs srv over in/out alongside the signal watcher. It returns when
// the client closes in, ctx is cancelled or the watcher fails.
func (s *stack) serveMCP(ctx context.Context, srv *mcpserver.Server, signalDir string, in io.Reader, out io.Writer, logger *slog.Logger) error {
	g, gCtx := errgroup.WithContext(ctx)

	s.watchSignals(gCtx, g, signalDir, logger)

	g.Go(func() error {
		if err := srv.Serve(gCtx, in, out); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("MCP server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// watchSignals consumes the signal spool in g when dir is set.
func (s *stack) watchSignals(ctx context.Context, g *errgroup.Group, dir string, logger *slog.Logger) {
	if dir == "" {
		return
	}
	g.Go(func() error {
		logger.Info("Watching signal directory", slog.String("dir", dir))
		if err := signals.Watch(ctx, dir, s.callbacks, logger); err != nil {
			return fmt.Errorf("signal watcher: %w", err)
		}
		return nil
	})
}
