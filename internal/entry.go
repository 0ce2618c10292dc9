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

	"github.com/starford/redisnotes/internal/api"
	"github.com/starford/redisnotes/internal/connector"
	"github.com/starford/redisnotes/internal/mcpserver"
	"github.com/starford/redisnotes/internal/notestore"
	"github.com/starford/redisnotes/internal/sse"
	"github.com/starford/redisnotes/internal/storage"
	pkgconfig "github.com/starford/redisnotes/pkg/config"
)

var errConfigRequired = errors.New("config is required")

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend", cfg.Store.Backend),
		slog.String("connectors", cfg.Connectors),
		slog.String("log_level", cfg.App.LogLevel.String()))

	kv, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	// SSE broker.
	broker := sse.NewBroker(15 * time.Second)
	defer broker.Close()

	conn := connector.New(notestore.New(kv, logger), cfg.Connectors,
		connector.WithLogger(logger),
		connector.WithEventCallback(broker.PublishNoteEvent),
	)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: NewHandler(cfg, kv, conn, broker),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	if app.configPath != "" {
		g.Go(func() error {
			return watchConnectors(gCtx, app.configPath, conn, logger)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Release the config watcher.
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the note tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	kv, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	conn := connector.New(notestore.New(kv, logger), cfg.Connectors, connector.WithLogger(logger))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	if app.configPath != "" {
		g.Go(func() error {
			return watchConnectors(gCtx, app.configPath, conn, logger)
		})
	}
	g.Go(func() error {
		// The watcher stops once the client hangs up.
		defer cancel()
		logger.Info("Starting MCP server on stdio", slog.String("backend", cfg.Store.Backend))
		return mcpserver.New(conn, app.version).ServeStdio()
	})

	return g.Wait()
}

// OpenStore opens the configured key-value backend.
func OpenStore(ctx context.Context, cfg *Config) (storage.Store, error) {
	switch cfg.Store.Backend {
	case BackendRedis:
		s, err := storage.OpenRedis(ctx, cfg.Redis.Options())
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		return s, nil
	case BackendSQLite:
		s, err := storage.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewHandler builds the root HTTP handler: health checks, the API and the
// event stream.
func NewHandler(cfg *Config, kv storage.Store, conn *connector.Connector, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := kv.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	var events http.Handler
	if broker != nil {
		events = broker
	}
	r.Mount("/api", api.NewRouter(conn, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events))

	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// watchConnectors keeps the connector's enabled list in sync with the file.
func watchConnectors(ctx context.Context, path string, conn *connector.Connector, logger *slog.Logger) error {
	err := pkgconfig.Watch(ctx, path, NewDefaultConfig, logger, func(cfg *Config) {
		conn.SetConnectors(cfg.Connectors)
		logger.Info("connectors reloaded",
			slog.String("connectors", cfg.Connectors),
			slog.Bool("redis_notes_enabled", conn.IsEnabled()))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch config: %w", err)
	}
	return nil
}
