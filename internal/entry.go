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
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/bridge"
	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/export"
	"github.com/starford/quire/internal/host"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/notes"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/store"
	"github.com/starford/quire/internal/theme"
	"github.com/starford/quire/internal/vault"
)

// stack is the set of long-lived components shared by every run mode.
type stack struct {
	db         *store.DB
	vault      *vault.Vault
	notes      *notes.Service
	editor     *editor.Controller
	bridgeSSE  *sse.Broker
	hostSSE    *sse.Broker
	logger     *slog.Logger
	closeOrder []func()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	slog.SetDefault(app.logger)
	return app, nil
}

func build(cfg *Config, logger *slog.Logger) (*stack, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	s := &stack{db: db, logger: logger}
	s.closeOrder = append(s.closeOrder, func() { _ = db.Close() })

	dir, err := export.NewDir(cfg.Export.Path)
	if err != nil {
		s.close(context.Background())
		return nil, fmt.Errorf("init export dir: %w", err)
	}

	s.vault = vault.New(db,
		vault.WithKDF(cfg.Vault.KDFTime, cfg.Vault.KDFMemoryKiB),
		vault.WithLogger(logger))

	s.bridgeSSE = sse.NewBroker(sse.WithSticky(bridge.StickyTypes()...), sse.WithBuffer(256), sse.WithEvictSlow())
	s.hostSSE = sse.NewBroker(sse.WithSticky(host.StickyTypes()...))
	s.closeOrder = append(s.closeOrder, s.bridgeSSE.Close, s.hostSSE.Close)

	publisher := host.NewPublisher(s.hostSSE, logger)
	s.editor = editor.New(cfg.Editor.Controller(), editor.Deps{
		Store:     db,
		Vault:     s.vault,
		Transport: bridge.NewSSETransport(s.bridgeSSE),
		Notifier:  publisher,
		Navigator: publisher,
		Refresher: publisher,
		Editing:   editor.NewEditing(),
		Clock:     clockwork.NewRealClock(),
		Logger:    logger,
	})
	s.closeOrder = append(s.closeOrder, s.editor.Close)

	s.notes = notes.NewService(db, s.vault, dir,
		notes.WithEditor(s.editor),
		notes.WithRefresher(publisher),
		notes.WithLogger(logger))
	return s, nil
}

// close saves pending edits, then stops components in reverse start order.
func (s *stack) close(ctx context.Context) {
	if s.editor != nil {
		if err := s.editor.Flush(ctx); err != nil {
			s.logger.Error("final save failed", slog.String("error", err.Error()))
		}
	}
	for i := len(s.closeOrder) - 1; i >= 0; i-- {
		s.closeOrder[i]()
	}
}

// Run starts the HTTP server and the theme watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("export_path", cfg.Export.Path),
		slog.String("theme_path", cfg.Theme.Path),
		slog.Duration("autosave_delay", cfg.Editor.AutosaveDelay),
		slog.String("log_level", cfg.App.LogLevel.String()))

	s, err := build(cfg, logger)
	if err != nil {
		return err
	}

	apiRouter := api.NewRouter(s.editor, s.notes, api.Streams{
		Bridge: s.bridgeSSE,
		Events: s.hostSSE,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := s.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Theme watcher pushes palette changes to the view.
	g.Go(func() error {
		if err := theme.Watch(gCtx, cfg.Theme.Path, logger, s.editor.SetTheme); err != nil {
			logger.Warn("theme watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

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
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	err = g.Wait()

	closeCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	s.close(closeCtx)

	if err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	s, err := build(app.config, app.logger)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	app.logger.Info("MCP server starting on stdio")
	return mcpserver.New(s.editor, s.notes).ServeStdio()
}

// ImportDir imports every Markdown file of the export directory and
// reports how many notes were created.
func ImportDir(ctx context.Context, opts ...Option) (int, error) {
	app, err := newApplication(opts)
	if err != nil {
		return 0, err
	}
	s, err := build(app.config, app.logger)
	if err != nil {
		return 0, err
	}
	defer s.close(ctx)
	return s.notes.ImportDir(ctx)
}
