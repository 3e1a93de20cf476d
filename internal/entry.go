// Package internal provides application initialization and runtime
// wiring.
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
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/note"
	"github.com/starford/ansuz/internal/recommend"
	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/worker"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// Structured JSON logger. In MCP mode stdout carries the protocol,
	// so logs go to stderr.
	logOut := os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Storage.
	provider, err := store.OpenSQLite(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer provider.Close()

	st := store.New(provider, logger,
		store.WithVersionPolicy(cfg.Engine.VersionMinGap(), cfg.Engine.MaxVersions))

	// Derived-data layers share one cache manager.
	c := cache.New()
	indexer := search.NewIndexer(c, cfg.Engine.IndexTTL(), cfg.Engine.SearchWeights)
	engine := recommend.New(c, cfg.Engine.CacheTTL())

	// Background worker for index builds and link resolution.
	wk := worker.New(cfg.Engine.SearchWeights, cfg.Engine.WorkerQueue)
	defer wk.Close()

	if app.mcp {
		svc := api.NewService(st, indexer, engine, wk, nil)
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.Engine.GraphThrottle())
	defer broker.Close()

	// API service and router.
	svc := api.NewService(st, indexer, engine, wk, broker)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Markdown ingestion: one-shot import plus an optional watcher.
	if cfg.Ingest.Dir != "" {
		ing := ingest.New(st, logger)
		if count, err := ing.Dir(cfg.Ingest.Dir); err != nil {
			logger.Warn("initial import failed", slog.String("error", err.Error()))
		} else if count > 0 {
			logger.Info("initial import done", slog.Int("count", count))
			indexer.Invalidate()
			engine.InvalidateTagFrequency()
		}

		if cfg.Ingest.Watch {
			g.Go(func() error {
				return ing.Watch(gCtx, cfg.Ingest.Dir, func(n note.Note) {
					indexer.Invalidate()
					engine.InvalidateTagFrequency()
					broker.NotifyNote(sse.NoteUpdated, n.ID)
				})
			})
		}
	}

	// HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
