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
	"golang.org/x/sync/errgroup"

	"github.com/liminal-notes/vaultcore/internal/api"
	"github.com/liminal-notes/vaultcore/internal/home"
	"github.com/liminal-notes/vaultcore/internal/index"
	"github.com/liminal-notes/vaultcore/internal/indexer"
	"github.com/liminal-notes/vaultcore/internal/sse"
	"github.com/liminal-notes/vaultcore/internal/tags"
	"github.com/liminal-notes/vaultcore/internal/vault"
	"github.com/liminal-notes/vaultcore/internal/watcher"
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

	// Initialize structured JSON logger unless the host injected one.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("watch_mode", cfg.Watcher.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Vault adapter sandboxed to the configured root.
	adapter, err := vault.NewFS(cfg.Vault.Path, logger)
	if err != nil {
		return fmt.Errorf("init vault adapter: %w", err)
	}

	// SQLite index store. A migration failure here is fatal.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Tag catalogue: JSON document in the vault, mirrored into the store.
	catalogue := tags.NewCatalogue(adapter, db, logger)
	if err := catalogue.Load(ctx); err != nil {
		logger.Warn("tag catalogue load failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Indexing coordinator broadcasts handled events to the SSE channel.
	coord := indexer.New(adapter, db, func(_ context.Context, ev watcher.Event) {
		broker.PublishVaultEvent(string(ev.Kind), ev.Path)
	}, logger, &indexer.Options{
		SettleDelay:  cfg.Indexer.SettleDelay,
		YieldDelay:   cfg.Indexer.YieldDelay,
		EagerReindex: cfg.Indexer.EagerReindex,
	})

	// Change source per configuration; both feed the coordinator.
	var source watcher.ChangeSource
	switch cfg.Watcher.Mode {
	case WatchModeNotify:
		source = watcher.NewNotify(cfg.Vault.Path, coord.HandleEvent, logger)
	default:
		source = watcher.NewPoller(adapter, cfg.Watcher.PollInterval, coord.HandleEvent, logger)
	}
	if err := source.Init(ctx); err != nil {
		return fmt.Errorf("init change source: %w", err)
	}
	defer source.Dispose()

	homeCat := home.NewCatalogue(db, adapter)

	// Build API service and router.
	svc := api.NewService(adapter, db, coord, catalogue, homeCat, source)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

	// Build chi router.
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
		if coord.Indexing() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"indexing"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Background scan of the vault into the index.
	g.Go(func() error {
		if err := coord.Start(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("background scan failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Change source loop.
	g.Go(func() error {
		if err := source.Start(gCtx); err != nil {
			return fmt.Errorf("change source error: %w", err)
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
