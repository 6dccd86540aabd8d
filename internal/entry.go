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
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/generate"
	"github.com/starford/folio/internal/i18n"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
)

const (
	shutdownTimeout = 10 * time.Second
	// localesFolder under the content root may override built-in messages.
	localesFolder = "locales"
)

// runtime holds the collaborators shared by every command.
type runtime struct {
	cfg      *Config
	logger   *slog.Logger
	store    *storage.FS
	db       *index.DB // nil when the SQLite cache is disabled
	svc      *postservice.Service
	catalog  *i18n.Catalog
	renderer *render.Renderer
}

func (rt *runtime) close() {
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			rt.logger.Warn("close index failed", slog.String("error", err.Error()))
		}
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

// setup wires storage, the optional index, i18n and rendering. useIndex
// selects the SQLite cache as the content source when it is enabled.
func setup(app *application, useIndex bool) (*runtime, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("content_path", cfg.Content.Path),
		slog.String("posts_folder", cfg.Content.PostsFolder),
		slog.Bool("sqlite_enabled", cfg.SQLite.Enabled),
		slog.Int("posts_per_page", cfg.Site.PostsPerPage),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(filepath.Join(cfg.Content.Path, filepath.FromSlash(cfg.Content.PostsFolder)), 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	catalog, err := i18n.Default(cfg.Site.DefaultLocale, cfg.Site.Locales)
	if err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	overrides, err := store.Sub(localesFolder)
	if err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	if err := catalog.Merge(overrides); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	renderer, err := render.New(render.Site{
		Title:       cfg.Site.Title,
		Description: cfg.Site.Description,
	}, catalog)
	if err != nil {
		return nil, fmt.Errorf("init render: %w", err)
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		catalog:  catalog,
		renderer: renderer,
	}

	var source content.Source = content.NewVaultSource(store, cfg.Content.PostsFolder)
	if useIndex && cfg.SQLite.Enabled {
		db, err := index.Open(cfg.SQLite.Path, cfg.Content.PostsFolder)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		rt.db = db
		if _, err := index.Sync(db, store, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
		source = db
	}
	rt.svc = postservice.NewService(source, cfg.Site.PostsPerPage, cfg.Site.ShowDrafts)
	return rt, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(app, true)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg, logger := rt.cfg, rt.logger

	broker := sse.NewBroker(cfg.Events.Throttle, sse.WithKeepAlive(cfg.Events.KeepAlive))
	defer broker.Close()

	deps := api.Deps{
		Service:     rt.svc,
		Renderer:    rt.renderer,
		Catalog:     rt.catalog,
		Logger:      logger,
		Events:      broker,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		AuthToken:   cfg.Auth.Token,
	}
	if db := rt.db; db != nil {
		deps.Ready = db.Ping
		deps.Reindex = func(context.Context) (index.SyncStats, error) {
			stats, err := index.Sync(db, rt.store, logger)
			if err == nil {
				broker.Publish(sse.Event{Type: sse.TypeListingUpdated, Data: stats})
			}
			return stats, err
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	if rt.db != nil {
		g.Go(func() error {
			if err := index.Watch(gCtx, rt.db, rt.store, rt.store.Root(), logger, broker.PublishPostEvent); err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Unblocks the watcher and open event streams.
		broker.Close()
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been asked to stop.
var errShutdown = errors.New("shutdown")

// Build renders the static listing pages into the output directory.
func Build(ctx context.Context, opts ...Option) (generate.Stats, error) {
	app, err := newApplication(opts)
	if err != nil {
		return generate.Stats{}, err
	}
	// Builds read the content directly so a stale cache can never leak out.
	rt, err := setup(app, false)
	if err != nil {
		return generate.Stats{}, err
	}
	defer rt.close()

	outDir := rt.cfg.Site.OutputDir
	if app.outputDir != "" {
		outDir = app.outputDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return generate.Stats{}, fmt.Errorf("create output dir: %w", err)
	}
	out, err := storage.NewFS(outDir)
	if err != nil {
		return generate.Stats{}, fmt.Errorf("init output: %w", err)
	}

	rt.logger.Info("Building site", slog.String("output_dir", out.Root()))
	gen := generate.New(rt.svc, rt.renderer, rt.catalog.Locales(), out, rt.logger)
	return gen.Run(ctx)
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	// Stdout carries JSON-RPC, so logs go to stderr.
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt, err := setup(app, true)
	if err != nil {
		return err
	}
	defer rt.close()

	if rt.db != nil {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := index.Watch(watchCtx, rt.db, rt.store, rt.store.Root(), rt.logger, nil); err != nil {
				rt.logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	srv := mcpserver.New(rt.svc, rt.store, rt.cfg.Content.PostsFolder, app.version)
	rt.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
