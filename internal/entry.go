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

	"github.com/starford/starlinks/internal/api"
	"github.com/starford/starlinks/internal/engine"
	"github.com/starford/starlinks/internal/linkindex"
	"github.com/starford/starlinks/internal/mcpserver"
	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/sse"
	"github.com/starford/starlinks/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// content resolves the project context and opens the content root.
func (a *application) content() (models.Project, *storage.FS, error) {
	project, err := a.config.Project.Model()
	if err != nil {
		return models.Project{}, nil, err
	}
	store, err := storage.NewFS(project.ContentDir)
	if err != nil {
		return models.Project{}, nil, fmt.Errorf("init storage: %w", err)
	}
	return project, store, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger()
	slog.SetDefault(logger)

	project, store, err := app.content()
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("transport", cfg.App.Transport),
		slog.String("content_dir", project.ContentDir),
		slog.String("base", project.Base),
		slog.String("trailing_slash", project.TrailingSlash),
		slog.Bool("multilingual", project.Multilingual),
		slog.String("log_level", cfg.App.LogLevel.String()))

	engineOpts := []engine.Option{engine.WithLogger(logger)}

	// SSE broker, fed by engine events.
	var broker *sse.Broker
	if cfg.App.Transport == TransportHTTP {
		broker = sse.NewBroker(2 * time.Second)
		defer broker.Close()
		engineOpts = append(engineOpts, engine.WithListener(broker.PublishIndexEvent))
	}

	eng := engine.New(project, store, cfg.Links.Settings(), engineOpts...)
	defer eng.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	eng.Start(gCtx)

	// Keep the index live.
	if cfg.Watch.Enabled {
		g.Go(func() error {
			if err := linkindex.Watch(gCtx, store.Root(), eng, logger); err != nil {
				logger.Warn("content watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	switch cfg.App.Transport {
	case TransportMCP:
		runMCP(g, cancel, eng, store, logger)
	default:
		runHTTP(g, gCtx, cancel, cfg, eng, store, broker, logger)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// runMCP serves the MCP tools on stdio. The application stops when the
// client closes stdin.
func runMCP(g *errgroup.Group, stop context.CancelFunc, eng *engine.Engine, store storage.Provider, logger *slog.Logger) {
	srv := mcpserver.New(eng, store, logger)

	g.Go(func() error {
		defer stop()
		logger.Info("Starting MCP server on stdio")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})
}

func runHTTP(g *errgroup.Group, ctx context.Context, stop context.CancelFunc, cfg *Config, eng *engine.Engine,
	store storage.Provider, broker *sse.Broker, logger *slog.Logger) {
	svc := api.NewService(eng, store.Root())
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Mount("/health", api.HealthRoutes(svc))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

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
		case <-ctx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		stop()

		logger.Info("Shutting down server...")

		// Ends open SSE streams so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})
}

// Slugs builds the link index once and returns its records.
func Slugs(ctx context.Context, opts ...Option) ([]models.Record, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	project, store, err := app.content()
	if err != nil {
		return nil, err
	}
	ix := linkindex.New(project, store, app.logger())
	if err := ix.Build(ctx); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return ix.Records(), nil
}
