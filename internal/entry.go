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

	"github.com/jacobmentalconstruct/neocortex/internal/api"
	"github.com/jacobmentalconstruct/neocortex/internal/embedder"
	"github.com/jacobmentalconstruct/neocortex/internal/ingest"
	"github.com/jacobmentalconstruct/neocortex/internal/mcpserver"
	"github.com/jacobmentalconstruct/neocortex/internal/retrieval"
	"github.com/jacobmentalconstruct/neocortex/internal/storage"
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

	// MCP clients own stdout, so logs go to stderr in that mode.
	logOut := os.Stdout
	if app.mcpMode {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("embedder", cfg.Embedder.Provider),
		slog.String("vector_backend", storage.BuildMode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	manager, err := storage.NewManager(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("init knowledge base manager: %w", err)
	}

	emb, err := embedder.New(cfg.Embedder)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}
	defer func() { _ = emb.Close() }()

	pipeline := ingest.NewPipeline(manager, emb, logger)
	engine := retrieval.NewEngine(manager, emb, logger)

	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(manager, engine, pipeline).ServeStdio()
	}

	apiRouter := api.NewRouter(manager, pipeline, engine, cfg.Embedder.OllamaURL)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

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
