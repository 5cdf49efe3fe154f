// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/soltvedt/raido/internal/capsa"
	"github.com/soltvedt/raido/internal/engine"
	"github.com/soltvedt/raido/internal/index"
	"github.com/soltvedt/raido/internal/mcpserver"
	"github.com/soltvedt/raido/internal/storage"
)

// Run starts the MCP server with the given options. It serves requests on
// stdin/stdout until the stream closes or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logger on stderr; stdout carries the MCP stream.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("home_path", cfg.Home.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.Bool("index_disabled", cfg.Index.Disabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the raido home exists.
	if err := os.MkdirAll(cfg.Home.Path, 0o755); err != nil {
		return fmt.Errorf("create home dir: %w", err)
	}

	// Resolve the capsa this server operates on.
	cctx := capsa.NewContext(cfg.Home.Path, false)
	var ref *capsa.Ref
	var err error
	if cfg.Capsa.Name == "" {
		ref, err = cctx.EnsureDefault()
	} else {
		ref, err = cctx.Resolve(cfg.Capsa.Name)
	}
	if err != nil {
		return fmt.Errorf("resolve capsa: %w", err)
	}

	logger.Info("Capsa resolved",
		slog.String("capsa", ref.Name),
		slog.String("path", ref.Path),
		slog.String("agent", cctx.Agent))

	// Initialize storage.
	store, err := storage.NewFS(ref.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite index.
	var db *index.DB
	if !cfg.Index.Disabled {
		db, err = index.Open(cfg.Index.Path)
		if err != nil {
			return fmt.Errorf("init index: %w", err)
		}
		defer db.Close()

		// Run initial sync.
		if err := index.Sync(db, store, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	eng := engine.New(store, engine.NewClock(), cctx.Agent)
	srv := mcpserver.New(eng, db)

	logger.Info("MCP server starting on stdio")

	// A shutdown signal cancels the group context, stopping both the
	// watcher and the stdio listener.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher keeping the index current while serving.
	if db != nil {
		g.Go(func() error {
			index.Watch(gCtx, db, store, ref.Path, logger, nil)
			return nil
		})
	}

	// Serve MCP on stdin/stdout.
	g.Go(func() error {
		defer stop()
		if err := srv.Listen(gCtx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server error: %w", err)
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
