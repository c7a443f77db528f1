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

	"github.com/starford/knowleague/internal/api"
	"github.com/starford/knowleague/internal/apperr"
	"github.com/starford/knowleague/internal/command"
	"github.com/starford/knowleague/internal/importer"
	"github.com/starford/knowleague/internal/mcpserver"
	"github.com/starford/knowleague/internal/mongostore"
	"github.com/starford/knowleague/internal/noteservice"
	"github.com/starford/knowleague/internal/notestore"
	"github.com/starford/knowleague/internal/sse"
	"github.com/starford/knowleague/internal/storage"
	"github.com/starford/knowleague/internal/wsrpc"
)

const (
	shutdownTimeout   = 10 * time.Second
	indexCheckTimeout = 3 * time.Second
)

func newApplication(opts []Option, defaultLog io.Writer) (*application, error) {
	app := &application{logOutput: defaultLog, version: "dev"}
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

// connect creates the store client once. A failure leaves the holder empty
// and every note operation reports the missing connection.
func (a *application) connect(ctx context.Context, logger *slog.Logger) (*mongostore.Holder, *notestore.Store) {
	cfg := a.config.Mongo
	client := mongostore.Initialize(ctx, mongostore.Options{
		URI:                    cfg.URI,
		AppName:                cfg.AppName,
		ServerSelectionTimeout: cfg.ServerSelectionTimeout,
	}, logger)
	holder := mongostore.NewHolder(client)
	return holder, notestore.New(holder, cfg.Database, cfg.Collection)
}

func disconnect(holder *mongostore.Holder, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := holder.Disconnect(ctx); err != nil {
		logger.Warn("mongo disconnect failed", slog.String("error", err.Error()))
	}
}

// checkTextIndex warns when search cannot work yet. It gives up after
// timeout; callers run it in the background so startup never waits on the store.
func checkTextIndex(ctx context.Context, store *notestore.Store, logger *slog.Logger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	present, err := store.TextIndexPresent(ctx)
	switch {
	case errors.Is(err, apperr.ErrNotConnected):
		logger.Warn("database not connected; every note operation will fail until restart")
	case err != nil:
		logger.Warn("text index check failed", slog.String("error", err.Error()))
	case !present:
		logger.Warn("no text index on the notes collection; search_notes will fail until `ensure-index` is run")
	}
}

func (a *application) openVault(create bool) (*storage.FS, error) {
	if create {
		if err := os.MkdirAll(a.config.Vault.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create vault dir: %w", err)
		}
	}
	return storage.NewFS(a.config.Vault.Path, a.config.Vault.Include)
}

// Run starts the HTTP server (REST, invoke, SSE, WebSocket) with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("mongo_database", cfg.Mongo.Database),
		slog.String("mongo_collection", cfg.Mongo.Collection),
		slog.Bool("vault_watch", cfg.Vault.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	holder, store := app.connect(ctx, logger)
	defer disconnect(holder, logger)
	go checkTextIndex(ctx, store, logger, indexCheckTimeout)

	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	svc := noteservice.NewService(store, holder, broker)
	cmd := command.New(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	api.MountHealth(r, holder.Connected)
	r.Mount("/api", api.NewRouter(api.RouterConfig{
		Commands:    cmd,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Events:      broker,
		Socket:      wsrpc.NewServer(cmd, logger),
	}))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Vault.Watch {
		vault, err := app.openVault(true)
		if err != nil {
			return fmt.Errorf("init vault: %w", err)
		}
		im := importer.New(svc, vault, logger)
		g.Go(func() error {
			if _, err := im.Sync(gCtx, false); err != nil {
				logger.Warn("initial vault sync failed", slog.String("error", err.Error()))
			}
			return im.Watch(gCtx, 0)
		})
	}

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

		// Event streams never go idle; end them before draining.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errServerStopped
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errServerStopped) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errServerStopped ends the errgroup once shutdown completes so the watcher
// stops with the server.
var errServerStopped = errors.New("server stopped")

// RunMCP serves the note commands as MCP tools on stdin/stdout. Logs go to
// stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	holder, store := app.connect(ctx, logger)
	defer disconnect(holder, logger)
	go checkTextIndex(ctx, store, logger, indexCheckTimeout)

	cmd := command.New(noteservice.NewService(store, holder, nil))
	srv := mcpserver.New(cmd, app.version)

	logger.Info("MCP server starting on stdio", slog.String("version", app.version))
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

// RunImport imports the vault into the notes collection, optionally pruning
// notes whose file is gone and then following changes until interrupted.
func RunImport(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holder, store := app.connect(ctx, logger)
	defer disconnect(holder, logger)

	vault, err := app.openVault(false)
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}
	im := importer.New(noteservice.NewService(store, holder, nil), vault, logger)

	if _, err := im.Sync(ctx, app.prune); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if !app.watch {
		return nil
	}
	return im.Watch(ctx, 0)
}

// RunExport writes every note to the vault as Markdown.
func RunExport(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	holder, store := app.connect(ctx, logger)
	defer disconnect(holder, logger)

	vault, err := app.openVault(true)
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}
	im := importer.New(noteservice.NewService(store, holder, nil), vault, logger)
	if _, err := im.Export(ctx); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// RunEnsureIndex creates the text index search depends on.
func RunEnsureIndex(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	holder, store := app.connect(ctx, logger)
	defer disconnect(holder, logger)

	name, err := store.EnsureTextIndex(ctx)
	if err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	logger.Info("text index ready",
		slog.String("index", name),
		slog.String("database", app.config.Mongo.Database),
		slog.String("collection", app.config.Mongo.Collection))
	return nil
}
