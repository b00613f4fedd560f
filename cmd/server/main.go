package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nmoreno/catalogo/internal/catalog"
	"github.com/nmoreno/catalogo/internal/config"
	"github.com/nmoreno/catalogo/internal/etl"
	"github.com/nmoreno/catalogo/internal/files"
	"github.com/nmoreno/catalogo/internal/logging"
	"github.com/nmoreno/catalogo/internal/registry"
	"github.com/nmoreno/catalogo/internal/sheet"
	"github.com/nmoreno/catalogo/internal/status"
	"github.com/nmoreno/catalogo/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"providers_dir", cfg.Pipeline.ProvidersDir,
		"registry_path", cfg.Pipeline.RegistryPath,
		"timezone", cfg.Pipeline.Timezone,
	)

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	// Stores
	catalogStore, err := catalog.NewStore(ctx, pool)
	if err != nil {
		slog.Error("failed to initialize catalog store", "error", err)
		os.Exit(1)
	}
	statusStore, err := status.NewStore(ctx, pool)
	if err != nil {
		slog.Error("failed to initialize status store", "error", err)
		os.Exit(1)
	}
	registryStore := registry.NewFileStore(cfg.Pipeline.RegistryPath)

	loc, err := time.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		slog.Error("invalid timezone", "zone", cfg.Pipeline.Timezone, "error", err)
		os.Exit(1)
	}
	fileStore := files.NewDir(cfg.Pipeline.ProvidersDir, loc)

	// Pipeline
	pipeline := etl.NewService(
		etl.NewExtractor(fileStore, registryStore, sheet.NewReader()),
		etl.NewTransformer(registryStore),
		etl.NewLoader(catalogStore),
		statusStore,
	)

	server := web.NewServer(pipeline, registryStore, catalogStore, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("server listening", "addr", cfg.Server.Addr())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
