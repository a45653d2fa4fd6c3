package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	memorystore "github.com/gofiber/storage/memory/v2"
	redisstore "github.com/gofiber/storage/redis/v3"

	"gallerylinks/internal/config"
	"gallerylinks/internal/db"
	"gallerylinks/internal/directory"
	"gallerylinks/internal/jobs"
	"gallerylinks/internal/metrics"
	"gallerylinks/internal/selection"
	"gallerylinks/internal/server"
	"gallerylinks/internal/storage"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	setupLogging(cfg)

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		fatal("failed to run migrations", err)
	}
	slog.Info("migrations completed successfully")

	links := directory.New(database)

	// Seed galleries from config.yaml
	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		fatal("failed to load YAML config", err)
	}
	if yamlCfg != nil && len(yamlCfg.Galleries) > 0 {
		created, err := links.Seed(ctx, yamlCfg.Galleries)
		if err != nil {
			fatal("failed to seed galleries", err)
		}
		slog.Info("seeded galleries", "configured", len(yamlCfg.Galleries), "created", created)
	}

	files, err := storage.New(ctx, cfg)
	if err != nil {
		fatal("failed to initialize storage", err)
	}
	slog.Info("storage backend ready", "backend", cfg.StorageBackend)

	// Sessions, rate limits and picks share one storage
	var (
		store fiber.Storage
		kv    selection.KV
	)
	if cfg.RedisURL != "" {
		redis := redisstore.New(redisstore.Config{URL: cfg.RedisURL})
		defer redis.Close()
		store, kv = redis, redis
		slog.Info("using redis for sessions and picks")
	} else {
		mem := memorystore.New()
		defer mem.Close()
		store, kv = mem, mem
		slog.Warn("REDIS_URL not set: sessions and picks are kept in memory")
	}

	metrics.Init(database)

	var checker *jobs.FolderChecker
	if cfg.FolderCheckInterval > 0 {
		checker = jobs.NewFolderChecker(links, files, cfg.FolderCheckInterval)
		go checker.Start(ctx)
	}

	srv := server.New(cfg, nil, store)
	if err := srv.RegisterRoutes(ctx, server.Deps{
		Probe:   database,
		Links:   links,
		Files:   files,
		Picks:   selection.NewPickStore(kv, server.SessionLifetime),
		Checker: checker,
	}); err != nil {
		fatal("failed to register routes", err)
	}

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	slog.Info("server started", "addr", cfg.ServerAddr, "base_url", cfg.BaseURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	cancel()
	if err := srv.Shutdown(); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	slog.Info("server exited")
}

func setupLogging(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
