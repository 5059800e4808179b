// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the 21st component gallery API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire storage, cache, metrics and the token verifier.
//  7. Wire domain services and HTTP handlers.
//  8. Start HTTP server and background jobs with graceful shutdown.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ehtisham-afzal/21st/internal/api"
	"github.com/ehtisham-afzal/21st/internal/core/component"
	"github.com/ehtisham-afzal/21st/internal/core/install"
	"github.com/ehtisham-afzal/21st/internal/core/publish"
	"github.com/ehtisham-afzal/21st/internal/core/tag"
	"github.com/ehtisham-afzal/21st/internal/platform/cache"
	"github.com/ehtisham-afzal/21st/internal/platform/config"
	"github.com/ehtisham-afzal/21st/internal/platform/constants"
	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
	"github.com/ehtisham-afzal/21st/internal/platform/migration"
	pgstore "github.com/ehtisham-afzal/21st/internal/platform/postgres"
	redisstore "github.com/ehtisham-afzal/21st/internal/platform/redis"
	"github.com/ehtisham-afzal/21st/internal/platform/sec"
	"github.com/ehtisham-afzal/21st/internal/platform/storage"
	"github.com/ehtisham-afzal/21st/internal/preview"
	"github.com/ehtisham-afzal/21st/internal/preview/csscompile"
	"github.com/ehtisham-afzal/21st/internal/preview/resolver"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[21st] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Background jobs and middleware sweepers stop with appCtx.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, pgstore.Options{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Platform ───────────────────────────────────────────────────────
	registry := metrics.New(prometheus.NewRegistry())
	cacheStore := cache.New(cache.NewRedisBackend(rdb), cfg.CacheTTL, registry, log)

	objects := storage.NewS3Store(storage.Options{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PublicBaseURL:   cfg.S3PublicBaseURL,
	}, log)

	verifier, err := sec.NewTokenVerifier(cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize token verifier")

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	componentRepository := component.NewPostgresRepository(pool)
	componentService := component.NewService(componentRepository, log)

	dependencyResolver := resolver.New(
		resolver.NewCachedSource(resolver.NewCatalogueSource(componentRepository, objects), cacheStore),
		registry, log,
	)
	compiler := csscompile.NewCached(csscompile.New(cfg.CSSCompileURL, cfg.CSSCompileTimeout, registry, log), cacheStore)

	previewService := preview.NewService(
		preview.NewCachedResolver(dependencyResolver, cacheStore),
		compiler, componentService, objects, log,
	)
	publishService := publish.NewService(componentRepository, objects, registry, log)
	installService := install.NewService(componentService, objects, cacheStore, cfg.AppURL)
	tagService := tag.NewService(tag.NewPostgresRepository(pool), cacheStore)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Component: component.NewHandler(componentService),
		Preview:   preview.NewHandler(previewService),
		Live:      preview.NewLiveHandler(previewService, componentService, registry, cfg.OriginAllowed, log),
		Publish:   publish.NewHandler(publishService),
		Install:   install.NewHandler(installService),
		Tag:       tag.NewHandler(tagService),
	}

	server := api.NewServer(appCtx, cfg, log, registry, verifier, handlers)

	go componentService.RunAnalyticsRefresh(appCtx, cfg.AnalyticsRefreshInterval)

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	appCancel()

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON process logger.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", "21st"))
}

// must logs a structured fatal error and terminates the process if err is
// non-nil. Startup wiring only.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
