package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/axai-ai/docstore/internal/data/cache"
	"github.com/axai-ai/docstore/internal/data/db"
	"github.com/axai-ai/docstore/internal/data/repos"
	"github.com/axai-ai/docstore/internal/observability"
	"github.com/axai-ai/docstore/internal/platform/envutil"
	"github.com/axai-ai/docstore/internal/platform/logger"
	"github.com/axai-ai/docstore/internal/server"
)

func main() {
	logMode := envutil.Str("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	dbService, err := db.Open(db.ConnectionConfigFromEnv(), db.PoolConfigFromEnv(), log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}

	// Schema: versioned migrations by default, direct build as an escape
	// hatch for throwaway environments.
	switch envutil.Str("SCHEMA_MODE", "migrate") {
	case "build":
		if err := db.NewSchemaBuilder(dbService.DB(), log).BuildCompleteSchema(ctx); err != nil {
			log.Error("Schema build failed", "error", err)
			os.Exit(1)
		}
	case "none":
	default:
		if err := db.NewMigrator(dbService.DB(), log).Up(ctx); err != nil {
			log.Error("Migration failed", "error", err)
			os.Exit(1)
		}
	}

	// Cache
	var store cache.Store
	switch envutil.Str("CACHE_BACKEND", "memory") {
	case "redis":
		redisStore, err := cache.NewRedis(
			envutil.Str("REDIS_ADDR", "localhost:6379"),
			envutil.Str("REDIS_PASSWORD", ""),
			envutil.Int("REDIS_DB", 0),
			log,
		)
		if err != nil {
			log.Error("Redis cache init failed", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
	case "none":
	default:
		store = cache.NewMemory(envutil.Int("CACHE_MAX_ENTRIES", 1000))
	}

	// Metrics
	metrics := observability.Init(log)
	metrics.StartPostgresCollector(ctx, log, dbService.DB())
	metrics.StartCacheCollector(ctx, store)

	// Repositories. Warm the document repository so the decorator chain is
	// assembled before traffic arrives.
	factory := repos.NewFactory(dbService.DB(), store, metrics, log)
	factory.Document()

	router := server.NewRouter(server.RouterConfig{
		DB:      dbService,
		Cache:   store,
		Metrics: metrics,
	})

	addr := envutil.Str("HTTP_ADDR", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("ops server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("ops server shutdown", "error", err)
		}
		return dbService.Close(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
