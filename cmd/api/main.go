package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"geomodel/internal/artifact"
	"geomodel/internal/cache"
	"geomodel/internal/config"
	"geomodel/internal/database"
	"geomodel/internal/handlers"
	"geomodel/internal/jobs"
	"geomodel/internal/log"
	"geomodel/internal/server"
	"geomodel/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	mirror, err := artifact.NewMirror(cfg.Mirror)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init export mirror")
	}
	if mirror != nil {
		if err := mirror.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure mirror bucket failed")
		}
	}

	store, err := artifact.NewStore(cfg.Media.Root, mirror, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init artifact store")
	}

	pool := tasks.NewPool(cfg.Ingest.Workers, cfg.Ingest.QueueDepth, logger)

	handlerSet := handlers.NewHandlerSet(logger, dbPool, redisClient, store, pool, cfg)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(redisClient, cfg.Redis.Stream, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, pool, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, pool *tasks.Pool, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	// drain queued background upserts before releasing the db pool
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("background pool drain timed out")
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
