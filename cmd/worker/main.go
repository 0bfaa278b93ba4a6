package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"geomodel/internal/artifact"
	"geomodel/internal/cache"
	"geomodel/internal/config"
	"geomodel/internal/database"
	"geomodel/internal/log"
	"geomodel/internal/queue"
	"geomodel/internal/repository"
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
	defer dbPool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	mirror, err := artifact.NewMirror(cfg.Mirror)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init export mirror")
	}

	store, err := artifact.NewStore(cfg.Media.Root, mirror, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init artifact store")
	}

	modelRepo := repository.NewModelRepository(dbPool)
	processor := tasks.NewProcessor(modelRepo, store, logger)
	consumer := queue.NewConsumer(
		redisClient,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		time.Minute,
		logger,
		processor,
	)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("consumer group setup failed")
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := consumer.Start(runCtx); err != nil && err != context.Canceled {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-runCtx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
