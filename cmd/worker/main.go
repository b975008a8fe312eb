package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"campaignstudio/internal/cache"
	"campaignstudio/internal/config"
	"campaignstudio/internal/database"
	"campaignstudio/internal/events"
	"campaignstudio/internal/imagedata"
	"campaignstudio/internal/jobs"
	"campaignstudio/internal/log"
	"campaignstudio/internal/queue"
	"campaignstudio/internal/repository"
	"campaignstudio/internal/service"
	"campaignstudio/internal/storage"
	"campaignstudio/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres, "campaignstudio-worker", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis, "campaignstudio-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	publisher := events.NewPublisher(cfg.Kafka, logger)
	defer publisher.Close()

	posts := repository.NewPostRepository(dbPool)
	assets := repository.NewAssetRepository(dbPool)
	producer := queue.NewProducer(client, cfg.Queue.Stream)
	normalizer := imagedata.New(logger, cfg.Environment)

	// Publishing needs no generation backend or quota.
	postService := service.NewPostService(service.PostDeps{
		Campaigns:  repository.NewCampaignRepository(dbPool),
		Themes:     repository.NewThemeRepository(dbPool),
		Posts:      posts,
		Assets:     assets,
		Store:      objectStore,
		Tasks:      producer,
		Events:     publisher,
		Normalizer: normalizer,
	}, logger)

	processor := tasks.NewProcessor(tasks.Deps{
		Publisher:  postService,
		Posts:      posts,
		Assets:     assets,
		Objects:    objectStore,
		Sessions:   repository.NewSessionRepository(dbPool),
		Normalizer: normalizer,
	}, cfg.Thumbnails, logger)

	consumer := queue.NewConsumer(client, cfg.Queue, logger, processor)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("create consumer group failed")
	}

	scheduler := jobs.NewScheduler(producer, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("scheduler start failed")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	scheduler.Stop()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
