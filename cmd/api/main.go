package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campaignstudio/internal/cache"
	"campaignstudio/internal/config"
	"campaignstudio/internal/database"
	"campaignstudio/internal/events"
	"campaignstudio/internal/generator"
	"campaignstudio/internal/handlers"
	"campaignstudio/internal/imagedata"
	"campaignstudio/internal/log"
	"campaignstudio/internal/queue"
	"campaignstudio/internal/repository"
	"campaignstudio/internal/server"
	"campaignstudio/internal/service"
	"campaignstudio/internal/storage"
	"campaignstudio/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres, "campaignstudio-api", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, dbPool, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, "campaignstudio-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	backend, err := generator.New(ctx, cfg.Generator, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init generation backend")
	}

	publisher := events.NewPublisher(cfg.Kafka, logger)
	hub := ws.NewHub(cfg.AllowCORSOrigins, logger)
	go hub.Run()
	go func() {
		if err := events.Subscribe(ctx, cfg.Kafka, logger, hub.Publish); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("event subscription stopped")
		}
	}()

	users := repository.NewUserRepository(dbPool)
	sessions := repository.NewSessionRepository(dbPool)
	campaigns := repository.NewCampaignRepository(dbPool)
	themes := repository.NewThemeRepository(dbPool)
	posts := repository.NewPostRepository(dbPool)
	assets := repository.NewAssetRepository(dbPool)

	quota := cache.NewHourlyQuota(redisClient, cfg.Generator.HourlyQuota)
	postService := service.NewPostService(service.PostDeps{
		Campaigns:  campaigns,
		Themes:     themes,
		Posts:      posts,
		Assets:     assets,
		Store:      objectStore,
		Backend:    backend,
		Quota:      quota,
		Tasks:      queue.NewProducer(redisClient, cfg.Queue.Stream),
		Events:     publisher,
		Normalizer: imagedata.New(logger, cfg.Environment),
	}, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Deps{
		Auth:      service.NewAuthService(users, sessions, cfg.Security, logger),
		Campaigns: service.NewCampaignService(campaigns, logger),
		Themes:    service.NewThemeService(campaigns, themes, backend, quota, publisher, logger),
		Posts:     postService,
		Uploads:   service.NewUploadService(postService, assets, objectStore, logger),
		Users:     users,
		Sessions:  sessions,
		Assets:    assets,
		Nonces:    cache.NewNonceStore(redisClient),
		Hub:       hub,
		Checks: map[string]handlers.HealthCheck{
			"database": dbPool.Ping,
			"cache":    cache.Ping(redisClient),
			"storage":  objectStore.Ping,
		},
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	shutdown(logger, httpServer, hub, publisher, dbPool, redisClient)
}

func shutdown(logger zerolog.Logger, srv *server.HTTPServer, hub *ws.Hub, publisher *events.Publisher, db *pgxpool.Pool, redisClient *redis.Client) {
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	hub.Shutdown()

	if err := publisher.Close(); err != nil {
		logger.Error().Err(err).Msg("event publisher close error")
	}
	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
