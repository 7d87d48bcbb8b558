package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"hireLoop/internal/ai"
	"hireLoop/internal/api"
	"hireLoop/internal/auth"
	"hireLoop/internal/config"
	"hireLoop/internal/database"
	"hireLoop/internal/interview"
	"hireLoop/internal/position"
	"hireLoop/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	authService, err := auth.NewAuthServiceFromFiles(cfg.Auth)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	completer, err := ai.New(ctx, cfg.AI)
	switch {
	case errors.Is(err, ai.ErrNoProvider):
		logger.Warn("no ai provider configured, scoring and summaries are degraded")
		completer = nil
	case err != nil:
		log.Fatalf("init ai provider: %v", err)
	default:
		logger.Info("ai provider ready", slog.String("provider", completer.Name()))
	}

	policy, err := interview.ParsePolicy(cfg.Interview.ScoringPolicy)
	if err != nil {
		log.Fatalf("parse scoring policy: %v", err)
	}
	interviews := interview.NewManager(db, completer, logger, interview.Options{Policy: policy})
	registry, err := position.NewRegistry(db, completer, interviews, logger)
	if err != nil {
		log.Fatalf("init position registry: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	var scanner api.VirusScanner
	if cfg.Clamd.Addr != "" {
		scanner = api.ClamdScanner{Addr: cfg.Clamd.Addr}
	} else {
		logger.Warn("clamd address not configured, resume uploads are not scanned")
	}

	sessions := api.NewRedisSessionStore(redisClient, api.LoginLimits{
		PerHour:       cfg.API.LoginRateLimitPerHour,
		LockThreshold: cfg.API.LoginLockThreshold,
		LockTTL:       time.Duration(cfg.API.LoginLockTTLMinutes) * time.Minute,
	})

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, api.Deps{
		Config:      cfg,
		DB:          db,
		Redis:       redisClient,
		Logger:      logger,
		Auth:        authService,
		Sessions:    sessions,
		Interviews:  interviews,
		Registry:    registry,
		Enqueuer:    asynqClient,
		Storage:     storageClient,
		ReportLinks: storageClient,
		Scanner:     scanner,
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("addr", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
