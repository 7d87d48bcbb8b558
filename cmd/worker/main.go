package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"hireLoop/internal/ai"
	"hireLoop/internal/config"
	"hireLoop/internal/database"
	"hireLoop/internal/interview"
	"hireLoop/internal/metrics"
	"hireLoop/internal/position"
	"hireLoop/internal/report"
	"hireLoop/internal/storage"
	"hireLoop/internal/tasks"
	"hireLoop/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for worker")

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	// 关闭过期职位只用到数据库，补全服务缺失时照常运行。
	completer, err := ai.New(ctx, cfg.AI)
	if err != nil && !errors.Is(err, ai.ErrNoProvider) {
		log.Fatalf("init ai provider: %v", err)
	}
	interviews := interview.NewManager(db, completer, logger, interview.Options{})
	registry, err := position.NewRegistry(db, completer, interviews, logger)
	if err != nil {
		log.Fatalf("init position registry: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Logger:      newAsynqLogger(logger),
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeReportGenerate, worker.NewReportTaskHandler(db, storageClient, redisClient, report.GeneratePDF, logger))
	mux.Handle(tasks.TypePositionsCloseExpire, worker.NewCloseExpiredHandler(registry, logger))

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: newAsynqLogger(logger)})
	closeTask := tasks.NewCloseExpiredTask()
	if _, err := scheduler.Register(cfg.Worker.CloseExpiredCron, closeTask); err != nil {
		log.Fatalf("register close-expired schedule: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Shutdown()

	if err := server.Start(mux); err != nil {
		log.Fatalf("start worker server: %v", err)
	}
	logger.Info("worker service started",
		slog.String("redis_addr", redisAddr),
		slog.Int("concurrency", concurrency),
		slog.String("close_expired_cron", cfg.Worker.CloseExpiredCron),
	)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info("worker shutting down")
	server.Shutdown()
}
