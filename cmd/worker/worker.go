package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-tutor-backend/internal/ai"
	"ai-tutor-backend/internal/config"
	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/internal/queue"
	"ai-tutor-backend/internal/scheduler"
	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/internal/telemetry"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.StoreBackend != "mongo" {
		log.Fatal("The worker needs STORE_BACKEND=mongo; the in-memory store is per process")
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg.ServiceName+"-worker", cfg.OTelEndpoint, cfg.GinMode, cfg.OTelSampleRatio)
	if err != nil {
		log.Fatal("Failed to initialize tracer:", err)
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	emb, closeEmbedder, err := ai.NewEmbedderFromConfig(context.Background(), cfg, rdb, metrics)
	if err != nil {
		log.Fatal("Failed to initialize embeddings:", err)
	}
	defer closeEmbedder()

	repos := store.New(mongoClient.Database(cfg.DBName), emb,
		store.WithMetrics(metrics),
		store.WithIndexName(cfg.VectorIndexName),
		store.WithMaxSearchLimit(cfg.SearchMaxLimit),
		store.WithReembedWorkers(cfg.ReembedWorkers),
	)

	redisOpt := config.AsynqRedisOpt(cfg)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// re-embedding fans out to its own worker group, one run at a time is enough
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(repos.Resources())

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskReembedResources, processor.ProcessReembed)

	// The backfill only enqueues; the run itself goes through the queue above.
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	sched := scheduler.NewScheduler()
	if cfg.ReembedBackfillCron != "" {
		if err := scheduler.ScheduleReembedBackfill(sched, cfg.ReembedBackfillCron, asynqClient); err != nil {
			log.Fatal("Invalid REEMBED_BACKFILL_CRON:", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	logger.Info("Starting worker", "redis", redisOpt.Addr, "jobs", sched.Tags())

	if err := server.Start(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")
	server.Shutdown()
}
