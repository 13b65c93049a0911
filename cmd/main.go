package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-tutor-backend/internal/agent"
	"ai-tutor-backend/internal/ai"
	"ai-tutor-backend/internal/chat"
	"ai-tutor-backend/internal/config"
	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/internal/queue"
	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/internal/store/memstore"
	"ai-tutor-backend/internal/telemetry"
	"ai-tutor-backend/middleware"
	"ai-tutor-backend/routes"
	"ai-tutor-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const maxRequestBody = 1 << 20

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg.ServiceName, cfg.OTelEndpoint, cfg.GinMode, cfg.OTelSampleRatio)
	if err != nil {
		log.Fatal("Failed to initialize tracer:", err)
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	// Redis backs rate limiting, chat sessions, the embedding cache and the
	// task queue. Without it those degrade rather than stop the API.
	var rdb *redis.Client
	if client, err := config.NewRedisClient(cfg); err != nil {
		logger.Warn("Redis unavailable, running without cache, queue and shared sessions", "error", err)
	} else {
		rdb = client
		defer rdb.Close()
	}

	emb, closeEmbedder, err := ai.NewEmbedderFromConfig(context.Background(), cfg, rdb, metrics)
	if err != nil {
		log.Fatal("Failed to initialize embeddings:", err)
	}
	defer closeEmbedder()

	var (
		repos store.Repositories
		index routes.IndexStatusReporter
	)
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		repos = memstore.New(emb, cfg.SearchMaxLimit)
	default:
		mongoClient, err := config.ConnectMongoDB(cfg)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB:", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			mongoClient.Disconnect(ctx)
		}()
		logger.Info("Connected to MongoDB", "uri", cfg.RedactedMongoURI(), "db", cfg.DBName)

		db := mongoClient.Database(cfg.DBName)
		repos = store.New(db, emb,
			store.WithMetrics(metrics),
			store.WithIndexName(cfg.VectorIndexName),
			store.WithMaxSearchLimit(cfg.SearchMaxLimit),
			store.WithReembedWorkers(cfg.ReembedWorkers),
		)
		index = store.NewIndexManager(db, cfg.VectorDimensions, store.WithSearchIndexName(cfg.VectorIndexName))
	}

	var sessions chat.SessionStore = chat.NewMemorySessionStore()
	var enqueuer queue.Enqueuer
	if rdb != nil {
		sessions = chat.NewRedisSessionStore(rdb, cfg.ChatSessionTTL)
		asynqClient := asynq.NewClient(config.AsynqRedisOpt(cfg))
		defer asynqClient.Close()
		enqueuer = asynqClient
	}

	// a turn may wait the full reply poll plus the event round trips
	waitForData := time.Duration(cfg.AgentWaitForData) * time.Second
	chatTurnTimeout := max(cfg.AgentTimeout, waitForData+15*time.Second)

	bridge := chat.NewBridge(
		agent.NewClient(cfg.AgentBaseURL, cfg.AgentTimeout),
		sessions,
		chat.WithWaitForData(waitForData),
		chat.WithHistoryLimit(cfg.ChatHistoryLength),
		chat.WithMetrics(metrics),
	)
	exporter := services.NewExportService(repos.Resources())

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware(cfg.ServiceName))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.RequestSizeLimit(maxRequestBody))

	adminGuard := middleware.RequireAdmin(cfg.AdminJWTSecret)
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin endpoints are disabled")
	}
	limiter := middleware.RateLimitMiddleware(rdb, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second)

	// Setup routes
	routes.SetupHealthRoutes(router, repos, index)
	routes.SetupRoadmapRoutes(router, repos, adminGuard)
	routes.SetupQuizRoutes(router, repos, adminGuard)
	routes.SetupResourceRoutes(router, repos, adminGuard, limiter)
	routes.SetupChatRoutes(router, bridge, limiter, chatTurnTimeout)
	routes.SetupAdminRoutes(router, enqueuer, exporter, index, adminGuard)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
