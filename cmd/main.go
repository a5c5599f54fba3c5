package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qa-agent-backend/internal/ai"
	"qa-agent-backend/internal/config"
	"qa-agent-backend/internal/logger"
	"qa-agent-backend/internal/telemetry"
	"qa-agent-backend/middleware"
	"qa-agent-backend/routes"
	"qa-agent-backend/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

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
	db := mongoClient.Database(cfg.DBName)

	// Optional Redis-backed embedding cache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = config.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, embedding cache disabled", "error", err)
			redisClient = nil
		}
	}

	// Telemetry
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to init metrics:", err)
	}
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("qa-agent-backend", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Wire the core services. The embedder loads its model client lazily
	// on first use.
	embedder := ai.NewEmbedder(cfg.GeminiAPIKey, cfg.EmbeddingsModel, cfg.GeminiTier)
	defer embedder.Close()

	store := services.NewVectorStoreService(db, cfg.UpsertBatchSize)
	cache := services.NewEmbeddingCacheService(redisClient, time.Duration(cfg.EmbedCacheTTL)*time.Second)
	retrieval := services.NewRetrievalService(embedder, store, cache)
	knowledge := services.NewKnowledgeService(embedder, store, cfg.UpsertBatchSize)
	testcases := services.NewTestCaseService(retrieval, db)
	scripts := services.NewScriptService(testcases, cfg.ScriptTargetURL)
	export := services.NewExportService(testcases)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Liveness endpoints
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "QA-Agent Backend is running"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "qa-agent-backend"})
	})

	// Setup routes
	routes.SetupUploadRoutes(router, cfg)
	routes.SetupKnowledgeRoutes(router, cfg, knowledge, metrics)
	routes.SetupTestCaseRoutes(router, cfg, testcases, scripts, export, metrics)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
