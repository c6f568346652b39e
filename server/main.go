package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raceday/api/routes"
	"raceday/internal/notifications"
	"raceday/internal/shared/config"
	"raceday/internal/shared/database"
	"raceday/internal/waitlist"
	"raceday/pkg/logger"
	"raceday/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	// Initialize DB
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.GetRedisClient() != nil {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:              cfg.RateLimit.Enabled,
			WindowDuration:       cfg.RateLimit.WindowDuration,
			DefaultRequests:      cfg.RateLimit.DefaultRequests,
			PublicRequests:       cfg.RateLimit.PublicRequests,
			RegistrationRequests: cfg.RateLimit.RegistrationReqs,
			TransferRequests:     cfg.RateLimit.TransferReqs,
			AdminRequests:        cfg.RateLimit.AdminRequests,
			HealthRequests:       cfg.RateLimit.HealthRequests,
			WhitelistedIPs:       cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Notification delivery: Telegram when configured, otherwise a no-op
	// sink that still records the audit trail
	var notifier notifications.Notifier
	if cfg.Telegram.Enabled {
		tg, err := notifications.NewTelegramNotifier(cfg.Telegram.BotToken)
		if err != nil {
			appLogger.Error("Failed to initialize Telegram notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = tg
		appLogger.Info("Telegram notifier initialized")
	} else {
		notifier = notifications.NoopNotifier{}
		appLogger.Info("Telegram disabled, notifications will be recorded but not delivered")
	}

	notificationRepo := notifications.NewRepository(db.GetSQLite())

	// Dispatcher: direct in-process delivery by default, Kafka pipeline when
	// enabled (publisher here, worker pool consuming below)
	var dispatcher notifications.Dispatcher
	var consumer notifications.Consumer
	if cfg.Kafka.Enabled {
		producerConfig := notifications.DefaultKafkaProducerConfig()
		producerConfig.Brokers = cfg.Kafka.Brokers
		producerConfig.Topic = cfg.Kafka.Topic

		producer, err := notifications.NewKafkaProducer(producerConfig)
		if err != nil {
			appLogger.Error("Failed to initialize Kafka producer", slog.Any("error", err))
			os.Exit(1)
		}
		dispatcher = notifications.NewKafkaDispatcher(producer, notifier, notificationRepo, appLogger)

		consumerConfig := notifications.DefaultConsumerConfig()
		consumerConfig.Brokers = cfg.Kafka.Brokers
		consumerConfig.GroupID = cfg.Kafka.GroupID
		consumerConfig.Topics = []string{cfg.Kafka.Topic}

		consumer, err = notifications.NewKafkaConsumer(consumerConfig, dispatcher)
		if err != nil {
			appLogger.Error("Failed to initialize Kafka consumer", slog.Any("error", err))
			os.Exit(1)
		}

		consumerCtx, consumerCancel := context.WithCancel(context.Background())
		defer consumerCancel()
		if err := consumer.StartConsumers(consumerCtx, cfg.Kafka.Workers); err != nil {
			appLogger.Error("Failed to start Kafka consumers", slog.Any("error", err))
			os.Exit(1)
		}
		appLogger.Info("Kafka notification pipeline started",
			slog.String("topic", cfg.Kafka.Topic),
			slog.Int("workers", cfg.Kafka.Workers),
		)
	} else {
		dispatcher = notifications.NewDispatcher(notifier, notificationRepo, appLogger)
		appLogger.Info("Direct notification dispatch enabled")
	}
	defer dispatcher.Close()

	// Setup router with rate limiter
	appRouter := routes.NewRouter(cfg, db, dispatcher, appLogger)
	engine := setupEngine(cfg, rateLimiter)
	appRouter.SetupRoutes(engine)

	admissionService := appRouter.AdmissionService()

	// Blocked deliveries purge the recipient from slots, waitlist and transfers
	dispatcher.SetPurgeFunc(admissionService.PurgeUser)

	// Background expiry sweep reverts lapsed offers and re-notifies the queue
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	jobProcessor := waitlist.NewJobProcessor(admissionService, &waitlist.JobConfig{
		SweepInterval: cfg.Waitlist.SweepInterval,
		BatchSize:     100,
	})
	jobProcessor.Start(jobCtx)
	defer jobProcessor.Stop()

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s%s/status", cfg.Port, cfg.GetAPIBasePath())),
			slog.String("version", cfg.APIVersion),
			slog.Bool("redis_cache", (db.GetRedisClient() != nil)),
			slog.Bool("rate_limiting", rateLimiter != nil),
			slog.Bool("kafka_pipeline", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			appLogger.Error("Error stopping Kafka consumers", slog.Any("error", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupEngine(cfg *config.Config, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-RateLimit-*"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
