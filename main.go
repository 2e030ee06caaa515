package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"inventory-backend/cache"
	"inventory-backend/config"
	"inventory-backend/database"
	"inventory-backend/events"
	"inventory-backend/ledger"
	"inventory-backend/middlewares"
	"inventory-backend/observability"
	"inventory-backend/routes"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	shutdownTracing, err := observability.SetupTracingSDK(ctx, cfg)
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
	}

	// ---- Database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Connected to database", zap.String("driver", cfg.DBDriver))

	// ---- Events
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaBroker != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic, logger)
		logger.Info("Publishing ledger events", zap.String("broker", cfg.KafkaBroker), zap.String("topic", cfg.KafkaTopic))
	}

	// ---- Idempotency keys: redis when configured, else the database
	var idempotency middlewares.IdempotencyStore = database.NewIdempotencyStore(db)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to connect redis", zap.Error(err))
		}
		idempotency = cache.NewIdempotencyStore(rdb)
		logger.Info("Connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	svc := ledger.NewService(database.NewGormStore(db),
		ledger.WithLogger(logger.Named("ledger")),
		ledger.WithTracer(otel.Tracer("inventory-backend/ledger")),
		ledger.WithPublisher(publisher),
		ledger.WithDefaultCurrency(cfg.DefaultCurrency),
	)

	app := routes.New(routes.Options{
		Ledger:          svc,
		Idempotency:     idempotency,
		Logger:          logger,
		JWTSecret:       cfg.JWTSecret,
		BodyLimit:       cfg.BodyLimitBytes,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	go func() {
		logger.Info("API server listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("API server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Warn("API server shutdown", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		logger.Warn("Event publisher close", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Tracing shutdown", zap.Error(err))
	}
	logger.Info("Connections closed")
}
