package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/helios-bi/foresight-go/internal/api"
	"github.com/helios-bi/foresight-go/internal/api/handlers"
	"github.com/helios-bi/foresight-go/internal/cache"
	"github.com/helios-bi/foresight-go/internal/config"
	"github.com/helios-bi/foresight-go/internal/database"
	"github.com/helios-bi/foresight-go/internal/erp"
	"github.com/helios-bi/foresight-go/internal/insightai"
	"github.com/helios-bi/foresight-go/internal/logging"
	"github.com/helios-bi/foresight-go/internal/services"
	"github.com/helios-bi/foresight-go/internal/telemetry"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)

	if err := telemetry.InitTelemetry(telemetry.TelemetryConfig{
		Enabled:      cfg.Telemetry.Enabled,
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Environment:  cfg.Environment,
	}); err != nil {
		logger.WithError(err).Fatal("Failed to initialize telemetry")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("Telemetry shutdown failed")
		}
	}()

	// Select the history source. The ERP HTTP client is the default; the
	// Postgres repository serves deployments that share the ERP database.
	var (
		fetcher      services.HistoryFetcher
		dependencies = make(map[string]handlers.DependencyChecker)
	)
	switch cfg.Data.Source {
	case "postgres":
		db, err := database.NewPostgresConnection(cfg.Database)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()
		fetcher = database.NewHistoryRepository(db.Pool, cfg.ERP.HistoryDays, logger)
		dependencies["database"] = db
	default:
		erpClient := erp.NewClient(&cfg.ERP, logger)
		fetcher = erpClient
		dependencies["erp"] = erpClient
	}

	// Response cache is optional and best effort.
	var forecastCache *cache.ForecastCache
	if cfg.Cache.Enabled {
		redisClient, err := database.NewRedisConnection(cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisClient.Close()
		forecastCache = cache.NewForecastCache(redisClient.Client, cfg.CacheTTL(), logger)
		dependencies["redis"] = redisClient
	}

	var augmenter services.InsightAugmenter
	if cfg.InsightAI.Enabled {
		augmenter = insightai.NewClient(&cfg.InsightAI, logger)
		logger.Info("Insight augmentation enabled")
	}

	engine := services.NewEngine(fetcher, augmenter, &cfg.Forecast, logger)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if cfg.Telemetry.Enabled {
		router.Use(otelgin.Middleware(telemetry.ServiceName))
	}

	forecastHandler := handlers.NewForecastHandler(engine, forecastCache, &cfg.Forecast, logger)
	healthHandler := handlers.NewHealthHandler(dependencies)
	api.SetupRoutes(router, forecastHandler, healthHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
