package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/coshare/coshare-backend/config"
	"github.com/coshare/coshare-backend/db"
	"github.com/coshare/coshare-backend/handlers"
	"github.com/coshare/coshare-backend/internal/advisory"
	"github.com/coshare/coshare-backend/internal/store/postgres"
	"github.com/coshare/coshare-backend/logger"
	"github.com/coshare/coshare-backend/router"
	"github.com/coshare/coshare-backend/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := config.NewPgxPool(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	log.Infow("Connected to database", "url", logger.MaskConnectionString(cfg.Database.URL()))

	// Redis only backs the advisory cache; the service keeps answering without it.
	var redisClient *redis.Client
	if client, err := config.NewRedisClient(ctx, &cfg.Redis); err != nil {
		log.Warnw("Redis unavailable, advisory cache disabled", "address", cfg.Redis.Address, "error", err)
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	var advisor advisory.Advisor = advisory.Disabled{}
	if cfg.Advisory.Enabled {
		advisor = advisory.NewClient(cfg.Advisory.BaseURL, cfg.Advisory.APIKey,
			advisory.WithModel(cfg.Advisory.Model),
			advisory.WithTimeout(cfg.Advisory.Timeout()),
		)
	}

	metrics := services.NewAnalyticsMetrics(prometheus.DefaultRegisterer)
	analyticsService := services.NewAnalyticsService(
		postgres.NewStore(pool),
		advisor,
		services.NewRedisAdvisoryCache(redisClient, cfg.Advisory.CacheTTL()),
		metrics,
		cfg.Analytics,
	)
	healthService := services.NewHealthService(pool, redisClient, cfg.Advisory.Enabled, cfg.Server.Version)

	r := router.SetupRouter(router.Dependencies{
		Config:           cfg,
		AnalyticsHandler: handlers.NewAnalyticsHandler(analyticsService),
		HealthHandler:    handlers.NewHealthHandler(healthService),
		RedisClient:      redisClient,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}
	log.Info("Server stopped")
}
