package router

import (
	"net/http"
	"time"

	"github.com/coshare/coshare-backend/config"
	"github.com/coshare/coshare-backend/handlers"
	"github.com/coshare/coshare-backend/logger"
	"github.com/coshare/coshare-backend/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config           *config.Config
	AnalyticsHandler *handlers.AnalyticsHandler
	HealthHandler    *handlers.HealthHandler
	// RedisClient backs the analytics rate limiter. Nil disables limiting.
	RedisClient *redis.Client
	// Gatherer backs /metrics. Nil uses the default Prometheus registry.
	Gatherer prometheus.Gatherer
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil {
		logger.GetLogger().Warnw("Invalid trusted proxies, forwarding headers ignored", "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	// Global Middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config.IsProduction()))

	// Health and Metrics Routes
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(metricsHandler(deps.Gatherer)))

	v1 := r.Group("/v1")
	{
		analyticsRoutes := v1.Group("/groups/:groupId/analytics")
		analyticsRoutes.Use(middleware.AnalyticsRateLimiter(deps.RedisClient, deps.Config.Server.RateLimitPerMinute, time.Minute))
		{
			analyticsRoutes.GET("/fairness", deps.AnalyticsHandler.GetFairnessHandler)
			analyticsRoutes.POST("/booking-suggestions", deps.AnalyticsHandler.SuggestBookingsHandler)
			analyticsRoutes.GET("/usage-forecast", deps.AnalyticsHandler.ForecastUsageHandler)
			analyticsRoutes.GET("/cost-optimization", deps.AnalyticsHandler.OptimizeCostsHandler)
		}
	}

	return r
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
