package middleware

import (
	"strings"
	"time"

	"github.com/coshare/coshare-backend/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the configured origins. "*" allows every origin and
// entries like "*.example.com" allow any subdomain.
func CORSMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Authorization",
			"Accept",
			RequestIDHeader,
		},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 || containsOrigin(cfg.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
		return cors.New(corsConfig)
	}

	allowed := cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowOriginFunc = func(origin string) bool {
		for _, allowedOrigin := range allowed {
			if allowedOrigin == origin {
				return true
			}
			if strings.HasPrefix(allowedOrigin, "*.") && strings.HasSuffix(origin, strings.TrimPrefix(allowedOrigin, "*")) {
				return true
			}
		}
		return false
	}
	return cors.New(corsConfig)
}

// containsOrigin checks if a string is present in the allowed origins slice
func containsOrigin(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}
