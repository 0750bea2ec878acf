package middleware

import (
	"time"

	"github.com/coshare/coshare-backend/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the key used to store the request ID in the gin context
	RequestIDKey = "request_id"
	// RequestIDHeader carries the request ID in and out of the service
	RequestIDHeader = "X-Request-ID"
)

// RequestIDMiddleware adds a unique request ID to each request, reusing one
// set by a load balancer or proxy.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestIDMiddleware, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// RequestLogger logs one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := logger.GetLogger()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"requestId", GetRequestID(c),
		}
		if c.Writer.Status() >= 500 {
			log.Errorw("Request completed", fields...)
			return
		}
		log.Infow("Request completed", fields...)
	}
}
