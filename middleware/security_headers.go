package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware sets the response headers every API reply carries.
// HSTS is only sent in production.
func SecurityHeadersMiddleware(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		// Analytics answers are per-group and change with the data.
		c.Header("Cache-Control", "no-store")

		if production {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
