package logger

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// LogHTTPError logs a failed request together with its request context.
func LogHTTPError(c *gin.Context, err error, statusCode int, message string) {
	kv := []interface{}{
		"error", err,
		"statusCode", statusCode,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"clientIp", c.ClientIP(),
		"headers", filterSensitiveHeaders(c.Request.Header),
	}
	if requestID, ok := c.Get("request_id"); ok {
		kv = append(kv, "requestId", requestID)
	}
	if groupID := c.Param("groupId"); groupID != "" {
		kv = append(kv, "groupId", groupID)
	}

	if statusCode >= http.StatusInternalServerError {
		GetLogger().Errorw(message, kv...)
		return
	}
	GetLogger().Warnw(message, kv...)
}

// filterSensitiveHeaders redacts credentials before headers are logged.
func filterSensitiveHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string, len(headers))

	for name, values := range headers {
		lower := strings.ToLower(name)
		if strings.EqualFold(name, "Authorization") ||
			strings.EqualFold(name, "Cookie") ||
			strings.Contains(lower, "token") ||
			strings.Contains(lower, "key") ||
			strings.Contains(lower, "secret") {
			filtered[name] = "[REDACTED]"
			continue
		}
		if len(values) > 0 {
			filtered[name] = values[0]
		}
	}

	return filtered
}
