package middleware

import (
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/coshare/coshare-backend/errors"
	"github.com/coshare/coshare-backend/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const analyticsRateLimitPrefix = "ratelimit:analytics:"

// AnalyticsRateLimiter limits analytics requests per client IP using a fixed
// Redis window. A nil client or a non-positive limit disables it, and Redis
// failures let the request through. The client IP comes from gin's ClientIP,
// so forwarding headers count only when the engine trusts the peer.
func AnalyticsRateLimiter(redisClient *redis.Client, requestsPerWindow int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil || requestsPerWindow <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := analyticsRateLimitPrefix + c.ClientIP()

		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			logger.GetLogger().Warnw("Rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}
		if count == 1 {
			if err := redisClient.Expire(ctx, key, window).Err(); err != nil {
				logger.GetLogger().Warnw("Failed to set rate limit window", "key", key, "error", err)
			}
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(requestsPerWindow))

		if count > int64(requestsPerWindow) {
			ttl, err := redisClient.TTL(ctx, key).Result()
			if err != nil || ttl <= 0 {
				ttl = window
			}
			retryAfter := int(ttl.Seconds())

			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(ttl).Unix()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			_ = c.Error(apperrors.RateLimitExceeded("Too many requests. Please try again later.", retryAfter))
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(int64(requestsPerWindow)-count, 10))
		c.Next()
	}
}
