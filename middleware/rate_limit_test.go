package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitedRouter(client *redis.Client, limit int, trustedProxies ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	_ = r.SetTrustedProxies(trustedProxies)
	r.Use(ErrorHandler())
	r.Use(AnalyticsRateLimiter(client, limit, time.Minute))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return r
}

func doRateLimitedRequest(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	return doForwardedRequest(r, ip, "")
}

func doForwardedRequest(r *gin.Engine, remoteIP, forwardedFor string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteIP + ":40000"
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyticsRateLimiter_UnderLimit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	key := analyticsRateLimitPrefix + "192.168.1.1"

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectIncr(key).SetVal(2)

	r := newRateLimitedRouter(client, 5)

	w := doRateLimitedRequest(r, "192.168.1.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))

	w = doRateLimitedRequest(r, "192.168.1.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Remaining"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRateLimiter_OverLimit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	key := analyticsRateLimitPrefix + "192.168.1.2"

	mock.ExpectIncr(key).SetVal(4)
	mock.ExpectTTL(key).SetVal(30 * time.Second)

	r := newRateLimitedRouter(client, 3)
	w := doRateLimitedRequest(r, "192.168.1.2")

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["type"])
	assert.Equal(t, "Retry after 30 seconds", body["details"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRateLimiter_RedisFailureAllows(t *testing.T) {
	client, mock := redismock.NewClientMock()
	key := analyticsRateLimitPrefix + "192.168.1.3"

	mock.ExpectIncr(key).SetErr(errors.New("connection refused"))

	r := newRateLimitedRouter(client, 1)
	w := doRateLimitedRequest(r, "192.168.1.3")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRateLimiter_Disabled(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		w := doRateLimitedRequest(newRateLimitedRouter(nil, 5), "192.168.1.4")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("zero limit", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		w := doRateLimitedRequest(newRateLimitedRouter(client, 0), "192.168.1.4")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAnalyticsRateLimiter_IgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	client, mock := redismock.NewClientMock()
	key := analyticsRateLimitPrefix + "192.0.2.1"

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectTTL(key).SetVal(45 * time.Second)

	r := newRateLimitedRouter(client, 1)

	w := doForwardedRequest(r, "192.0.2.1", "203.0.113.7")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doForwardedRequest(r, "192.0.2.1", "198.51.100.9")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "45", w.Header().Get("Retry-After"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRateLimiter_TrustedProxy(t *testing.T) {
	tests := []struct {
		name         string
		remoteIP     string
		forwardedFor string
		expectedKey  string
	}{
		{name: "client behind trusted proxy", remoteIP: "10.0.0.2", forwardedFor: "203.0.113.7", expectedKey: "203.0.113.7"},
		{name: "chain through trusted proxies", remoteIP: "10.0.0.2", forwardedFor: "203.0.113.7, 10.0.0.1", expectedKey: "203.0.113.7"},
		{name: "spoofed entry before real client", remoteIP: "10.0.0.2", forwardedFor: "1.2.3.4, 198.51.100.2", expectedKey: "198.51.100.2"},
		{name: "untrusted peer", remoteIP: "192.0.2.5", forwardedFor: "203.0.113.7", expectedKey: "192.0.2.5"},
		{name: "no forwarding header", remoteIP: "10.0.0.2", expectedKey: "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			key := analyticsRateLimitPrefix + tt.expectedKey
			mock.ExpectIncr(key).SetVal(1)
			mock.ExpectExpire(key, time.Minute).SetVal(true)

			r := newRateLimitedRouter(client, 5, "10.0.0.0/8")
			w := doForwardedRequest(r, tt.remoteIP, tt.forwardedFor)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
