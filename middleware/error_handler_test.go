package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	customErrors "github.com/coshare/coshare-backend/errors"
	"github.com/coshare/coshare-backend/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name               string
		err                error
		ginErrorType       gin.ErrorType
		expectedStatusCode int
		expectedBody       map[string]any
		debugMode          bool
	}{
		{
			name:               "Standard Go Error - Debug Mode",
			err:                errors.New("internal processing error"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusInternalServerError,
			expectedBody: map[string]any{
				"code":    http.StatusInternalServerError,
				"message": "Internal Server Error",
				"details": "internal processing error",
			},
			debugMode: true,
		},
		{
			name:               "Standard Go Error - Production Mode",
			err:                errors.New("internal processing error"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusInternalServerError,
			expectedBody: map[string]any{
				"code":    http.StatusInternalServerError,
				"message": "Internal Server Error",
			},
		},
		{
			name:               "Gin Public Error",
			err:                errors.New("invalid input provided"),
			ginErrorType:       gin.ErrorTypePublic,
			expectedStatusCode: http.StatusBadRequest,
			expectedBody: map[string]any{
				"code":    http.StatusBadRequest,
				"message": "invalid input provided",
			},
		},
		{
			name:               "Gin Bind Error",
			err:                errors.New("failed to bind JSON"),
			ginErrorType:       gin.ErrorTypeBind,
			expectedStatusCode: http.StatusBadRequest,
			expectedBody: map[string]any{
				"code":    http.StatusBadRequest,
				"message": "Failed to bind request",
				"details": "failed to bind JSON",
			},
			debugMode: true,
		},
		{
			name:               "Group Not Found",
			err:                customErrors.GroupNotFound("group-123"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusNotFound,
			expectedBody: map[string]any{
				"type":    "GROUP_NOT_FOUND",
				"code":    http.StatusNotFound,
				"message": "Group not found",
				"details": "Group ID: group-123",
			},
		},
		{
			name:               "Validation Error",
			err:                customErrors.ValidationFailed("invalid duration", "durationMinutes must not be negative"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusBadRequest,
			expectedBody: map[string]any{
				"type":    "VALIDATION_ERROR",
				"code":    http.StatusBadRequest,
				"message": "invalid duration",
				"details": "durationMinutes must not be negative",
			},
		},
		{
			name:               "Rate Limit Exceeded",
			err:                customErrors.RateLimitExceeded("Too many requests", 12),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusTooManyRequests,
			expectedBody: map[string]any{
				"type":    "RATE_LIMIT_EXCEEDED",
				"code":    http.StatusTooManyRequests,
				"message": "Too many requests",
				"details": "Retry after 12 seconds",
			},
		},
		{
			name:               "Database Error hides details",
			err:                customErrors.Wrap(errors.New("database connection failed"), customErrors.DatabaseError, "Database operation failed"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusInternalServerError,
			expectedBody: map[string]any{
				"code":    http.StatusInternalServerError,
				"message": "Database operation failed",
			},
		},
		{
			name:               "Database Error - Debug Mode",
			err:                customErrors.Wrap(errors.New("database connection failed"), customErrors.DatabaseError, "Database operation failed"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusInternalServerError,
			expectedBody: map[string]any{
				"code":    http.StatusInternalServerError,
				"message": "Database operation failed",
				"details": "database connection failed",
			},
			debugMode: true,
		},
		{
			name:               "No Error",
			expectedStatusCode: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.debugMode {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}
			defer gin.SetMode(gin.TestMode)

			w := httptest.NewRecorder()
			_, r := gin.CreateTestContext(w)
			r.Use(RequestIDMiddleware(), ErrorHandler())
			r.GET("/test", func(ctx *gin.Context) {
				if tc.err != nil {
					_ = ctx.Error(tc.err).SetType(tc.ginErrorType)
					return
				}
				ctx.String(http.StatusOK, "OK")
			})

			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(RequestIDHeader, "req-42")
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatusCode, w.Code)
			if tc.expectedBody == nil {
				assert.Equal(t, "OK", w.Body.String())
				return
			}

			var responseBody map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &responseBody))
			for key, expectedValue := range tc.expectedBody {
				assert.Contains(t, responseBody, key)
				assert.Equal(t, fmt.Sprintf("%v", expectedValue), fmt.Sprintf("%v", responseBody[key]), "Field mismatch: %s", key)
			}
			if _, exists := tc.expectedBody["details"]; !exists {
				assert.NotContains(t, responseBody, "details")
			}
			assert.Equal(t, "req-42", responseBody["requestId"])
		})
	}
}
