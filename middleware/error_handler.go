package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/coshare/coshare-backend/errors"
	"github.com/coshare/coshare-backend/logger"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		err := last.Err

		if appError, ok := err.(*errors.AppError); ok {
			statusCode := appError.GetHTTPStatus()
			logger.LogHTTPError(c, err, statusCode, fmt.Sprintf("%s error", appError.Type))

			response := ErrorResponse{
				Type:      string(appError.Type),
				Message:   appError.Message,
				Code:      strconv.Itoa(statusCode),
				RequestID: GetRequestID(c),
			}
			// Details only for errors the caller can act on, or in debug mode
			if appError.Detail != "" && (gin.IsDebugging() ||
				appError.Type == errors.ValidationError ||
				appError.Type == errors.NotFoundError ||
				appError.Type == errors.RateLimitError ||
				appError.Type == errors.GroupNotFoundError) {
				response.Details = appError.Detail
			}

			c.JSON(statusCode, response)
			return
		}

		if last.Type == gin.ErrorTypeBind || last.Type == gin.ErrorTypePublic {
			logger.LogHTTPError(c, err, http.StatusBadRequest, "Request error")

			response := ErrorResponse{
				Type:      string(errors.ValidationError),
				Message:   "Failed to bind request",
				Code:      strconv.Itoa(http.StatusBadRequest),
				RequestID: GetRequestID(c),
			}
			if last.Type == gin.ErrorTypePublic {
				response.Message = err.Error()
			} else if gin.IsDebugging() {
				response.Details = err.Error()
			}

			c.JSON(http.StatusBadRequest, response)
			return
		}

		logger.LogHTTPError(c, err, http.StatusInternalServerError, "Unexpected server error")

		response := ErrorResponse{
			Type:      string(errors.ServerError),
			Message:   "Internal Server Error",
			Code:      strconv.Itoa(http.StatusInternalServerError),
			RequestID: GetRequestID(c),
		}
		if gin.IsDebugging() {
			response.Details = err.Error()
		}

		c.JSON(http.StatusInternalServerError, response)
	}
}
