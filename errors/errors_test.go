package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/coshare/coshare-backend/logger"
	"github.com/stretchr/testify/assert"
)

func init() {
	logger.IsTest = true
}

func TestNew(t *testing.T) {
	err := New(ValidationError, "invalid input", "field required")
	assert.Equal(t, ValidationError, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Equal(t, "field required", err.Detail)
	assert.Equal(t, 400, err.HTTPStatus)
}

func TestWrap(t *testing.T) {
	originalErr := fmt.Errorf("original error")
	wrappedErr := Wrap(originalErr, DatabaseError, "database operation failed")

	assert.Equal(t, DatabaseError, wrappedErr.Type)
	assert.Equal(t, "database operation failed", wrappedErr.Message)
	assert.Equal(t, originalErr.Error(), wrappedErr.Detail)
	assert.Equal(t, 500, wrappedErr.HTTPStatus)
	assert.True(t, stderrors.Is(wrappedErr, originalErr))
	assert.Nil(t, Wrap(nil, DatabaseError, "ignored"))
}

func TestGroupNotFound(t *testing.T) {
	err := GroupNotFound("group-1")
	assert.Equal(t, GroupNotFoundError, err.Type)
	assert.Equal(t, "Group ID: group-1", err.Detail)
	assert.Equal(t, 404, err.GetHTTPStatus())
	assert.Equal(t, "GROUP_NOT_FOUND: Group not found (Group ID: group-1)", err.Error())
}

func TestNewDatabaseError(t *testing.T) {
	originalErr := fmt.Errorf("connection failed")
	err := NewDatabaseError(originalErr)
	assert.Equal(t, DatabaseError, err.Type)
	assert.Equal(t, "Database operation failed", err.Message)
	assert.Equal(t, "Please try again later", err.Detail)
	assert.Equal(t, 500, err.HTTPStatus)
	assert.Equal(t, originalErr, err.Raw)
}

func TestGetHTTPStatusFallback(t *testing.T) {
	err := &AppError{Type: RateLimitError, Message: "slow down"}
	assert.Equal(t, 429, err.GetHTTPStatus())

	err = &AppError{Type: "SOMETHING_ELSE"}
	assert.Equal(t, 500, err.GetHTTPStatus())
}

func TestRateLimitExceeded(t *testing.T) {
	err := RateLimitExceeded("slow down", 42)
	assert.Equal(t, RateLimitError, err.Type)
	assert.Equal(t, 429, err.GetHTTPStatus())
	assert.Equal(t, "Retry after 42 seconds", err.Detail)
}
