package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status   int
		code     string
		sentinel error
	}{
		{http.StatusBadRequest, "INVALID_INPUT", ErrInvalidInput},
		{http.StatusUnauthorized, "UNAUTHORIZED", ErrUnauthorized},
		{http.StatusForbidden, "FORBIDDEN", ErrForbidden},
		{http.StatusNotFound, "NOT_FOUND", ErrNotFound},
		{http.StatusConflict, "CONFLICT", ErrConflict},
		{http.StatusGone, "GONE", ErrGone},
		{http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", ErrPayloadTooLarge},
		{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrServiceUnavail},
		{http.StatusInternalServerError, "SERVER_ERROR", ErrServer},
		{http.StatusGatewayTimeout, "SERVER_ERROR", ErrServer},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, "")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.status, err.Status)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.status, HTTPStatus(fmt.Errorf("save product: %w", err)))
		})
	}
}

func TestFromStatus_Unlisted(t *testing.T) {
	err := FromStatus(http.StatusTeapot, "brew elsewhere")
	assert.Equal(t, "HTTP_418", err.Code)
	assert.Nil(t, err.Unwrap())
	assert.Equal(t, "HTTP_418: brew elsewhere", err.Error())
}

func TestAppError_ErrorFallsBackToReasonThenStatusText(t *testing.T) {
	withMessage := &AppError{Code: "CONFLICT", Message: "Category in use", Reason: "Conflict", Status: http.StatusConflict}
	assert.Equal(t, "CONFLICT: Category in use", withMessage.Error())

	withReason := &AppError{Code: "FORBIDDEN", Reason: "Access Denied", Status: http.StatusForbidden}
	assert.Equal(t, "FORBIDDEN: Access Denied", withReason.Error())

	bare := FromStatus(http.StatusNotFound, "")
	assert.Equal(t, "NOT_FOUND: Not Found: resource not found", bare.Error())
}

func TestAppError_KeepsEnvelopeDetails(t *testing.T) {
	err := FromStatus(http.StatusBadRequest, "Validation failed")
	err.Details = []string{"name: must not be blank", "price: must be positive"}

	var target *AppError
	require.True(t, errors.As(fmt.Errorf("create product: %w", err), &target))
	assert.Equal(t, []string{"name: must not be blank", "price: must be positive"}, target.Details)
}

func TestNetwork(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")
	err := Network(cause)

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsNetwork(err))
	assert.Zero(t, HTTPStatus(err), "no response was received")
}

func TestIsNetwork(t *testing.T) {
	assert.False(t, IsNetwork(FromStatus(http.StatusServiceUnavailable, "Catalog under maintenance")))
	assert.False(t, IsNetwork(FromStatus(http.StatusInternalServerError, "")))
	assert.False(t, IsNetwork(FromStatus(http.StatusNotFound, "")))
	assert.False(t, IsNetwork(errors.New("plain")))
}

func TestHTTPStatus_PlainError(t *testing.T) {
	assert.Zero(t, HTTPStatus(errors.New("not from the backend")))
	assert.Zero(t, HTTPStatus(nil))
}
