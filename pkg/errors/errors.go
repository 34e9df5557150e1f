package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels for the failure classes the catalog backend can report.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrGone            = errors.New("gone")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrServiceUnavail  = errors.New("service unavailable")
	ErrServer          = errors.New("server error")
	ErrNetwork         = errors.New("network error")
)

// AppError is a failed backend call.
//
// Errors decoded from the catalog backend carry the envelope fields as well:
// Message mirrors "message", Reason mirrors "error" and Details mirrors
// "errorsList". Status is zero when no response was received.
type AppError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Reason  string   `json:"error,omitempty"`
	Details []string `json:"errorsList,omitempty"`
	Status  int      `json:"-"`
	Err     error    `json:"-"`
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Reason
	}
	if msg == "" && e.Status != 0 {
		msg = http.StatusText(e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

type class struct {
	code     string
	sentinel error
}

var classes = map[int]class{
	http.StatusBadRequest:            {"INVALID_INPUT", ErrInvalidInput},
	http.StatusUnauthorized:          {"UNAUTHORIZED", ErrUnauthorized},
	http.StatusForbidden:             {"FORBIDDEN", ErrForbidden},
	http.StatusNotFound:              {"NOT_FOUND", ErrNotFound},
	http.StatusConflict:              {"CONFLICT", ErrConflict},
	http.StatusGone:                  {"GONE", ErrGone},
	http.StatusRequestEntityTooLarge: {"PAYLOAD_TOO_LARGE", ErrPayloadTooLarge},
	http.StatusServiceUnavailable:    {"SERVICE_UNAVAILABLE", ErrServiceUnavail},
}

// FromStatus builds the error for an HTTP status. Unlisted 5xx statuses wrap
// ErrServer; any other unlisted status gets an HTTP_<code> code and no
// sentinel.
func FromStatus(status int, message string) *AppError {
	c, ok := classes[status]
	switch {
	case ok:
	case status >= http.StatusInternalServerError:
		c = class{"SERVER_ERROR", ErrServer}
	default:
		c = class{code: fmt.Sprintf("HTTP_%d", status)}
	}
	return &AppError{Code: c.code, Message: message, Status: status, Err: c.sentinel}
}

// Network wraps a transport failure. Timeouts and refused connections share
// this class.
func Network(err error) *AppError {
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: "request did not complete",
		Err:     fmt.Errorf("%w: %w", ErrNetwork, err),
	}
}

// HTTPStatus returns the status carried by err, or 0 when no response was
// received or err is not an AppError.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// IsNetwork reports whether err is a failure that produced no HTTP response,
// such as a refused connection or an open circuit breaker. A 503 answer is not
// network-class: its envelope is shown like any other.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}
