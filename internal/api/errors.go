package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// User-facing fallback messages.
const (
	MsgUnexpected      = "An unexpected or network error occurred."
	MsgValidation      = "Validation error"
	MsgImageTooLarge   = "The image is too large."
	MsgNoPermission    = "You do not have permission to perform this action."
	msgServerErrorCode = "Server error: %d"
)

// ErrorMessage turns any error returned by this package into the message shown
// to the user. The backend "message" wins, then the itemised "errorsList",
// then status fallbacks, then the backend "error" string. Failures that never
// produced an HTTP response get a single generic message.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		return itemise(MsgValidation, verr.Messages())
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Status == 0 || apperrors.IsNetwork(err) {
		return MsgUnexpected
	}

	if appErr.Message != "" {
		return appErr.Message
	}
	if len(appErr.Details) > 0 {
		return itemise(MsgValidation, appErr.Details)
	}
	switch appErr.Status {
	case http.StatusRequestEntityTooLarge:
		return MsgImageTooLarge
	case http.StatusForbidden:
		return MsgNoPermission
	}
	if appErr.Reason != "" {
		return appErr.Reason
	}
	return fmt.Sprintf(msgServerErrorCode, appErr.Status)
}

func itemise(head string, items []string) string {
	return head + "\n- " + strings.Join(items, "\n- ")
}

// StatusOf returns the HTTP status carried by err, or 0 if there was none.
func StatusOf(err error) int {
	return apperrors.HTTPStatus(err)
}

// IsNotFound reports a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
