package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ErrorEnvelope is the error body the catalog backend sends with non-2xx
// responses. Every field is optional: validation failures fill ErrorsList,
// framework errors usually only fill Error.
type ErrorEnvelope struct {
	Message    string   `json:"message,omitempty"`
	Error      string   `json:"error,omitempty"`
	ErrorsList []string `json:"errorsList,omitempty"`
	Status     int      `json:"status,omitempty"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an *apperrors.AppError carrying the status, the backend message,
// the "error" reason and the itemised errorsList.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var envelope ErrorEnvelope
	if len(bodyBytes) > 0 && json.Unmarshal(bodyBytes, &envelope) != nil {
		// Non-JSON body (proxy page, plain text): keep a short excerpt as the reason.
		envelope = ErrorEnvelope{Error: excerpt(bodyBytes)}
	}

	return mapStatusError(resp.StatusCode, envelope, serviceName)
}

// mapStatusError builds the AppError for a status code, preserving the
// envelope fields verbatim so forms can show them. Message stays empty when
// the backend sent none, so callers can tell a server-provided message from
// a locally generated one.
func mapStatusError(status int, envelope ErrorEnvelope, serviceName string) *apperrors.AppError {
	appErr := apperrors.FromStatus(status, envelope.Message)
	if errors.Is(appErr, apperrors.ErrServer) {
		appErr.Err = fmt.Errorf("%s: %w", serviceName, apperrors.ErrServer)
	}
	appErr.Reason = envelope.Error
	appErr.Details = envelope.ErrorsList
	return appErr
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}

const excerptRunes = 200

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if r := []rune(s); len(r) > excerptRunes {
		s = string(r[:excerptRunes]) + "..."
	}
	return s
}
