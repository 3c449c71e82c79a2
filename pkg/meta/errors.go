package meta

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sells-group/adreport-cli/internal/resilience"
)

// Graph API error codes for a rejected credential.
const (
	codeInvalidToken      = 190
	codeInvalidSessionKey = 102
)

// APIError is an error payload returned by the Graph API.
type APIError struct {
	Status    int    `json:"-"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	Subcode   int    `json:"error_subcode"`
	Transient bool   `json:"is_transient"`
	TraceID   string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("meta: status %d code %d: %s", e.Status, e.Code, e.Message)
}

// AuthError reports an invalid or expired credential. It is never retried
// and aborts the run.
type AuthError struct {
	*APIError
}

func (e *AuthError) Error() string {
	return "meta: access token rejected: " + e.Message
}

func (e *AuthError) Unwrap() error { return e.APIError }

// throttling and temporary-outage codes documented for the Marketing API
func isThrottleCode(code int) bool {
	switch code {
	case 1, 2, 4, 17, 32, 341, 613:
		return true
	}
	return code >= 80000 && code <= 80014
}

// classify turns a non-200 response into a typed error.
func classify(status int, body []byte) error {
	var payload struct {
		Error *APIError `json:"error"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil {
		apiErr = payload.Error
		apiErr.Status = status
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	switch {
	case apiErr.Code == codeInvalidToken,
		apiErr.Code == codeInvalidSessionKey,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		strings.Contains(apiErr.Message, "Error validating access token"):
		return resilience.Permanent(&AuthError{APIError: apiErr})
	case apiErr.Transient, isThrottleCode(apiErr.Code), resilience.IsTransientHTTPStatus(status):
		return resilience.NewTransientError(apiErr, status)
	default:
		return apiErr
	}
}
