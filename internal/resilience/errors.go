package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (429, 5xx, upstream
// throttling, network timeouts).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// PermanentError marks an error that must never be retried, even when its
// text looks like a network hiccup. Credential failures are permanent.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so that IsTransient reports false for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"transport connection broken",
	"unexpected eof",
}

// IsTransient reports whether err is worth retrying: an explicit
// TransientError, a network timeout, a reset or refused connection, or a
// message matching a known transport failure. Permanent errors never are.
func IsTransient(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
