package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an error as safe to retry.
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

// NewTransientError wraps err as transient with an optional status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// StatusError is a failed remote call with an HTTP-style status. Whether it
// is retried depends on the status.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("remote status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote status %d: %v", e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError builds a StatusError.
func NewStatusError(statusCode int, err error) *StatusError {
	return &StatusError{StatusCode: statusCode, Err: err}
}

// IsTransientHTTPStatus reports timeouts, rate limiting and server errors.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// IsPermanentStatus reports malformed-request, authentication, permission
// and not-found statuses, which are never retried.
func IsPermanentStatus(statusCode int) bool {
	switch statusCode {
	case 400, 401, 403, 404:
		return true
	default:
		return false
	}
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"tls: ",
	"ssl",
	"unexpected eof",
	"i/o timeout",
	"server closed idle connection",
	"rate limit",
}

// IsTransient reports whether err is worth retrying. A StatusError decides
// by its status; otherwise explicit TransientErrors, network timeouts,
// connection resets and TLS failures are transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return IsTransientHTTPStatus(se.StatusCode)
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
