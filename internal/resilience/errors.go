// Package resilience classifies source failures and wraps adapter calls
// with the bounded retry policy the batch orchestrator relies on for
// forward progress.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// RateLimitError wraps a provider rate-limit or quota-exhaustion signal.
// The retry controller sleeps on a fixed cadence before retrying these,
// unlike generic transient errors which are retried immediately.
type RateLimitError struct {
	Err        error
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps err as a rate-limit signal with an optional HTTP
// status code.
func NewRateLimitError(err error, statusCode int) *RateLimitError {
	return &RateLimitError{Err: err, StatusCode: statusCode}
}

// IsRateLimit reports whether the error chain carries a rate-limit signal:
// an explicit RateLimitError, a 429 status, or a quota-exhaustion message.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"429", "rate limit", "too many requests", "quota", "exhausted"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTimeout reports whether the error chain indicates the source timed out.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "i/o timeout")
}

// IsTransient reports whether a failed attempt is worth retrying at all:
// rate limits, timeouts, and common network-level flakiness.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimit(err) || IsTimeout(err) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"server closed idle connection",
		"stale page",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
