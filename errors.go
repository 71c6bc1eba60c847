package i18nhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// Error is a normalized load failure. It carries the failing URL, the HTTP
// status when one was observed, and a retryability verdict the cache client
// and the calling framework's connector use to decide whether re-attempting
// the load is worthwhile.
type Error struct {
	Message   string
	URL       string
	Status    int
	Retryable bool

	cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// networkFailureTerms are substrings that mark an otherwise untyped transport
// error as a transient network problem.
var networkFailureTerms = []string{
	"failed to fetch",
	"network",
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"no such host",
	"broken pipe",
	"abort",
	"eof",
}

// ClassifyResponse maps a non-2xx HTTP status to a normalized error.
// It returns nil for statuses below 400.
func ClassifyResponse(status int, fetchURL string) *Error {
	switch {
	case status >= http.StatusInternalServerError && status < 600:
		return &Error{
			Message:   fmt.Sprintf("failed loading %s; status code: %d", fetchURL, status),
			URL:       fetchURL,
			Status:    status,
			Retryable: true,
		}
	case status >= http.StatusBadRequest:
		return &Error{
			Message:   fmt.Sprintf("failed loading %s; status code: %d", fetchURL, status),
			URL:       fetchURL,
			Status:    status,
			Retryable: false,
		}
	default:
		return nil
	}
}

// Classify normalizes a raw transport or parse failure. Rules are applied in
// priority order: HTTP status, network failure, parse failure, then a generic
// fatal error. Already-normalized errors pass through unchanged.
func Classify(err error, fetchURL string) *Error {
	if err == nil {
		return nil
	}

	var norm *Error
	if errors.As(err, &norm) {
		return norm
	}

	if isNetworkFailure(err) {
		return &Error{
			Message:   fmt.Sprintf("failed loading %s: %v", fetchURL, err),
			URL:       fetchURL,
			Retryable: true,
			cause:     err,
		}
	}

	return &Error{
		Message:   fmt.Sprintf("failed loading %s: %v", fetchURL, err),
		URL:       fetchURL,
		Retryable: false,
		cause:     err,
	}
}

// newParseError marks a resource body that could not be decoded. Parse
// failures are always fatal; retrying returns the same malformed payload.
func newParseError(fetchURL string, cause error) *Error {
	return &Error{
		Message:   fmt.Sprintf("failed parsing %s to json", fetchURL),
		URL:       fetchURL,
		Retryable: false,
		cause:     cause,
	}
}

func isNetworkFailure(err error) bool {
	// User-initiated cancellation is never worth retrying.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, term := range networkFailureTerms {
		if strings.Contains(msg, term) {
			return true
		}
	}

	return false
}

// IsRetryable reports whether a failure is transient. It is the predicate
// handed to the cache client's retry loop.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var norm *Error
	if errors.As(err, &norm) {
		return norm.Retryable
	}

	return isNetworkFailure(err)
}

const (
	backoffBase = time.Second
	backoffCap  = 30 * time.Second
)

// Backoff returns the delay before re-running a failed attempt. The first
// retry waits the base interval and each further attempt doubles it, capped.
// Deterministic on purpose: no jitter.
func Backoff(attempt int) time.Duration {
	delay := backoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= backoffCap {
			return backoffCap
		}
	}
	return delay
}
