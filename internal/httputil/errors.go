// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRateLimitExceeded is returned by Call once a rate-limited request has
// used up its retries.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	URL        string

	// Body holds the start of the response body for diagnostics.
	Body string

	// RetryAfter is parsed from the Retry-After header; zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsRateLimited reports whether err is an HTTP 429 or an exhausted retry loop.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded) || StatusCode(err) == http.StatusTooManyRequests
}

// IsNotFound reports whether err is an HTTP 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
