package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// StatusError is returned when a provider answers with a non-2xx status
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Code, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// IsRateLimited reports a 429 from the provider
func IsRateLimited(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsUnavailable reports a 503 from the provider
func IsUnavailable(err error) bool {
	return StatusCode(err) == http.StatusServiceUnavailable
}

// IsRetryable reports the only statuses treated as transient: the provider
// is throttling (429) or out of capacity (503). Every other status is final.
func IsRetryable(err error) bool {
	return IsRateLimited(err) || IsUnavailable(err)
}

// IsTransportFailure reports a request that never got an HTTP answer
func IsTransportFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ue *url.Error
	return errors.As(err, &ue) && StatusCode(err) == 0
}

// ShouldFallback reports the statuses that move a fallback chain on to
// its next model: the model is throttled or out of capacity
func ShouldFallback(err error) bool {
	return IsRateLimited(err) || IsUnavailable(err)
}
