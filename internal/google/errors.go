package google

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"
)

func apiError(err error) (*googleapi.Error, bool) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}

func hasCode(err error, code int) bool {
	gerr, ok := apiError(err)
	return ok && gerr.Code == code
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return hasCode(err, http.StatusUnauthorized)
}

// IsForbidden returns true for 403 responses that are not rate limits.
func IsForbidden(err error) bool {
	return hasCode(err, http.StatusForbidden) && !IsRateLimited(err)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return hasCode(err, http.StatusNotFound)
}

// IsGone returns true for 410 responses, which Calendar sends for events
// that were already deleted.
func IsGone(err error) bool {
	return hasCode(err, http.StatusGone)
}

// IsRateLimited returns true for 429 responses and for 403 responses whose
// reason is a rate limit.
func IsRateLimited(err error) bool {
	gerr, ok := apiError(err)
	if !ok {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
			return true
		}
	}
	return false
}

// RetryAfter returns the Retry-After delay of a googleapi error, or 0.
func RetryAfter(err error) time.Duration {
	gerr, ok := apiError(err)
	if !ok || gerr.Header == nil {
		return 0
	}
	v := gerr.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
