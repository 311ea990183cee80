package shared

import (
	"fmt"
	"net/http"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// Upstream fetch errors
	ErrNotFound    = fmt.Errorf("not found")
	ErrRateLimited = fmt.Errorf("rate limited: retry budget exhausted")
	ErrNetwork     = fmt.Errorf("network error: retry budget exhausted")

	// Setlist pipeline errors
	ErrNoData  = fmt.Errorf("no setlist listing reachable")
	ErrNoSongs = fmt.Errorf("no songs found in setlists")
	ErrEmpty   = fmt.Errorf("no songs found on statistics page")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// HTTPError is returned for a non-retryable, non-404 error status.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}
