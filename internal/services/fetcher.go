// Rate-limited HTTP fetcher shared by the setlist.fm client
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistify/internal/shared"
)

const (
	defaultMaxRetries  = 3
	defaultRetryAfter  = 2 // units
	defaultBackoffUnit = time.Second
	maxRetryAfter      = 60 // units
	maxResponseBytes   = 4 << 20
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// FetcherOpts configures a [Fetcher]. Zero values fall back to defaults.
type FetcherOpts struct {
	Client      *http.Client
	MaxRetries  int           // retries after the first attempt
	BackoffUnit time.Duration // one time-unit of Retry-After and exponential backoff
	Sleep       SleepFunc
	Logger      *log.Logger
}

// Fetcher issues GET requests, waiting out HTTP 429 responses and retrying transport failures
// with exponential backoff. A 404 is returned immediately as [shared.ErrNotFound].
//
// A Fetcher is meant to be used by one pipeline run at a time.
type Fetcher struct {
	client      *http.Client
	maxRetries  int
	backoffUnit time.Duration
	sleep       SleepFunc
	logger      *log.Logger
}

// NewFetcher creates a Fetcher from opts.
func NewFetcher(opts FetcherOpts) *Fetcher {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = defaultBackoffUnit
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Fetcher{
		client:      opts.Client,
		maxRetries:  opts.MaxRetries,
		backoffUnit: opts.BackoffUnit,
		sleep:       opts.Sleep,
		logger:      shared.WithLogger(opts.Logger, "component", "fetcher"),
	}
}

// Sleep waits for d, returning early with the context error on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Get fetches url with the fetcher's default retry budget.
func (f *Fetcher) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	return f.GetWithRetries(ctx, url, header, f.maxRetries)
}

// GetWithRetries fetches url, retrying at most retries times after the first attempt.
//
// Errors:
//   - [shared.ErrNotFound] on 404, without retrying
//   - [shared.ErrRateLimited] when every attempt got a 429
//   - [shared.ErrNetwork] when the last attempt failed at the transport level
//   - [*shared.HTTPError] for any other non-2xx status
func (f *Fetcher) GetWithRetries(ctx context.Context, url string, header http.Header, retries int) (*Response, error) {
	retries = max(retries, 0)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		resp, err := f.do(ctx, url, header)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = fmt.Errorf("%w: %v", shared.ErrNetwork, err)
			if attempt == retries {
				return nil, lastErr
			}
			wait := f.backoffUnit * time.Duration(1<<(attempt+1))
			f.logger.Warn("request failed, backing off", "url", url, "attempt", attempt+1, "wait", wait, "error", err)
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: %s", shared.ErrRateLimited, url)
			if attempt == retries {
				return nil, lastErr
			}
			wait := f.retryAfter(resp.Header)
			f.logger.Warn("rate limited, waiting", "url", url, "attempt", attempt+1, "wait", wait)
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, url)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, &shared.HTTPError{StatusCode: resp.StatusCode, URL: url}
		}

		return resp, nil
	}

	return nil, lastErr
}

func (f *Fetcher) do(ctx context.Context, url string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	f.logger.Debug("GET", "url", url)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// retryAfter reads Retry-After as delay-seconds or an HTTP date, defaulting to two units.
// The wait never exceeds maxRetryAfter units.
func (f *Fetcher) retryAfter(h http.Header) time.Duration {
	limit := maxRetryAfter * f.backoffUnit
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return defaultRetryAfter * f.backoffUnit
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		if secs >= maxRetryAfter {
			return limit
		}
		return time.Duration(secs) * f.backoffUnit
	}
	if at, err := http.ParseTime(value); err == nil {
		return min(max(time.Until(at), 0), limit)
	}
	return defaultRetryAfter * f.backoffUnit
}

// IsRetryExhausted reports whether err came from running out of retries.
func IsRetryExhausted(err error) bool {
	return errors.Is(err, shared.ErrRateLimited) || errors.Is(err, shared.ErrNetwork)
}
