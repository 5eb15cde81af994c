// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// RetryBaseDelay is the base backoff for HTTP 429/503 responses; the wait
// is (2^attempt) * RetryBaseDelay. TransportRetryDelay is the shorter base
// for transport errors. Tests override both to avoid real sleeps.
var (
	RetryBaseDelay      = 2 * time.Second
	TransportRetryDelay = 1 * time.Second
)

// ErrRedirectBlocked marks a fetch whose redirect chain ended at a URL that
// failed validation. The initial URL was safe; the final one was not.
var ErrRedirectBlocked = errors.New("redirect target blocked")

// StatusError reports a non-2xx HTTP status that is not retryable.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

// Response is a completed fetch. FinalURL is the URL actually served after
// any redirects, already re-validated.
type Response struct {
	Body       []byte
	Header     http.Header
	StatusCode int
	FinalURL   string
}

// IsPDF reports whether the response looks like a PDF by declared
// content type or leading magic bytes.
func (r *Response) IsPDF() bool {
	if strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "pdf") {
		return true
	}
	return len(r.Body) >= 5 && string(r.Body[:5]) == "%PDF-"
}

// Fetcher issues safe GETs: every URL is validated before the request,
// the domain rate limiter is acquired, and every redirect hop is
// validated again before it is followed.
type Fetcher struct {
	client  *http.Client
	limiter *RateLimiter
	cfg     types.HTTPConfig
}

// NewFetcher builds a Fetcher from cfg. Zero Timeout defaults to 30s,
// zero MaxRetries to 3.
func NewFetcher(cfg types.HTTPConfig, limiter *RateLimiter) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			// Each redirect hop is validated before it is followed, so a
			// connection to a blocked address is never attempted even when
			// the initial URL passed validation.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				if _, err := ValidateURL(req.Context(), req.URL.String(), cfg.AllowedDomain); err != nil {
					return fmt.Errorf("%w: %w", ErrRedirectBlocked, err)
				}
				return nil
			},
		},
		limiter: limiter,
		cfg:     cfg,
	}
}

// Fetch GETs rawURL with validation, rate limiting, and retries.
//
// Retry policy: HTTP 429 and 503 back off (2^attempt)*RetryBaseDelay and
// retry; other HTTP error statuses fail immediately as *StatusError;
// transport errors back off (2^attempt)*TransportRetryDelay. Rate-limit
// signals wait longer than transient transport faults. Security failures
// (ErrUnsafeURL, ErrRedirectBlocked) are never retried. After MaxRetries
// attempts the last error is returned.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	target, err := ValidateURL(ctx, rawURL, f.cfg.AllowedDomain)
	if err != nil {
		return nil, err
	}
	if err := f.limiter.Acquire(ctx, target.Host); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < f.cfg.MaxRetries; attempt++ {
		resp, err := f.do(ctx, rawURL)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, ErrUnsafeURL) || errors.Is(err, ErrRedirectBlocked) {
			return nil, err
		}

		var se *StatusError
		if errors.As(err, &se) {
			if se.Code != http.StatusTooManyRequests && se.Code != http.StatusServiceUnavailable {
				return nil, err
			}
			if attempt < f.cfg.MaxRetries-1 {
				if err := sleep(ctx, time.Duration(1<<attempt)*RetryBaseDelay); err != nil {
					return nil, err
				}
			}
			continue
		}

		// Transport error: shorter backoff.
		if attempt < f.cfg.MaxRetries-1 {
			if err := sleep(ctx, time.Duration(1<<attempt)*TransportRetryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		Body:       body,
		Header:     resp.Header,
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
