// Package facebook fetches profile pages over HTTP. Every outbound request
// is paced by the rate limiter before it is issued and its outcome is
// recorded afterwards; detected throttling surfaces as a flag, not an
// error.
package facebook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"postwriter/pkg/config"
	errs "postwriter/pkg/errors"
	"postwriter/pkg/logger"
	"postwriter/pkg/ratelimit"
	"postwriter/pkg/retry"
)

// bodyExcerptLen bounds the response prefix handed to the throttle
// detector; enough for keyword matching without holding whole pages.
const bodyExcerptLen = 1000

// maxBodySize caps how much of a page is read.
const maxBodySize = 4 << 20

// PageResult is one fetched page.
type PageResult struct {
	Body      string
	Status    int
	Elapsed   time.Duration
	Throttled bool
}

// Client is an HTTP client for profile pages with built-in pacing.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    *ratelimit.Limiter
	logger     logger.Logger
	maxRetries int
	backoff    *retry.ErrorTypeBackoff
}

// NewClient creates a client. The limiter is required: every fetch goes
// through it.
func NewClient(cfg *config.FacebookConfig, limiter *ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	headers := map[string]string{
		"User-Agent":      cfg.UserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
	}
	if cfg.SessionCookie != "" {
		headers["Cookie"] = cfg.SessionCookie
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		headers:    headers,
		limiter:    limiter,
		logger:     log,
		maxRetries: maxRetries,
		backoff:    retry.NewErrorTypeBackoff(),
	}
}

// SetHeader sets a custom header for subsequent requests.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// FetchPage fetches one page, pacing before the first attempt and recording
// every attempt's outcome in the limiter. Retryable transport faults are
// retried with a backoff matched to the fault class; throttling is reported
// through PageResult.Throttled, never as an error.
func (c *Client) FetchPage(ctx context.Context, requestType ratelimit.RequestType, url string) (*PageResult, error) {
	waited, err := c.limiter.WaitForRequest(ctx, requestType, url)
	if err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("fetching page", map[string]interface{}{
		"request_type": string(requestType),
		"waited_ms":    waited.Milliseconds(),
	})

	cfg := &retry.Config{
		MaxAttempts: c.maxRetries,
		Backoff:     c.backoff.DefaultBackoff,
		RetryIf:     retryableFault,
		Context:     ctx,
		Logger:      c.logger,
	}
	// Subsequent attempts back off according to the class of the last fault.
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		var apiErr *errs.Error
		if errors.As(err, &apiErr) {
			cfg.Backoff = c.backoff.ForErrorType(string(apiErr.Type))
		}
	}

	return retry.DoWithResult(func() (*PageResult, error) {
		return c.fetchOnce(ctx, requestType, url)
	}, cfg)
}

// retryableFault retries only typed errors whose class is transient.
func retryableFault(err error) bool {
	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}
	return false
}

func (c *Client) fetchOnce(ctx context.Context, requestType ratelimit.RequestType, url string) (*PageResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeValidation, 0, "invalid url: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		c.limiter.RecordRequest(requestType, url, 0, "", elapsed, err)
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.limiter.RecordRequest(requestType, url, resp.StatusCode, "", elapsed, err)
		return nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read body: %v", err)
	}

	ok := c.limiter.RecordRequest(requestType, url, resp.StatusCode, excerpt(string(body)), elapsed, nil)

	result := &PageResult{
		Body:      string(body),
		Status:    resp.StatusCode,
		Elapsed:   elapsed,
		Throttled: !ok,
	}

	if resp.StatusCode >= 500 {
		return result, errs.New(errs.ErrorTypeServerError, resp.StatusCode, "server error")
	}
	if resp.StatusCode == 404 {
		return result, errs.New(errs.ErrorTypeNotFound, resp.StatusCode, "page not found")
	}
	return result, nil
}

func excerpt(body string) string {
	if len(body) > bodyExcerptLen {
		return body[:bodyExcerptLen]
	}
	return body
}
