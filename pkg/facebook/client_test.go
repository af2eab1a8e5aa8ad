package facebook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postwriter/pkg/config"
	errs "postwriter/pkg/errors"
	"postwriter/pkg/ratelimit"
	"postwriter/pkg/retry"
)

// testLimiter paces in microseconds so tests never block, with ceilings
// high enough that the pattern detector stays quiet.
func testLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()
	cfg := ratelimit.Config{
		MinRequestDelay:      time.Millisecond,
		MaxRequestDelay:      2 * time.Millisecond,
		ScrollDelay:          time.Millisecond,
		PageLoadDelay:        time.Millisecond,
		MaxRequestsPerMinute: 10000,
		MaxRequestsPerHour:   100000,
		InitialBackoff:       5 * time.Millisecond,
		MaxBackoff:           20 * time.Millisecond,
		BackoffMultiplier:    2.0,
	}
	return ratelimit.NewLimiter(cfg, filepath.Join(t.TempDir(), "state.json"), nil)
}

func newTestClient(t *testing.T, limiter *ratelimit.Limiter) *Client {
	t.Helper()
	c := NewClient(&config.FacebookConfig{
		UserAgent:      "test-agent",
		SessionCookie:  "c_user=123; xs=secret",
		RequestTimeout: 5 * time.Second,
	}, limiter, nil)

	// Millisecond retry delays keep the failing-path tests fast.
	fast := &retry.ConstantBackoff{Delay: time.Millisecond}
	c.backoff = &retry.ErrorTypeBackoff{
		NetworkErrorBackoff: fast,
		RateLimitBackoff:    fast,
		ServerErrorBackoff:  fast,
		DefaultBackoff:      fast,
	}
	return c
}

// slowOK writes a plausible page after a delay long enough to not look
// like a cached error to the throttle detector.
func slowOK(w http.ResponseWriter, _ *http.Request) {
	time.Sleep(350 * time.Millisecond)
	w.Write([]byte("<html><body>" + strings.Repeat("<p>regular feed content</p>", 20) + "</body></html>"))
}

func TestFetchPageSuccess(t *testing.T) {
	var gotUA, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
		slowOK(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, testLimiter(t))
	result, err := c.FetchPage(context.Background(), ratelimit.RequestTypePageLoad, srv.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.Status)
	assert.False(t, result.Throttled)
	assert.Contains(t, result.Body, "regular feed content")
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "c_user=123; xs=secret", gotCookie)
}

func TestFetchPageThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	limiter := testLimiter(t)
	c := newTestClient(t, limiter)

	result, err := c.FetchPage(context.Background(), ratelimit.RequestTypeScroll, srv.URL)
	require.NoError(t, err)
	assert.True(t, result.Throttled)
	assert.Greater(t, limiter.CurrentBackoff(), time.Duration(0))
}

func TestFetchPageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, testLimiter(t))
	result, err := c.FetchPage(context.Background(), ratelimit.RequestTypePageLoad, srv.URL)
	require.Error(t, err)
	require.NotNil(t, result)

	var typed *errs.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, errs.ErrorTypeServerError, typed.Type)
	assert.Equal(t, http.StatusInternalServerError, typed.Code)
}

func TestFetchPageNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := newTestClient(t, testLimiter(t))
	_, err := c.FetchPage(context.Background(), ratelimit.RequestTypePageLoad, srv.URL)
	require.Error(t, err)

	var typed *errs.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, errs.ErrorTypeNotFound, typed.Type)
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		slowOK(w, r)
	}))
	defer srv.Close()

	limiter := testLimiter(t)
	c := newTestClient(t, limiter)
	c.maxRetries = 3

	result, err := c.FetchPage(context.Background(), ratelimit.RequestTypePageLoad, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	// Every attempt shows up in the limiter's history.
	assert.Equal(t, 3, limiter.Statistics().TotalRequestsHour)
}

func TestFetchPageDoesNotRetryNotFound(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, testLimiter(t))
	c.maxRetries = 3

	_, err := c.FetchPage(context.Background(), ratelimit.RequestTypePageLoad, srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestFetchPageTransportError(t *testing.T) {
	limiter := testLimiter(t)
	c := newTestClient(t, limiter)

	_, err := c.FetchPage(context.Background(), ratelimit.RequestTypePageLoad, "http://127.0.0.1:1")
	require.Error(t, err)

	var typed *errs.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, errs.ErrorTypeNetwork, typed.Type)
	// The failed attempt is still recorded.
	assert.Equal(t, 1, limiter.Statistics().TotalRequestsHour)
}
