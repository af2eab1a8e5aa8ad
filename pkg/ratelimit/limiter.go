package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	errs "postwriter/pkg/errors"
	"postwriter/pkg/logger"
	"postwriter/pkg/retry"
)

const (
	// historyRetention bounds the in-memory request history.
	historyRetention = 24 * time.Hour
	// patternWindow is how many recent records the pattern check considers.
	patternWindow = 50
)

// Limiter paces outbound requests and learns from their outcomes. Callers
// invoke WaitForRequest before every network call and RecordRequest after it
// completes; throttling is signaled through booleans and growing wait times,
// never through errors.
type Limiter struct {
	cfg      Config
	detector *Detector
	logger   logger.Logger

	mu                  sync.Mutex
	history             []RequestRecord
	lastRequestTime     time.Time
	currentBackoff      time.Duration
	consecutiveFailures int

	statePath string
	// sleep is swappable so tests can observe computed waits without
	// actually pausing.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a limiter and loads any persisted state from
// statePath. An empty statePath uses the default dotfile in the user's home
// directory. Load failures degrade to in-memory operation.
func NewLimiter(cfg Config, statePath string, log logger.Logger) *Limiter {
	if log == nil {
		log = logger.GetLogger()
	}
	if statePath == "" {
		statePath = defaultStatePath()
	}

	l := &Limiter{
		cfg:       cfg,
		detector:  NewDetector(cfg),
		logger:    log,
		statePath: statePath,
		sleep:     retry.Wait,
	}
	if err := l.loadState(); err != nil {
		log.WarnWithFields("failed to load rate limiter state", map[string]interface{}{
			"path":  statePath,
			"error": err.Error(),
		})
	}
	return l
}

// WaitForRequest blocks for the appropriate pacing delay before a request of
// the given type and returns the time actually waited. The wait is
// cancellable through ctx. An unsupported request type is a programmer
// error and returns a validation error.
func (l *Limiter) WaitForRequest(ctx context.Context, t RequestType, url string) (time.Duration, error) {
	if !t.Valid() {
		return 0, errs.New(errs.ErrorTypeValidation, 0, "unsupported request type %q", t)
	}

	l.mu.Lock()
	now := time.Now()

	baseDelay := l.baseDelay(t)
	backoffDelay := l.backoffDelay()

	var elapsed time.Duration
	if !l.lastRequestTime.IsZero() {
		elapsed = now.Sub(l.lastRequestTime)
	}

	minDelay := baseDelay
	if backoffDelay > minDelay {
		minDelay = backoffDelay
	}
	wait := minDelay - elapsed
	if wait < 0 {
		wait = 0
	}
	// Final jitter layer so request timing never looks periodic.
	wait = time.Duration(float64(wait) * uniform(0.8, 1.2))

	failures := l.consecutiveFailures
	l.mu.Unlock()

	l.logger.DebugWithFields("rate limit wait", map[string]interface{}{
		"request_type":         string(t),
		"url_hash":             hashURL(url),
		"base_delay_ms":        baseDelay.Milliseconds(),
		"backoff_delay_ms":     backoffDelay.Milliseconds(),
		"wait_ms":              wait.Milliseconds(),
		"consecutive_failures": failures,
	})

	if wait > 0 {
		// Sleep outside the mutex so concurrent recorders are not stalled
		// behind a multi-second pause.
		if err := l.sleep(ctx, wait); err != nil {
			return 0, err
		}
	}

	l.mu.Lock()
	l.lastRequestTime = time.Now()
	l.mu.Unlock()

	return wait, nil
}

// RecordRequest records the outcome of a completed (or failed) request and
// returns whether it was successful and unthrottled. status is 0 when no
// response was received; reqErr carries transport faults.
func (l *Limiter) RecordRequest(t RequestType, url string, status int, bodyExcerpt string, elapsed time.Duration, reqErr error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	isRateLimited, reason := l.detector.AnalyzeResponse(bodyExcerpt, status, elapsed)

	success := status >= 200 && status < 300 && !isRateLimited && reqErr == nil

	record := RequestRecord{
		Timestamp:      now,
		RequestType:    t,
		URL:            url,
		ResponseStatus: status,
		ResponseTime:   elapsed,
		Success:        success,
		RateLimited:    isRateLimited,
	}
	if reqErr != nil {
		record.ErrorMessage = reqErr.Error()
	}
	l.history = append(l.history, record)
	l.pruneHistory(now)

	if success {
		l.consecutiveFailures = 0
		l.currentBackoff = 0
	} else {
		l.consecutiveFailures++
		if isRateLimited {
			l.increaseBackoff()
		}
	}

	fields := map[string]interface{}{
		"request_type":         string(t),
		"url_hash":             hashURL(url),
		"success":              success,
		"rate_limited":         isRateLimited,
		"response_status":      status,
		"response_time_ms":     elapsed.Milliseconds(),
		"consecutive_failures": l.consecutiveFailures,
	}
	if isRateLimited {
		fields["reason"] = reason
		fields["current_backoff_s"] = l.currentBackoff.Seconds()
		l.logger.WarnWithFields("rate limit detected", fields)
	} else {
		l.logger.DebugWithFields("request recorded", fields)
	}

	// Pattern problems escalate backoff independently of this request's
	// own outcome.
	recent := l.history
	if len(recent) > patternWindow {
		recent = recent[len(recent)-patternWindow:]
	}
	if slowDown, patternReason := l.detector.AnalyzePattern(recent); slowDown {
		l.logger.WarnWithFields("request pattern warning", map[string]interface{}{
			"reason":         patternReason,
			"total_requests": len(l.history),
		})
		l.increaseBackoff()
	}

	if err := l.saveState(); err != nil {
		l.logger.WarnWithFields("failed to save rate limiter state", map[string]interface{}{
			"path":  l.statePath,
			"error": err.Error(),
		})
	}

	return success && !isRateLimited
}

// baseDelay computes the per-type pacing delay. Callers must hold l.mu (the
// shared rand source is the only contention point otherwise).
func (l *Limiter) baseDelay(t RequestType) time.Duration {
	var base, variance time.Duration
	switch t {
	case RequestTypeScroll:
		base = l.cfg.ScrollDelay
		variance = l.cfg.ScrollDelayVariance
	case RequestTypePageLoad:
		base = l.cfg.PageLoadDelay
		variance = l.cfg.PageLoadVariance
	case RequestTypeLogin:
		// Login endpoints are the most detection-sensitive.
		base = l.cfg.MaxRequestDelay
		variance = 2 * time.Second
	default:
		base = time.Duration(uniform(float64(l.cfg.MinRequestDelay), float64(l.cfg.MaxRequestDelay)))
		variance = time.Second
	}

	d := base + time.Duration(uniform(-float64(variance), float64(variance)))
	if d < 0 {
		d = 0
	}
	return d
}

// backoffDelay returns the active backoff with jitter, or 0 when none.
// Jitter prevents synchronized retry storms across concurrent callers.
func (l *Limiter) backoffDelay() time.Duration {
	if l.currentBackoff <= 0 {
		return 0
	}
	return time.Duration(float64(l.currentBackoff) * uniform(0.8, 1.2))
}

// increaseBackoff escalates the active backoff. It is never decreased by a
// timer; only a recorded success resets it.
func (l *Limiter) increaseBackoff() {
	if l.currentBackoff <= 0 {
		l.currentBackoff = l.cfg.InitialBackoff
	} else {
		l.currentBackoff = time.Duration(float64(l.currentBackoff) * l.cfg.BackoffMultiplier)
		if l.currentBackoff > l.cfg.MaxBackoff {
			l.currentBackoff = l.cfg.MaxBackoff
		}
	}

	l.logger.WarnWithFields("backoff increased", map[string]interface{}{
		"new_backoff_s":        l.currentBackoff.Seconds(),
		"consecutive_failures": l.consecutiveFailures,
		"max_backoff_s":        l.cfg.MaxBackoff.Seconds(),
	})
}

func (l *Limiter) pruneHistory(now time.Time) {
	cutoff := now.Add(-historyRetention)
	i := 0
	for i < len(l.history) && !l.history[i].Timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		l.history = append(l.history[:0], l.history[i:]...)
	}
}

// ResetBackoff clears the active backoff after user intervention.
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.currentBackoff
	l.currentBackoff = 0
	l.consecutiveFailures = 0

	l.logger.InfoWithFields("backoff manually reset", map[string]interface{}{
		"old_backoff_s": old.Seconds(),
	})
}

// Statistics is an aggregate view over the recent request history.
type Statistics struct {
	TotalRequestsHour      int                 `json:"total_requests_hour"`
	TotalRequestsMinute    int                 `json:"total_requests_minute"`
	SuccessfulRequestsHour int                 `json:"successful_requests_hour"`
	RateLimitedHour        int                 `json:"rate_limited_requests_hour"`
	SuccessRateHour        float64             `json:"success_rate_hour"`
	ConsecutiveFailures    int                 `json:"consecutive_failures"`
	CurrentBackoff         time.Duration       `json:"current_backoff"`
	LastRequestTime        time.Time           `json:"last_request_time"`
	RequestTypes           map[RequestType]int `json:"request_types"`
}

// Statistics returns aggregate counters over the last hour and minute.
func (l *Limiter) Statistics() Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	stats := Statistics{
		ConsecutiveFailures: l.consecutiveFailures,
		CurrentBackoff:      l.currentBackoff,
		LastRequestTime:     l.lastRequestTime,
		RequestTypes:        make(map[RequestType]int),
	}
	for _, t := range AllRequestTypes() {
		stats.RequestTypes[t] = 0
	}

	for _, r := range l.history {
		age := now.Sub(r.Timestamp)
		if age >= time.Hour {
			continue
		}
		stats.TotalRequestsHour++
		stats.RequestTypes[r.RequestType]++
		if r.Success {
			stats.SuccessfulRequestsHour++
		}
		if r.RateLimited {
			stats.RateLimitedHour++
		}
		if age < time.Minute {
			stats.TotalRequestsMinute++
		}
	}

	if stats.TotalRequestsHour > 0 {
		stats.SuccessRateHour = float64(stats.SuccessfulRequestsHour) / float64(stats.TotalRequestsHour)
	}
	return stats
}

// CurrentBackoff returns the active backoff delay.
func (l *Limiter) CurrentBackoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentBackoff
}

func uniform(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}
