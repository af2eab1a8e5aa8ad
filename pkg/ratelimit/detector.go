package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// Detection thresholds. Empirically chosen against real blocked sessions;
// kept as constants rather than re-derived.
const (
	fastRedirectThreshold = 500 * time.Millisecond
	fastResponseThreshold = 300 * time.Millisecond
	minimalBodyLength     = 100
)

// facebookBlockPhrases are block-page fragments specific to the target
// platform, checked in addition to the configured keyword list.
var facebookBlockPhrases = []string{
	"temporarily blocked from posting",
	"we limit how often you can post",
	"this feature isn't available right now",
	"please verify your identity",
	"unusual activity on your account",
}

// Detector decides whether a completed response, or a recent request
// pattern, signals throttling by the remote service.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given policy.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// AnalyzeResponse inspects a completed response for throttling signals.
// Checks are ordered; the first match wins.
func (d *Detector) AnalyzeResponse(body string, status int, responseTime time.Duration) (bool, string) {
	switch status {
	case 429, 503, 420:
		return true, fmt.Sprintf("HTTP %d - rate limit status code", status)
	}

	// Fast redirects usually mean the real page was never served.
	if (status == 301 || status == 302) && responseTime < fastRedirectThreshold {
		return true, "suspicious fast redirect - possible blocking"
	}

	bodyLower := strings.ToLower(body)
	if body != "" {
		for _, keyword := range d.cfg.RateLimitKeywords {
			if strings.Contains(bodyLower, keyword) {
				return true, fmt.Sprintf("rate limit keyword detected: %s", keyword)
			}
		}
	}

	if responseTime < fastResponseThreshold && status == 200 {
		return true, "unusually fast response - possible cached error"
	}

	if body != "" && len(strings.TrimSpace(body)) < minimalBodyLength {
		return true, "minimal content - possible error page"
	}

	if body != "" {
		for _, phrase := range facebookBlockPhrases {
			if strings.Contains(bodyLower, phrase) {
				return true, fmt.Sprintf("facebook blocking indicator: %s", phrase)
			}
		}
	}

	return false, "no rate limiting detected"
}

// AnalyzePattern evaluates recent request records for patterns that warrant
// slowing down even when no single response looked throttled.
func (d *Detector) AnalyzePattern(recent []RequestRecord) (bool, string) {
	if len(recent) == 0 {
		return false, "no requests to analyze"
	}

	now := time.Now()
	var lastMinute, lastHour []RequestRecord
	for _, r := range recent {
		age := now.Sub(r.Timestamp)
		if age < time.Minute {
			lastMinute = append(lastMinute, r)
		}
		if age < time.Hour {
			lastHour = append(lastHour, r)
		}
	}

	if len(lastMinute) > d.cfg.MaxRequestsPerMinute {
		return true, fmt.Sprintf("exceeded %d requests per minute", d.cfg.MaxRequestsPerMinute)
	}
	if len(lastHour) > d.cfg.MaxRequestsPerHour {
		return true, fmt.Sprintf("exceeded %d requests per hour", d.cfg.MaxRequestsPerHour)
	}

	failures := 0
	for _, r := range lastMinute {
		if !r.Success || r.RateLimited {
			failures++
		}
	}
	if len(lastMinute) > 5 && float64(failures)/float64(len(lastMinute)) > 0.3 {
		return true, fmt.Sprintf("high failure rate: %d/%d in last minute", failures, len(lastMinute))
	}

	rateLimited := 0
	for _, r := range lastHour {
		if r.RateLimited {
			rateLimited++
		}
	}
	if rateLimited > 3 {
		return true, fmt.Sprintf("multiple rate limit detections: %d in last hour", rateLimited)
	}

	return false, "request pattern appears normal"
}
