package ratelimit

import (
	"time"
)

// RequestType classifies outbound calls; each type carries its own pacing
// band because different actions draw different levels of scrutiny.
type RequestType string

const (
	RequestTypePageLoad      RequestType = "page_load"
	RequestTypeScroll        RequestType = "scroll"
	RequestTypeClick         RequestType = "click"
	RequestTypeAPICall       RequestType = "api_call"
	RequestTypeLogin         RequestType = "login"
	RequestTypeProfileAccess RequestType = "profile_access"
)

// requestTypes is the closed set of supported types.
var requestTypes = map[RequestType]bool{
	RequestTypePageLoad:      true,
	RequestTypeScroll:        true,
	RequestTypeClick:         true,
	RequestTypeAPICall:       true,
	RequestTypeLogin:         true,
	RequestTypeProfileAccess: true,
}

// Valid reports whether t is a supported request type.
func (t RequestType) Valid() bool {
	return requestTypes[t]
}

// AllRequestTypes returns the supported request types in a stable order.
func AllRequestTypes() []RequestType {
	return []RequestType{
		RequestTypePageLoad,
		RequestTypeScroll,
		RequestTypeClick,
		RequestTypeAPICall,
		RequestTypeLogin,
		RequestTypeProfileAccess,
	}
}

// Config holds the pacing policy. Values are tuned against real scraping
// sessions; changing them changes detection behavior, not just speed.
type Config struct {
	MinRequestDelay time.Duration
	MaxRequestDelay time.Duration

	ScrollDelay         time.Duration
	ScrollDelayVariance time.Duration

	PageLoadDelay    time.Duration
	PageLoadVariance time.Duration

	PostProcessingDelay    time.Duration
	PostProcessingVariance time.Duration

	MaxRequestsPerMinute int
	MaxRequestsPerHour   int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// Case-insensitive phrases that mark a response body as throttled.
	RateLimitKeywords []string
}

// DefaultConfig returns the tuned default pacing policy.
func DefaultConfig() Config {
	return Config{
		MinRequestDelay:        2 * time.Second,
		MaxRequestDelay:        8 * time.Second,
		ScrollDelay:            3 * time.Second,
		ScrollDelayVariance:    1500 * time.Millisecond,
		PageLoadDelay:          5 * time.Second,
		PageLoadVariance:       2 * time.Second,
		PostProcessingDelay:    1500 * time.Millisecond,
		PostProcessingVariance: 800 * time.Millisecond,
		MaxRequestsPerMinute:   20,
		MaxRequestsPerHour:     300,
		InitialBackoff:         30 * time.Second,
		MaxBackoff:             30 * time.Minute,
		BackoffMultiplier:      2.0,
		RateLimitKeywords: []string{
			"rate limit",
			"too many requests",
			"temporarily blocked",
			"please try again later",
			"unusual traffic",
			"verification required",
			"checkpoint",
			"suspicious activity",
		},
	}
}

// RequestRecord is one observed network attempt. Records are immutable once
// created and pruned from memory after 24 hours.
type RequestRecord struct {
	Timestamp      time.Time
	RequestType    RequestType
	URL            string // raw URL, never persisted; only its hash hits disk
	ResponseStatus int
	ResponseTime   time.Duration
	Success        bool
	RateLimited    bool
	ErrorMessage   string
}
