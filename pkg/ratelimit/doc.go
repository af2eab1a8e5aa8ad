// Package ratelimit provides adaptive request pacing for profile scraping.
//
// The limiter wraps every outbound call: WaitForRequest blocks for a
// per-type pacing delay before the call, and RecordRequest feeds the outcome
// back afterwards. A Detector inspects each response (status code, body
// excerpt, timing) and the rolling request pattern for throttling signals;
// detected throttling escalates an exponential backoff that only a recorded
// success resets.
//
// Usage:
//
//	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig(), "", log)
//
//	limiter.WaitForRequest(ctx, ratelimit.RequestTypePageLoad, url)
//	resp, elapsed, err := fetch(url)
//	ok := limiter.RecordRequest(ratelimit.RequestTypePageLoad, url,
//		resp.StatusCode, excerpt(resp), elapsed, err)
//	if !ok {
//		// throttled or failed; the next wait will be longer
//	}
//
// Throttling is an expected runtime condition, not an error: it is surfaced
// through the boolean result and growing wait times. The limiter persists a
// bounded request history to a JSON snapshot (URLs stored only as truncated
// SHA-256 hashes) and degrades to in-memory operation when disk I/O fails.
package ratelimit
