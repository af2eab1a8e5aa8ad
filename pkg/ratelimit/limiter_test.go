package ratelimit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// newTestLimiter returns a limiter with sleeping stubbed out and state
// persisted under a temp directory.
func newTestLimiter(t *testing.T) (*Limiter, *time.Duration) {
	t.Helper()

	var slept time.Duration
	l := NewLimiter(DefaultConfig(), filepath.Join(t.TempDir(), "state.json"), nil)
	l.sleep = func(ctx context.Context, d time.Duration) error {
		slept += d
		return nil
	}
	return l, &slept
}

// okBody is long enough and slow enough to pass every detector check.
var okBody = strings.Repeat("ordinary page content ", 10)

func TestWaitForRequestInvalidType(t *testing.T) {
	l, _ := newTestLimiter(t)

	if _, err := l.WaitForRequest(context.Background(), RequestType("teleport"), ""); err == nil {
		t.Error("Expected an error for an unsupported request type")
	}
}

func TestWaitForRequestNonNegative(t *testing.T) {
	l, _ := newTestLimiter(t)

	for _, rt := range AllRequestTypes() {
		wait, err := l.WaitForRequest(context.Background(), rt, "https://example.com")
		if err != nil {
			t.Fatalf("Unexpected error for %s: %v", rt, err)
		}
		if wait < 0 {
			t.Errorf("Expected non-negative wait for %s, got %v", rt, wait)
		}
	}
}

func TestWaitForRequestCancellation(t *testing.T) {
	l := NewLimiter(DefaultConfig(), filepath.Join(t.TempDir(), "state.json"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.WaitForRequest(ctx, RequestTypePageLoad, ""); err == nil {
		t.Error("Expected an error when the context is already cancelled")
	}
}

func TestRecordRequestSuccess(t *testing.T) {
	l, _ := newTestLimiter(t)

	if ok := l.RecordRequest(RequestTypePageLoad, "https://example.com", 200, okBody, 2*time.Second, nil); !ok {
		t.Error("Expected a clean 200 to be recorded as success")
	}
	if l.CurrentBackoff() != 0 {
		t.Errorf("Expected no backoff after success, got %v", l.CurrentBackoff())
	}
}

func TestRecordRequestThrottleEscalatesBackoff(t *testing.T) {
	l, _ := newTestLimiter(t)
	cfg := DefaultConfig()

	if ok := l.RecordRequest(RequestTypePageLoad, "", 429, "", 2*time.Second, nil); ok {
		t.Error("Expected a 429 to be recorded as throttled")
	}
	if got := l.CurrentBackoff(); got != cfg.InitialBackoff {
		t.Errorf("Expected initial backoff %v, got %v", cfg.InitialBackoff, got)
	}

	// Each further throttle multiplies the backoff.
	l.RecordRequest(RequestTypePageLoad, "", 429, "", 2*time.Second, nil)
	if got, want := l.CurrentBackoff(), 2*cfg.InitialBackoff; got != want {
		t.Errorf("Expected backoff %v after second throttle, got %v", want, got)
	}
	l.RecordRequest(RequestTypePageLoad, "", 429, "", 2*time.Second, nil)
	if got, want := l.CurrentBackoff(), 4*cfg.InitialBackoff; got != want {
		t.Errorf("Expected backoff %v after third throttle, got %v", want, got)
	}
}

func TestBackoffNeverExceedsMaximum(t *testing.T) {
	l, _ := newTestLimiter(t)
	cfg := DefaultConfig()

	prev := time.Duration(0)
	for i := 0; i < 20; i++ {
		l.RecordRequest(RequestTypeScroll, "", 503, "", 2*time.Second, nil)
		cur := l.CurrentBackoff()
		if cur < prev {
			t.Fatalf("Backoff decreased from %v to %v without a success", prev, cur)
		}
		prev = cur
	}
	if prev != cfg.MaxBackoff {
		t.Errorf("Expected backoff to settle at %v, got %v", cfg.MaxBackoff, prev)
	}
}

func TestBackoffResetsOnlyOnSuccess(t *testing.T) {
	l, _ := newTestLimiter(t)

	l.RecordRequest(RequestTypePageLoad, "", 429, "", 2*time.Second, nil)
	if l.CurrentBackoff() == 0 {
		t.Fatal("Expected backoff after throttle")
	}

	// A transport failure is not a success and must not reset backoff.
	l.RecordRequest(RequestTypePageLoad, "", 0, "", 0, context.DeadlineExceeded)
	if l.CurrentBackoff() == 0 {
		t.Error("Expected backoff to survive a transport failure")
	}

	l.RecordRequest(RequestTypePageLoad, "", 200, okBody, 2*time.Second, nil)
	if l.CurrentBackoff() != 0 {
		t.Errorf("Expected backoff cleared after success, got %v", l.CurrentBackoff())
	}
}

func TestThrottleStretchesNextWait(t *testing.T) {
	l, slept := newTestLimiter(t)

	l.RecordRequest(RequestTypePageLoad, "", 429, "", 2*time.Second, nil)

	wait, err := l.WaitForRequest(context.Background(), RequestTypePageLoad, "")
	if err != nil {
		t.Fatal(err)
	}
	// Backoff 30s with jitter layers bounds the wait well above any base
	// page-load delay.
	if wait < 15*time.Second {
		t.Errorf("Expected backoff-dominated wait, got %v", wait)
	}
	if wait > 45*time.Second {
		t.Errorf("Wait exceeds jittered backoff ceiling: %v", wait)
	}
	if *slept != wait {
		t.Errorf("Expected the limiter to sleep the computed wait, slept %v for wait %v", *slept, wait)
	}
}

func TestRapidBurstTriggersPatternBackoff(t *testing.T) {
	l, _ := newTestLimiter(t)
	cfg := DefaultConfig()

	// Each response is individually clean; only the request rate is wrong.
	for i := 0; i < 25; i++ {
		l.RecordRequest(RequestTypeScroll, "https://example.com/feed", 200, okBody, 2*time.Second, nil)
	}

	if got := l.CurrentBackoff(); got != cfg.InitialBackoff {
		t.Fatalf("Expected the burst to arm backoff at %v, got %v", cfg.InitialBackoff, got)
	}

	wait, err := l.WaitForRequest(context.Background(), RequestTypeScroll, "https://example.com/feed")
	if err != nil {
		t.Fatal(err)
	}
	if wait <= cfg.MaxRequestDelay {
		t.Errorf("Expected wait above the base delay ceiling %v, got %v", cfg.MaxRequestDelay, wait)
	}
	if wait < 15*time.Second || wait > 45*time.Second {
		t.Errorf("Expected a backoff-dominated wait within jitter bounds, got %v", wait)
	}
}

func TestResetBackoff(t *testing.T) {
	l, _ := newTestLimiter(t)

	l.RecordRequest(RequestTypePageLoad, "", 429, "", 2*time.Second, nil)
	l.ResetBackoff()
	if l.CurrentBackoff() != 0 {
		t.Error("Expected backoff cleared after manual reset")
	}
}

func TestStatePersistsAcrossLimiters(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")

	l := NewLimiter(DefaultConfig(), statePath, nil)
	l.RecordRequest(RequestTypePageLoad, "https://example.com/some-profile", 200, okBody, 2*time.Second, nil)
	l.RecordRequest(RequestTypeScroll, "https://example.com/some-profile", 429, "", 2*time.Second, nil)

	reloaded := NewLimiter(DefaultConfig(), statePath, nil)
	if got := reloaded.CurrentBackoff(); got != DefaultConfig().InitialBackoff {
		t.Errorf("Expected persisted backoff %v, got %v", DefaultConfig().InitialBackoff, got)
	}
	stats := reloaded.Statistics()
	if stats.TotalRequestsHour != 2 {
		t.Errorf("Expected 2 restored records, got %d", stats.TotalRequestsHour)
	}
	if stats.RateLimitedHour != 1 {
		t.Errorf("Expected 1 restored throttle, got %d", stats.RateLimitedHour)
	}
}

func TestStateFileNeverContainsRawURLs(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	url := "https://facebook.com/secret-profile?token=abc123"

	l := NewLimiter(DefaultConfig(), statePath, nil)
	l.RecordRequest(RequestTypePageLoad, url, 200, okBody, 2*time.Second, nil)

	data, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret-profile") || strings.Contains(string(data), "abc123") {
		t.Error("Raw URL leaked into the persisted state file")
	}
	if !strings.Contains(string(data), hashURL(url)) {
		t.Error("Expected the URL hash in the persisted state file")
	}
}

func TestPersistedSnapshotIsBounded(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")

	l := NewLimiter(DefaultConfig(), statePath, nil)
	for i := 0; i < persistedSnapshotLimit+20; i++ {
		l.RecordRequest(RequestTypeScroll, "https://example.com", 200, okBody, 2*time.Second, nil)
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatal(err)
	}
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatal(err)
	}
	if len(state.RequestHistory) > persistedSnapshotLimit {
		t.Errorf("Expected at most %d persisted records, got %d", persistedSnapshotLimit, len(state.RequestHistory))
	}
}

func TestCorruptStateFileDegradesGracefully(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(statePath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLimiter(DefaultConfig(), statePath, nil)
	if l.CurrentBackoff() != 0 {
		t.Error("Expected a fresh limiter after a corrupt state file")
	}
	// The limiter must still operate and overwrite the bad snapshot.
	if ok := l.RecordRequest(RequestTypePageLoad, "", 200, okBody, 2*time.Second, nil); !ok {
		t.Error("Expected recording to work after a corrupt load")
	}
}

func TestHashURL(t *testing.T) {
	if hashURL("") != "" {
		t.Error("Expected empty hash for empty URL")
	}
	h := hashURL("https://example.com")
	if len(h) != 16 {
		t.Errorf("Expected 16 hex chars, got %d", len(h))
	}
	if h != hashURL("https://example.com") {
		t.Error("Expected hashing to be deterministic")
	}
}

func TestStatisticsCountsByType(t *testing.T) {
	l, _ := newTestLimiter(t)

	l.RecordRequest(RequestTypePageLoad, "", 200, okBody, 2*time.Second, nil)
	l.RecordRequest(RequestTypeScroll, "", 200, okBody, 2*time.Second, nil)
	l.RecordRequest(RequestTypeScroll, "", 200, okBody, 2*time.Second, nil)

	stats := l.Statistics()
	if stats.TotalRequestsHour != 3 {
		t.Errorf("Expected 3 requests, got %d", stats.TotalRequestsHour)
	}
	if stats.RequestTypes[RequestTypeScroll] != 2 {
		t.Errorf("Expected 2 scroll requests, got %d", stats.RequestTypes[RequestTypeScroll])
	}
	if stats.SuccessRateHour != 1.0 {
		t.Errorf("Expected 100%% success rate, got %f", stats.SuccessRateHour)
	}
}
