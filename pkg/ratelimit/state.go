package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// persistedSnapshotLimit caps how many records hit disk.
const persistedSnapshotLimit = 100

// persistedState is the on-disk snapshot format. Request URLs are stored
// only as truncated SHA-256 hashes so profile URLs and query tokens never
// reach disk.
type persistedState struct {
	LastRequestTime     *string           `json:"last_request_time"`
	CurrentBackoff      float64           `json:"current_backoff"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	RequestHistory      []persistedRecord `json:"request_history"`
}

type persistedRecord struct {
	Timestamp      string  `json:"timestamp"`
	RequestType    string  `json:"request_type"`
	URLHash        string  `json:"url_hash"`
	ResponseStatus int     `json:"response_status"`
	ResponseTime   float64 `json:"response_time"`
	Success        bool    `json:"success"`
	RateLimited    bool    `json:"rate_limited"`
}

// hashURL returns the first 16 hex chars of the URL's SHA-256, or empty for
// an empty URL.
func hashURL(url string) string {
	if url == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".postwriter_rate_limits"
	}
	return filepath.Join(home, ".postwriter_rate_limits")
}

// saveState writes the full JSON snapshot atomically. Callers must hold l.mu.
func (l *Limiter) saveState() error {
	state := persistedState{
		CurrentBackoff:      l.currentBackoff.Seconds(),
		ConsecutiveFailures: l.consecutiveFailures,
		RequestHistory:      make([]persistedRecord, 0, persistedSnapshotLimit),
	}
	if !l.lastRequestTime.IsZero() {
		s := l.lastRequestTime.Format(time.RFC3339Nano)
		state.LastRequestTime = &s
	}

	history := l.history
	if len(history) > persistedSnapshotLimit {
		history = history[len(history)-persistedSnapshotLimit:]
	}
	for _, r := range history {
		state.RequestHistory = append(state.RequestHistory, persistedRecord{
			Timestamp:      r.Timestamp.Format(time.RFC3339Nano),
			RequestType:    string(r.RequestType),
			URLHash:        hashURL(r.URL),
			ResponseStatus: r.ResponseStatus,
			ResponseTime:   r.ResponseTime.Seconds(),
			Success:        r.Success,
			RateLimited:    r.RateLimited,
		})
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	// Write-then-rename so a crash never leaves a torn snapshot.
	tmpPath := l.statePath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpPath, l.statePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// loadState restores a persisted snapshot. Missing files are not an error;
// corrupt snapshots are reported and treated as no prior state.
func (l *Limiter) loadState() error {
	data, err := os.ReadFile(l.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}

	if state.LastRequestTime != nil {
		if t, err := time.Parse(time.RFC3339Nano, *state.LastRequestTime); err == nil {
			l.lastRequestTime = t
		}
	}
	l.currentBackoff = time.Duration(state.CurrentBackoff * float64(time.Second))
	l.consecutiveFailures = state.ConsecutiveFailures

	cutoff := time.Now().Add(-historyRetention)
	for _, pr := range state.RequestHistory {
		ts, err := time.Parse(time.RFC3339Nano, pr.Timestamp)
		if err != nil || !ts.After(cutoff) {
			continue // skip invalid or expired records
		}
		t := RequestType(pr.RequestType)
		if !t.Valid() {
			continue
		}
		l.history = append(l.history, RequestRecord{
			Timestamp:      ts,
			RequestType:    t,
			URL:            fmt.Sprintf("<hash:%s>", pr.URLHash),
			ResponseStatus: pr.ResponseStatus,
			ResponseTime:   time.Duration(pr.ResponseTime * float64(time.Second)),
			Success:        pr.Success,
			RateLimited:    pr.RateLimited,
		})
	}

	l.logger.InfoWithFields("loaded rate limiter state", map[string]interface{}{
		"recent_requests": len(l.history),
		"backoff_s":       l.currentBackoff.Seconds(),
	})
	return nil
}
