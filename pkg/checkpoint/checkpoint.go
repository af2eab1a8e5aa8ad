// Package checkpoint makes scraping sessions resumable. A checkpoint
// remembers how far pagination got on a profile and which posts were
// already collected, so an interrupted run can pick up where it stopped.
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"postwriter/pkg/logger"
)

// Checkpoint is the state of one scraping session.
type Checkpoint struct {
	ProfileHash    string          `json:"profile_hash"` // profile URL is not stored raw
	LastPage       int             `json:"last_page"`
	PageCursor     string          `json:"page_cursor"`
	SeenPosts      map[string]bool `json:"seen_posts"` // post ID -> collected
	TotalCollected int             `json:"total_collected"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// Manager handles checkpoint persistence for one profile.
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a checkpoint manager under dataDir for the given
// profile URL.
func NewManager(dataDir, profileURL string) (*Manager, error) {
	dir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		path:   filepath.Join(dir, fmt.Sprintf("%s.checkpoint.json", hashProfile(profileURL))),
		logger: logger.GetLogger(),
	}, nil
}

func hashProfile(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

// Create starts a fresh checkpoint for the profile.
func (m *Manager) Create(profileURL string) (*Checkpoint, error) {
	cp := &Checkpoint{
		ProfileHash: hashProfile(profileURL),
		SeenPosts:   make(map[string]bool),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Version:     1,
	}
	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}
	return cp, nil
}

// Load loads an existing checkpoint, or nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.SeenPosts == nil {
		cp.SeenPosts = make(map[string]bool)
	}

	m.logger.InfoWithFields("checkpoint loaded", map[string]interface{}{
		"total_collected": cp.TotalCollected,
		"last_page":       cp.LastPage,
		"updated_at":      cp.UpdatedAt,
	})
	return &cp, nil
}

// Save writes the checkpoint atomically.
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	tmpPath := m.path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Delete removes the checkpoint file.
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Exists reports whether a checkpoint file exists.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// RecordPost marks a post as collected and persists progress.
func (m *Manager) RecordPost(cp *Checkpoint, postID string) error {
	if cp.SeenPosts[postID] {
		return nil
	}
	cp.SeenPosts[postID] = true
	cp.TotalCollected++
	return m.Save(cp)
}

// UpdateProgress records pagination progress.
func (m *Manager) UpdateProgress(cp *Checkpoint, cursor string, page int) error {
	cp.PageCursor = cursor
	cp.LastPage = page
	return m.Save(cp)
}

// HasSeen reports whether a post was already collected.
func (cp *Checkpoint) HasSeen(postID string) bool {
	return cp.SeenPosts[postID]
}
