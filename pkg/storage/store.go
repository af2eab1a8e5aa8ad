// Package storage persists posts and templates as JSON record files. The
// rest of the system treats it as a simple record store: load, save,
// append.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"postwriter/pkg/models"
)

const (
	postsFile     = "posts.json"
	templatesFile = "templates.json"
)

// Store is a JSON-file-backed record store for posts and templates.
type Store struct {
	dataDir string
	mu      sync.Mutex
}

// NewStore creates a store rooted at dataDir, creating it if needed.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

// SavePosts replaces the stored post set.
func (s *Store) SavePosts(posts []models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.dataDir, postsFile), posts)
}

// LoadPosts returns the stored posts; a missing file yields an empty set.
func (s *Store) LoadPosts() ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var posts []models.Post
	if err := readJSON(filepath.Join(s.dataDir, postsFile), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// AppendTemplates adds templates to the stored set. Templates are
// append-only; regenerated analysis creates new rows.
func (s *Store) AppendTemplates(templates []models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []models.Template
	if err := readJSON(filepath.Join(s.dataDir, templatesFile), &existing); err != nil {
		return err
	}
	existing = append(existing, templates...)
	return writeJSON(filepath.Join(s.dataDir, templatesFile), existing)
}

// Templates returns the stored templates; a missing file yields an empty set.
func (s *Store) Templates() ([]models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var templates []models.Template
	if err := readJSON(filepath.Join(s.dataDir, templatesFile), &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// writeJSON writes v atomically via a temp file rename.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
