// Package auth stores the Facebook session cookie used for authenticated
// scraping. The system keychain is preferred; an encrypted file and the
// environment serve as fallbacks.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"
)

// ErrNotFound is returned when no session is stored.
var ErrNotFound = errors.New("no stored session")

// Session holds the cookie material for an authenticated scraping session.
type Session struct {
	Cookie       string    `json:"cookie"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// SessionStore stores and retrieves the scraping session.
type SessionStore interface {
	Store(session *Session) error
	Retrieve() (*Session, error)
	Delete() error
	Exists() bool
}

// Manager chains session stores with fallback.
type Manager struct {
	stores []SessionStore
}

// NewManager creates a manager with keychain, encrypted file, and
// environment backends, in that order of preference.
func NewManager() (*Manager, error) {
	var stores []SessionStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "session.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves the session using the first store that accepts it.
func (m *Manager) Store(session *Session) error {
	if session == nil || session.Cookie == "" {
		return errors.New("session cookie is required")
	}
	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(session); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Retrieve returns the session from the first store that has one.
func (m *Manager) Retrieve() (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Retrieve(); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, ErrNotFound
}

// Delete removes the session from every store.
func (m *Manager) Delete() error {
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// EnvironmentStore reads the session from POSTWRITER_SESSION_COOKIE. It is
// read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(*Session) error {
	return errors.New("environment store is read-only")
}

func (e *EnvironmentStore) Retrieve() (*Session, error) {
	cookie := os.Getenv("POSTWRITER_SESSION_COOKIE")
	if cookie == "" {
		return nil, ErrNotFound
	}
	return &Session{
		Cookie:    cookie,
		UserAgent: os.Getenv("POSTWRITER_USER_AGENT"),
	}, nil
}

func (e *EnvironmentStore) Delete() error { return nil }

func (e *EnvironmentStore) Exists() bool {
	return os.Getenv("POSTWRITER_SESSION_COOKIE") != ""
}

// PromptSecret reads a secret from the terminal without echo.
func PromptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return string(value), nil
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".config", "postwriter")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
