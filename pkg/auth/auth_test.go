package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv("POSTWRITER_SESSION_COOKIE", "")
	assert.False(t, store.Exists())
	_, err := store.Retrieve()
	assert.ErrorIs(t, err, ErrNotFound)

	t.Setenv("POSTWRITER_SESSION_COOKIE", "c_user=1; xs=abc")
	t.Setenv("POSTWRITER_USER_AGENT", "env-agent")
	assert.True(t, store.Exists())

	session, err := store.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "c_user=1; xs=abc", session.Cookie)
	assert.Equal(t, "env-agent", session.UserAgent)

	// Read-only: writes are refused, deletes are no-ops.
	assert.Error(t, store.Store(&Session{Cookie: "x"}))
	assert.NoError(t, store.Delete())
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("POSTWRITER_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "session.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	assert.False(t, store.Exists())
	_, err = store.Retrieve()
	assert.ErrorIs(t, err, ErrNotFound)

	in := &Session{Cookie: "c_user=42; xs=topsecret", UserAgent: "ua"}
	require.NoError(t, store.Store(in))
	assert.True(t, store.Exists())

	out, err := store.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, in.Cookie, out.Cookie)
	assert.Equal(t, in.UserAgent, out.UserAgent)
}

func TestEncryptedFileStoreCiphertextOnDisk(t *testing.T) {
	t.Setenv("POSTWRITER_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "session.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Session{Cookie: "c_user=42; xs=topsecret"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "topsecret"), "cookie must not be stored in the clear")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	t.Setenv("POSTWRITER_PASSPHRASE", "first")
	require.NoError(t, store.Store(&Session{Cookie: "c_user=42"}))

	t.Setenv("POSTWRITER_PASSPHRASE", "second")
	_, err = store.Retrieve()
	require.Error(t, err)
}

func TestEncryptedFileStoreCorruptFile(t *testing.T) {
	t.Setenv("POSTWRITER_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "session.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))
	_, err = store.Retrieve()
	require.Error(t, err)
}

func TestEncryptedFileStoreDelete(t *testing.T) {
	t.Setenv("POSTWRITER_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "session.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Session{Cookie: "c_user=42"}))

	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())
	// Deleting twice is fine.
	require.NoError(t, store.Delete())
}

func TestManagerRejectsEmptySession(t *testing.T) {
	m := &Manager{stores: []SessionStore{NewEnvironmentStore()}}

	assert.Error(t, m.Store(nil))
	assert.Error(t, m.Store(&Session{}))
}

func TestManagerFallsBackToEnvironment(t *testing.T) {
	t.Setenv("POSTWRITER_SESSION_COOKIE", "c_user=9")

	m := &Manager{stores: []SessionStore{NewEnvironmentStore()}}
	session, err := m.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "c_user=9", session.Cookie)
}
