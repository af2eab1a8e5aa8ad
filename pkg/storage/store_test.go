package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postwriter/pkg/models"
)

func TestLoadPostsMissingFile(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	posts, err := s.LoadPosts()
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSaveAndLoadPosts(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	in := []models.Post{
		{ID: "a", Content: "first post", Likes: 3, ContentType: "marketing"},
		{ID: "b", Content: "second post", QualityScore: 7.5},
	}
	require.NoError(t, s.SavePosts(in))

	out, err := s.LoadPosts()
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, 7.5, out[1].QualityScore)
}

func TestSavePostsReplaces(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SavePosts([]models.Post{{ID: "a"}, {ID: "b"}}))
	require.NoError(t, s.SavePosts([]models.Post{{ID: "c"}}))

	out, err := s.LoadPosts()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "c", out[0].ID)
}

func TestAppendTemplatesAccumulates(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.AppendTemplates([]models.Template{{Topic: "insurance"}}))
	require.NoError(t, s.AppendTemplates([]models.Template{{Topic: "mortgages"}, {Topic: "savings"}}))

	templates, err := s.Templates()
	require.NoError(t, err)
	require.Len(t, templates, 3)
	assert.Equal(t, "insurance", templates[0].Topic)
	assert.Equal(t, "savings", templates[2].Topic)
}

func TestCorruptPostsFileFails(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "posts.json"), []byte("{broken"), 0o644))
	_, err = s.LoadPosts()
	require.Error(t, err)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SavePosts([]models.Post{{ID: "a"}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
