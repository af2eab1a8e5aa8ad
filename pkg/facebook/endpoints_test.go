package facebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProfileURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.facebook.com/somepage", "https://m.facebook.com/somepage"},
		{"http://facebook.com/somepage?ref=feed#top", "https://m.facebook.com/somepage"},
		{"facebook.com/somepage", "https://m.facebook.com/somepage"},
		{"m.facebook.com/somepage", "https://m.facebook.com/somepage"},
	}

	for _, tt := range tests {
		got, err := NormalizeProfileURL(tt.in)
		require.NoError(t, err, "input: %s", tt.in)
		assert.Equal(t, tt.want, got, "input: %s", tt.in)
	}
}

func TestNormalizeProfileURLInvalid(t *testing.T) {
	_, err := NormalizeProfileURL("https://fa ce book.com/x")
	require.Error(t, err)
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://m.facebook.com/p", PageURL("https://m.facebook.com/p", ""))
	assert.Equal(t, "https://m.facebook.com/p?cursor=abc", PageURL("https://m.facebook.com/p", "abc"))
	assert.Equal(t, "https://m.facebook.com/p?x=1&cursor=a%2Fb", PageURL("https://m.facebook.com/p?x=1", "a/b"))
}

func TestNextCursor(t *testing.T) {
	html := `<a href="/page_content?cursor=AQHRabc123&refid=17">See more</a>`
	assert.Equal(t, "AQHRabc123", NextCursor(html))

	assert.Equal(t, "", NextCursor("<html>no pagination</html>"))
	// Escaped cursors come back decoded.
	assert.Equal(t, "a/b", NextCursor(`href="?cursor=a%2Fb&x=1"`))
}
