package facebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><body>
<article data-ft="story_123">
  <p>Are you paying too much for insurance?</p>
  <p>Click here to learn more about our offers.</p>
  <span>34 likes</span>
  <span>12 comments</span>
  <span>3 shares</span>
  <a href="https://example.com/quote">Get a quote</a>
</article>
<div role="article">
  <p>The office picnic moved to Thursday.</p>
</div>
<div class="footer">Unrelated page chrome</div>
</body></html>`

func TestExtractPosts(t *testing.T) {
	posts, err := ExtractPosts(samplePage)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	first := posts[0]
	assert.Contains(t, first.Content, "paying too much for insurance")
	assert.Contains(t, first.Content, "\n") // block elements become lines
	assert.Equal(t, 34, first.Likes)
	assert.Equal(t, 12, first.Comments)
	assert.Equal(t, 3, first.Shares)
	assert.True(t, first.HasCTA)
	assert.True(t, first.HasLinks)
	assert.Len(t, first.ID, 16)

	second := posts[1]
	assert.Contains(t, second.Content, "office picnic")
	assert.False(t, second.HasCTA)
	assert.False(t, second.HasLinks)
	assert.Equal(t, 0, second.Likes)
}

func TestExtractPostsStableIDs(t *testing.T) {
	a, err := ExtractPosts(samplePage)
	require.NoError(t, err)
	b, err := ExtractPosts(samplePage)
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID, "extraction must produce stable IDs")
	}
}

func TestExtractPostsEmptyPage(t *testing.T) {
	posts, err := ExtractPosts("<html><body><p>nothing here</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestEngagementCounts(t *testing.T) {
	likes, comments, shares := engagementCounts("120 likes 15 comments 4 shares 6 reactions")
	assert.Equal(t, 126, likes) // reactions count as likes
	assert.Equal(t, 15, comments)
	assert.Equal(t, 4, shares)

	likes, comments, shares = engagementCounts("no numbers at all")
	assert.Zero(t, likes)
	assert.Zero(t, comments)
	assert.Zero(t, shares)
}

func TestHasHashtags(t *testing.T) {
	assert.True(t, HasHashtags("closing line #insurance"))
	assert.False(t, HasHashtags("closing line without tags"))
}
