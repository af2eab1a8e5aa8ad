package facebook

import (
	"fmt"
	"net/url"
	"strings"
)

// mobileHost serves the lightweight markup variant, which is far easier to
// extract from than the full site.
const mobileHost = "m.facebook.com"

// NormalizeProfileURL rewrites a profile URL to the mobile host and strips
// query noise.
func NormalizeProfileURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid profile url: %w", err)
	}
	u.Host = mobileHost
	u.Scheme = "https"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// PageURL appends a pagination cursor to a profile URL.
func PageURL(profileURL, cursor string) string {
	if cursor == "" {
		return profileURL
	}
	sep := "?"
	if strings.Contains(profileURL, "?") {
		sep = "&"
	}
	return profileURL + sep + "cursor=" + url.QueryEscape(cursor)
}

// NextCursor finds the pagination cursor in a fetched page, or empty when
// the feed is exhausted.
func NextCursor(html string) string {
	marker := "cursor="
	idx := strings.Index(html, marker)
	if idx < 0 {
		return ""
	}
	rest := html[idx+len(marker):]
	end := strings.IndexAny(rest, `"'&`)
	if end < 0 {
		return ""
	}
	cursor, err := url.QueryUnescape(rest[:end])
	if err != nil {
		return rest[:end]
	}
	return cursor
}
