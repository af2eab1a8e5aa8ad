package facebook

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errs "postwriter/pkg/errors"
	"postwriter/pkg/models"
)

// postContainerSelector matches the markup variants the mobile site uses
// for feed stories.
const postContainerSelector = "article, div[role='article'], div[data-ft]"

var (
	countPattern   = regexp.MustCompile(`(\d+)\s*(like|comment|share|reaction)`)
	hashtagPattern = regexp.MustCompile(`#\w+`)
)

// ctaPhrases mark extracted text as carrying a call to action.
var ctaPhrases = []string{"click", "buy", "learn more", "sign up", "contact", "shop now", "order"}

// ExtractPosts pulls post candidates out of a profile page. Extraction is
// deliberately loose: it hands every text block to the content filter,
// which owns quality decisions.
func ExtractPosts(html string) ([]models.Post, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, 0, "failed to parse page: %v", err)
	}

	var posts []models.Post
	doc.Find(postContainerSelector).Each(func(_ int, sel *goquery.Selection) {
		text := blockText(sel)
		if text == "" {
			return
		}

		post := models.Post{
			ID:       postID(sel, text),
			Content:  text,
			HasLinks: sel.Find("a[href*='http']").Length() > 0,
		}
		post.Likes, post.Comments, post.Shares = engagementCounts(text)

		lower := strings.ToLower(text)
		for _, phrase := range ctaPhrases {
			if strings.Contains(lower, phrase) {
				post.HasCTA = true
				break
			}
		}

		posts = append(posts, post)
	})

	return posts, nil
}

// blockText renders a container's text with line breaks preserved between
// block elements, which the content filter relies on for line-level
// chrome stripping.
func blockText(sel *goquery.Selection) string {
	var lines []string
	sel.Find("p, span, div, h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return // only leaf elements, avoid duplicated nested text
		}
		if t := strings.TrimSpace(s.Text()); t != "" {
			lines = append(lines, t)
		}
	})
	if len(lines) == 0 {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// postID prefers the platform's story identifier, falling back to a
// content hash.
func postID(sel *goquery.Selection, text string) string {
	if id, ok := sel.Attr("data-ft"); ok && id != "" {
		sum := sha256.Sum256([]byte(id))
		return hex.EncodeToString(sum[:])[:16]
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// engagementCounts scrapes "N likes / N comments / N shares" fragments out
// of the block text.
func engagementCounts(text string) (likes, comments, shares int) {
	for _, m := range countPattern.FindAllStringSubmatch(strings.ToLower(text), -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch m[2] {
		case "like", "reaction":
			likes += n
		case "comment":
			comments += n
		case "share":
			shares += n
		}
	}
	return likes, comments, shares
}

// HasHashtags reports whether text contains hashtags.
func HasHashtags(text string) bool {
	return hashtagPattern.MatchString(text)
}
