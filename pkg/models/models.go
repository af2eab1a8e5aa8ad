package models

import "time"

// Post is a single scraped profile post as handed over by the scraper.
// Content carries the extracted post text; Text is a legacy fallback field
// kept because older snapshots stored the body there.
type Post struct {
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	Text     string    `json:"text,omitempty"`
	Likes    int       `json:"likes"`
	Comments int       `json:"comments"`
	Shares   int       `json:"shares"`
	Date     time.Time `json:"date,omitempty"`
	HasLinks bool      `json:"has_links"`
	HasCTA   bool      `json:"has_cta"`

	// Set by the content filter.
	QualityScore float64  `json:"quality_score,omitempty"`
	ContentType  string   `json:"content_type,omitempty"`
	FilterReason []string `json:"filter_reason,omitempty"`
}

// Body returns the post text, falling back to the legacy Text field.
func (p *Post) Body() string {
	if p.Content != "" {
		return p.Content
	}
	return p.Text
}

// AnalyzedPost couples a post with its structural analysis.
type AnalyzedPost struct {
	Post            Post     `json:"post"`
	Hooks           []string `json:"hooks"`
	CTAType         string   `json:"cta_type"`
	Structure       string   `json:"structure"`
	EngagementScore float64  `json:"engagement_score"`
}

// Template is a reusable copy pattern derived from a group of posts that
// share a structural signature. Templates are append-only; re-running the
// analysis creates new rows rather than mutating old ones.
type Template struct {
	Topic        string    `json:"topic"`
	Structure    string    `json:"structure"`
	HookType     string    `json:"hook_type"`
	CTAType      string    `json:"cta_type"`
	SuccessScore float64   `json:"success_score"`
	PostCount    int       `json:"post_count"`
	CreatedAt    time.Time `json:"created_at"`
}
