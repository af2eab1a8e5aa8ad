// Package content separates genuine post text from scraping noise and
// scores its quality. All functions are pure and total over string input:
// empty or malformed text yields a defined low result, never an error.
package content

import (
	"fmt"
	"regexp"
	"strings"

	"postwriter/pkg/models"
)

// Content type categories returned by DetectContentType.
const (
	TypeMarketing     = "marketing"
	TypePersonal      = "personal"
	TypeUIElement     = "ui_element"
	TypeInformational = "informational"
	TypeEmpty         = "empty"
	TypeUnknown       = "unknown"
)

// Filter thresholds. Empirically chosen; treat as behavioral constants.
const (
	// uiWordRatioLimit rejects text whose word stream is mostly chrome.
	uiWordRatioLimit = 0.7
	// uiLineRatioLimit classifies text as UI when this share of lines
	// matches name/timestamp patterns.
	uiLineRatioLimit = 0.4
	// minLineLength drops very short lines as likely UI.
	minLineLength = 5
)

var (
	timePattern = regexp.MustCompile(`\d+[wdhms]`)
	// shortNoisePattern matches timestamp/counter noise lines.
	shortNoisePattern = regexp.MustCompile(`^[\d\s\w]{1,14}$`)
)

// Quality is the outcome of assessing one text blob.
type Quality struct {
	Score       float64  // 0-10
	IsValid     bool     // meets minimum standards
	Issues      []string // human-readable reasons
	ContentType string
}

// Filter validates scraped content quality.
type Filter struct {
	minContentLength int
	minWords         int
	minQualityScore  float64
}

// NewFilter creates a filter with the tuned default thresholds.
func NewFilter() *Filter {
	return &Filter{
		minContentLength: 50,
		minWords:         5,
		minQualityScore:  3.0,
	}
}

// NewFilterWithThresholds creates a filter with explicit thresholds.
func NewFilterWithThresholds(minContentLength, minWords int, minQualityScore float64) *Filter {
	return &Filter{
		minContentLength: minContentLength,
		minWords:         minWords,
		minQualityScore:  minQualityScore,
	}
}

// FilterUIElements strips UI-chrome lines from text. Text that is
// overwhelmingly chrome collapses to an empty string.
func (f *Filter) FilterUIElements(text string) string {
	if text == "" {
		return ""
	}

	words := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(words) > 0 {
		uiWords := 0
		for _, word := range words {
			for _, ui := range uiElements {
				if strings.Contains(word, ui) {
					uiWords++
					break
				}
			}
		}
		if float64(uiWords)/float64(len(words)) > uiWordRatioLimit {
			return ""
		}
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lineLower := strings.ToLower(line)

		if containsAny(lineLower, uiElements) {
			continue
		}
		if containsAny(lineLower, facebookUI) {
			continue
		}
		if len(line) < minLineLength {
			continue
		}
		if len(line) < 15 && shortNoisePattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// DetectContentType classifies text into one of the fixed categories.
func (f *Filter) DetectContentType(text string) string {
	if text == "" {
		return TypeEmpty
	}

	textLower := strings.ToLower(text)
	lines := strings.Split(text, "\n")

	uiPatternCount := 0
	for _, line := range lines {
		lineLower := strings.ToLower(strings.TrimSpace(line))
		if containsAny(lineLower, namePatterns) {
			uiPatternCount++
		}
		if timePattern.MatchString(lineLower) || containsAny(lineLower, timeIndicators) {
			uiPatternCount++
		}
	}
	if len(lines) > 0 && float64(uiPatternCount)/float64(len(lines)) > uiLineRatioLimit {
		return TypeUIElement
	}

	marketingScore := countHits(textLower, marketingIndicators)
	personalScore := countHits(textLower, personalIndicators)
	uiScore := countHits(textLower, uiElements)

	switch {
	case uiScore > marketingScore+personalScore:
		return TypeUIElement
	case marketingScore > personalScore:
		return TypeMarketing
	case personalScore > 0:
		return TypePersonal
	case len(text) > 100:
		return TypeInformational
	default:
		return TypeUnknown
	}
}

// CalculateQualityScore scores text from 0 to 10. The additive formula is a
// behavioral contract tuned against real scraped samples; do not simplify.
func (f *Filter) CalculateQualityScore(text string) float64 {
	if text == "" {
		return 0.0
	}

	score := 5.0

	if len(text) > 50 {
		score += 1.0
	}
	if len(text) > 150 {
		score += 1.0
	}
	if len(text) > 300 {
		score += 0.5
	}

	words := strings.Fields(text)
	if len(words) > 10 {
		score += 1.0
	}
	if len(words) > 25 {
		score += 0.5
	}

	if strings.Contains(text, "\n") && len(strings.Split(text, "\n")) > 1 {
		score += 0.5
	}

	textLower := strings.ToLower(text)
	if found := countHits(textLower, marketingIndicators); found > 0 {
		score += min(float64(found)*0.5, 2.0)
	}

	if hashtags := strings.Count(text, "#"); hashtags > 0 {
		score += min(float64(hashtags)*0.2, 1.0)
	}

	if strings.Contains(textLower, "http") || strings.Contains(textLower, "www.") {
		score += 0.5
	}

	if uiHits := countHits(textLower, uiElements); uiHits > 0 {
		score -= min(float64(uiHits)*0.5, 3.0)
	}

	if len(text) < f.minContentLength {
		score -= 2.0
	}
	if len(words) < f.minWords {
		score -= 2.0
	}

	return max(0.0, min(10.0, score))
}

// AssessQuality filters UI chrome first, then classifies and scores the
// surviving text.
func (f *Filter) AssessQuality(text string) Quality {
	filtered := f.FilterUIElements(text)
	if filtered == "" {
		return Quality{
			Score:       0.0,
			IsValid:     false,
			Issues:      []string{"content is empty after filtering UI elements"},
			ContentType: TypeUIElement,
		}
	}

	contentType := f.DetectContentType(filtered)
	score := f.CalculateQualityScore(filtered)

	var issues []string
	if len(filtered) < f.minContentLength {
		issues = append(issues, fmt.Sprintf("content too short (%d chars, min %d)", len(filtered), f.minContentLength))
	}
	if words := strings.Fields(filtered); len(words) < f.minWords {
		issues = append(issues, fmt.Sprintf("too few words (%d, min %d)", len(words), f.minWords))
	}
	if contentType == TypeUIElement {
		issues = append(issues, "content appears to be UI elements")
	}
	if score < f.minQualityScore {
		issues = append(issues, "low quality score")
	}

	return Quality{
		Score:       score,
		IsValid:     len(issues) == 0 && score >= f.minQualityScore && contentType != TypeUIElement && contentType != TypeEmpty,
		Issues:      issues,
		ContentType: contentType,
	}
}

// FilterPosts partitions posts into accepted and rejected sets. Accepted
// posts get their content replaced by the filtered text plus score and type;
// rejected posts keep their original content plus the rejection reasons.
func (f *Filter) FilterPosts(posts []models.Post) (good, filtered []models.Post) {
	for _, post := range posts {
		quality := f.AssessQuality(post.Body())

		p := post
		p.QualityScore = quality.Score
		if quality.IsValid {
			p.Content = f.FilterUIElements(post.Body())
			p.ContentType = quality.ContentType
			good = append(good, p)
		} else {
			p.FilterReason = quality.Issues
			filtered = append(filtered, p)
		}
	}
	return good, filtered
}

// Stats summarizes a filtering run.
type Stats struct {
	TotalPosts     int            `json:"total_posts"`
	GoodPosts      int            `json:"good_posts"`
	FilteredPosts  int            `json:"filtered_posts"`
	FilterRate     float64        `json:"filter_rate"` // percent
	ContentTypes   map[string]int `json:"content_types"`
	AverageQuality float64        `json:"average_quality"`
}

// FilterStats computes statistics over a filtering run.
func FilterStats(good, filtered []models.Post) Stats {
	stats := Stats{
		TotalPosts:    len(good) + len(filtered),
		GoodPosts:     len(good),
		FilteredPosts: len(filtered),
		ContentTypes:  make(map[string]int),
	}

	var qualitySum float64
	for _, p := range good {
		t := p.ContentType
		if t == "" {
			t = TypeUnknown
		}
		stats.ContentTypes[t]++
		qualitySum += p.QualityScore
	}

	if stats.TotalPosts > 0 {
		stats.FilterRate = float64(stats.FilteredPosts) / float64(stats.TotalPosts) * 100
	}
	if len(good) > 0 {
		stats.AverageQuality = qualitySum / float64(len(good))
	}
	return stats
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func countHits(s string, subs []string) int {
	n := 0
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}
