// Package analysis extracts rhetorical structure from marketing posts:
// hook types, call-to-action categories, coarse structural signatures, and
// engagement scores. Groups of posts sharing a signature become reusable
// templates.
package analysis

import (
	"regexp"
	"strings"

	"postwriter/pkg/models"
)

// Structure signature parts.
const (
	StructureEmpty = "EMPTY"

	hookQuestion  = "QUESTION_HOOK"
	hookScenario  = "SCENARIO_HOOK"
	hookAttention = "ATTENTION_HOOK"
	hookStatement = "STATEMENT_HOOK"

	partBody     = "BODY"
	partCTA      = "CTA"
	partHashtags = "HASHTAGS"
)

// CTATypeGeneral is returned when no CTA category matches.
const CTATypeGeneral = "general"

type patternGroup struct {
	name     string
	patterns []*regexp.Regexp
}

func compileGroup(name string, exprs ...string) patternGroup {
	g := patternGroup{name: name}
	for _, expr := range exprs {
		g.patterns = append(g.patterns, regexp.MustCompile("(?i)"+expr))
	}
	return g
}

// hookGroups are tested independently; several hook types may co-occur in
// one post.
var hookGroups = []patternGroup{
	compileGroup("question",
		`\?`,
		`^(what|how|why|when|where|who|which|did you know)`,
		`(have you|do you|are you|can you|will you)`,
	),
	compileGroup("urgency",
		`(now|today|limited|hurry|quick|fast|urgent)`,
		`(don't wait|act now|expires|deadline)`,
		`(last chance|final|ending soon)`,
	),
	compileGroup("curiosity",
		`(secret|revealed|discover|find out|learn)`,
		`(amazing|shocking|surprising|incredible)`,
		`(you won't believe|guess what|here's why|what if)`,
	),
	compileGroup("social_proof",
		`(everyone|thousands|millions|people)`,
		`(customers love|clients say|reviews)`,
		`(testimonial|success story|case study)`,
	),
	compileGroup("fear_missing_out",
		`(exclusive|limited|only|special)`,
		`(before it's gone|while supplies last)`,
		`(members only|vip|premium)`,
	),
	compileGroup("benefit",
		`(save|earn|get|gain|achieve|improve)`,
		`(free|bonus|discount|deal)`,
		`(results|success|solution|help)`,
	),
}

// ctaGroups are tested in order; the first matching category wins.
var ctaGroups = []patternGroup{
	compileGroup("click", `(click|tap|press|hit)`),
	compileGroup("buy", `(buy|purchase|order|shop|get yours)`),
	compileGroup("learn", `(learn more|find out|discover|read more)`),
	compileGroup("signup", `(sign up|register|join|subscribe)`),
	compileGroup("contact", `(contact|call|email|message|reach out)`),
	compileGroup("download", `(download|get|grab|access)`),
	compileGroup("book", `(book|schedule|reserve|appointment)`),
}

// scenarioOpeners mark a first line as a scenario hook.
var scenarioOpeners = []string{"imagine", "what if", "picture this"}

// ctaKeywords mark closing lines as a call to action.
var ctaKeywords = []string{"click", "buy", "learn more", "contact", "sign up"}

// Analyzer detects hooks, CTAs, and structure in post text. It is stateless
// and safe for concurrent use.
type Analyzer struct{}

// NewAnalyzer creates an analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// DetectHooks returns the hook types present in text. The result preserves
// the fixed group order; multiple hook types may co-occur.
func (a *Analyzer) DetectHooks(text string) []string {
	textLower := strings.ToLower(text)
	var hooks []string
	for _, group := range hookGroups {
		for _, p := range group.patterns {
			if p.MatchString(textLower) {
				hooks = append(hooks, group.name)
				break
			}
		}
	}
	return hooks
}

// DetectCTAType returns the first matching CTA category, or "general".
func (a *Analyzer) DetectCTAType(text string) string {
	textLower := strings.ToLower(text)
	for _, group := range ctaGroups {
		for _, p := range group.patterns {
			if p.MatchString(textLower) {
				return group.name
			}
		}
	}
	return CTATypeGeneral
}

// ExtractStructure builds a "+"-joined structural signature from post text.
// Empty input yields "EMPTY".
func (a *Analyzer) ExtractStructure(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return StructureEmpty
	}

	var parts []string

	first := lines[0]
	firstLower := strings.ToLower(first)
	switch {
	case strings.Contains(first, "?"):
		parts = append(parts, hookQuestion)
	case containsAny(firstLower, scenarioOpeners):
		parts = append(parts, hookScenario)
	case len(first) < 50 && (strings.Contains(first, "!") || isUpper(first)):
		parts = append(parts, hookAttention)
	default:
		parts = append(parts, hookStatement)
	}

	if len(lines) > 2 {
		parts = append(parts, partBody)
	}

	// The CTA usually sits in the closing lines.
	tail := lines
	if len(tail) > 2 {
		tail = tail[len(tail)-2:]
	}
	if containsAny(strings.ToLower(strings.Join(tail, " ")), ctaKeywords) {
		parts = append(parts, partCTA)
	}

	for _, line := range lines {
		if strings.Contains(line, "#") {
			parts = append(parts, partHashtags)
			break
		}
	}

	return strings.Join(parts, " + ")
}

// EngagementScore computes a normalized 0-10 engagement score. Comments and
// shares are weighted above passive likes as stronger signals.
func (a *Analyzer) EngagementScore(post models.Post) float64 {
	total := float64(post.Likes + post.Comments*2 + post.Shares*3)
	return min(total/10.0, 10.0)
}

// Analyze runs the full structural analysis on one post.
func (a *Analyzer) Analyze(post models.Post) models.AnalyzedPost {
	body := post.Body()
	return models.AnalyzedPost{
		Post:            post,
		Hooks:           a.DetectHooks(body),
		CTAType:         a.DetectCTAType(body),
		Structure:       a.ExtractStructure(body),
		EngagementScore: a.EngagementScore(post),
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// isUpper reports whether s contains letters and all of them are uppercase.
func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}
