package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"postwriter/pkg/models"
)

var (
	topicWordPattern = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)
	wordPattern      = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)
)

// stopWords are excluded from topic extraction.
var stopWords = map[string]bool{
	"the": true, "and": true, "or": true, "but": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true,
	"a": true, "an": true, "is": true, "was": true, "are": true, "were": true,
	"be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true,
	"this": true, "that": true, "these": true, "those": true,
	"i": true, "you": true, "he": true, "she": true, "it": true,
	"we": true, "they": true,
}

// TemplateBuilder aggregates analyzed posts into reusable templates.
type TemplateBuilder struct {
	analyzer     *Analyzer
	minGroupSize int
}

// NewTemplateBuilder creates a builder. Groups smaller than minGroupSize
// never become templates; values below 2 are raised to 2.
func NewTemplateBuilder(analyzer *Analyzer, minGroupSize int) *TemplateBuilder {
	if minGroupSize < 2 {
		minGroupSize = 2
	}
	return &TemplateBuilder{analyzer: analyzer, minGroupSize: minGroupSize}
}

// Build groups posts by structural signature and emits one template per
// group that meets the minimum size.
func (b *TemplateBuilder) Build(posts []models.Post) []models.Template {
	groups := make(map[string][]models.AnalyzedPost)
	var order []string

	for _, post := range posts {
		ap := b.analyzer.Analyze(post)
		if _, seen := groups[ap.Structure]; !seen {
			order = append(order, ap.Structure)
		}
		groups[ap.Structure] = append(groups[ap.Structure], ap)
	}

	var templates []models.Template
	now := time.Now()

	for _, structure := range order {
		group := groups[structure]
		if len(group) < b.minGroupSize {
			continue
		}

		var engagementSum float64
		hookCounts := newCounter()
		ctaCounts := newCounter()
		var allContent strings.Builder

		for _, ap := range group {
			engagementSum += ap.EngagementScore
			for _, h := range ap.Hooks {
				hookCounts.add(h)
			}
			ctaCounts.add(ap.CTAType)
			allContent.WriteString(ap.Post.Body())
			allContent.WriteString(" ")
		}

		hookType := hookCounts.mostCommon(CTATypeGeneral)
		ctaType := ctaCounts.mostCommon(CTATypeGeneral)

		topicCounts := newCounter()
		for _, w := range topicWordPattern.FindAllString(strings.ToLower(allContent.String()), -1) {
			topicCounts.add(w)
		}
		topic := topicCounts.mostCommon("general")

		templates = append(templates, models.Template{
			Topic:        topic,
			Structure:    structure,
			HookType:     hookType,
			CTAType:      ctaType,
			SuccessScore: engagementSum / float64(len(group)),
			PostCount:    len(group),
			CreatedAt:    now,
		})
	}

	return templates
}

// Topic is a recurring subject across marketing posts.
type Topic struct {
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	AvgEngagement float64 `json:"avg_engagement"`
}

// TopTopics extracts the most frequent meaningful words across posts,
// with each topic's average engagement.
func (b *TemplateBuilder) TopTopics(posts []models.Post) []Topic {
	wordCounts := newCounter()
	topicPosts := make(map[string][]models.Post)

	for _, post := range posts {
		content := strings.ToLower(post.Body())
		for _, word := range wordPattern.FindAllString(content, -1) {
			if stopWords[word] {
				continue
			}
			wordCounts.add(word)
			topicPosts[word] = append(topicPosts[word], post)
		}
	}

	var topics []Topic
	for _, word := range wordCounts.ordered(10) {
		count := wordCounts.counts[word]
		if count < 2 {
			continue
		}
		var sum float64
		for _, p := range topicPosts[word] {
			sum += b.analyzer.EngagementScore(p)
		}
		topics = append(topics, Topic{
			Name:          strings.ToUpper(word[:1]) + word[1:],
			Count:         count,
			AvgEngagement: sum / float64(len(topicPosts[word])),
		})
	}
	return topics
}

// Summary is an aggregate view over analyzed posts.
type Summary struct {
	TotalPosts      int            `json:"total_posts"`
	MarketingPosts  int            `json:"marketing_posts"`
	AvgEngagement   float64        `json:"avg_engagement"`
	TopHooks        map[string]int `json:"top_hooks"`
	CTADistribution map[string]int `json:"cta_distribution"`
	TopStructures   map[string]int `json:"top_structures"`
}

// Summarize computes the analytics summary over all posts.
func (b *TemplateBuilder) Summarize(posts []models.Post) Summary {
	summary := Summary{
		TotalPosts:      len(posts),
		TopHooks:        make(map[string]int),
		CTADistribution: make(map[string]int),
		TopStructures:   make(map[string]int),
	}
	if len(posts) == 0 {
		return summary
	}

	var engagementSum float64
	hookCounts := newCounter()
	ctaCounts := newCounter()
	structureCounts := newCounter()

	for _, post := range posts {
		if post.HasCTA || post.HasLinks {
			summary.MarketingPosts++
		}
		engagementSum += b.analyzer.EngagementScore(post)

		body := post.Body()
		for _, h := range b.analyzer.DetectHooks(body) {
			hookCounts.add(h)
		}
		ctaCounts.add(b.analyzer.DetectCTAType(body))
		structureCounts.add(b.analyzer.ExtractStructure(body))
	}

	summary.AvgEngagement = engagementSum / float64(len(posts))
	for _, h := range hookCounts.ordered(5) {
		summary.TopHooks[h] = hookCounts.counts[h]
	}
	for _, c := range ctaCounts.ordered(5) {
		summary.CTADistribution[c] = ctaCounts.counts[c]
	}
	for _, s := range structureCounts.ordered(3) {
		summary.TopStructures[s] = structureCounts.counts[s]
	}
	return summary
}

// ideaStarters are idea seeds keyed by hook type; %s is the topic.
var ideaStarters = map[string][]string{
	"question": {
		"What if %s could change your life?",
		"Why are more people choosing %s?",
		"How does %s really work?",
	},
	"curiosity": {
		"The secret about %s nobody talks about",
		"Discover what makes %s so effective",
		"Here's what you need to know about %s",
	},
	"social_proof": {
		"Why thousands are switching to %s",
		"Real results from %s users",
		"Success stories with %s",
	},
	"benefit": {
		"Save time and money with %s",
		"Get better results using %s",
		"Improve your life with %s",
	},
	"urgency": {
		"Limited time offer for %s",
		"Don't miss out on %s",
		"Act now: %s opportunity",
	},
}

// GenerateIdeas produces content ideas for a topic seeded by the hook types
// of successful templates. One idea per template, at most five total.
func GenerateIdeas(topic string, templates []models.Template) []string {
	if len(templates) == 0 {
		return []string{fmt.Sprintf("Create content about %s", topic)}
	}

	var ideas []string
	for _, tmpl := range templates {
		hook := tmpl.HookType
		if hook == "" {
			hook = "benefit"
		}
		// Hook types without a starter contribute nothing.
		starters, ok := ideaStarters[hook]
		if !ok {
			continue
		}
		ideas = append(ideas, fmt.Sprintf(starters[0], topic))
		if len(ideas) == 5 {
			break
		}
	}
	return ideas
}

// counter is an insertion-ordered frequency counter; ties resolve to the
// first-seen key, matching the grouping semantics elsewhere in this package.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// mostCommon returns the highest-count key, or fallback when empty.
func (c *counter) mostCommon(fallback string) string {
	best := fallback
	bestCount := 0
	for _, key := range c.order {
		if c.counts[key] > bestCount {
			best = key
			bestCount = c.counts[key]
		}
	}
	return best
}

// ordered returns up to n keys sorted by descending count, ties in
// insertion order.
func (c *counter) ordered(n int) []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
