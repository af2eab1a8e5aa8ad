// Package scraper wires the session together: paced fetching, extraction,
// quality filtering, structural analysis, and template building.
package scraper

import (
	"context"
	"fmt"

	"postwriter/internal/pipeline"
	"postwriter/pkg/analysis"
	"postwriter/pkg/auth"
	"postwriter/pkg/checkpoint"
	"postwriter/pkg/config"
	"postwriter/pkg/content"
	"postwriter/pkg/facebook"
	"postwriter/pkg/logger"
	"postwriter/pkg/models"
	"postwriter/pkg/ratelimit"
	"postwriter/pkg/storage"
)

// pipelineWorkers bounds concurrent post analysis.
const pipelineWorkers = 4

// Session owns one scraping session. The rate limiter is constructed here
// and injected into the client so its lifetime and lock scope are explicit.
type Session struct {
	cfg      *config.Config
	limiter  *ratelimit.Limiter
	client   *facebook.Client
	filter   *content.Filter
	analyzer *analysis.Analyzer
	builder  *analysis.TemplateBuilder
	store    *storage.Store
	logger   logger.Logger
}

// New creates a session from configuration. A stored auth session supplies
// the cookie when the config has none.
func New(cfg *config.Config) (*Session, error) {
	log := logger.GetLogger()

	if cfg.Facebook.SessionCookie == "" {
		if mgr, err := auth.NewManager(); err == nil {
			if session, err := mgr.Retrieve(); err == nil {
				cfg.Facebook.SessionCookie = session.Cookie
				if session.UserAgent != "" {
					cfg.Facebook.UserAgent = session.UserAgent
				}
			}
		}
	}

	limiter := ratelimit.NewLimiter(limiterConfig(cfg.RateLimit), cfg.Storage.RateLimitFile, log)
	store, err := storage.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	analyzer := analysis.NewAnalyzer()
	return &Session{
		cfg:      cfg,
		limiter:  limiter,
		client:   facebook.NewClient(&cfg.Facebook, limiter, log),
		filter:   content.NewFilterWithThresholds(cfg.Content.MinContentLength, cfg.Content.MinWords, cfg.Content.MinQualityScore),
		analyzer: analyzer,
		builder:  analysis.NewTemplateBuilder(analyzer, cfg.Analysis.MinTemplatePosts),
		store:    store,
		logger:   log,
	}, nil
}

// limiterConfig maps the config section onto the limiter's policy.
func limiterConfig(c config.RateLimitConfig) ratelimit.Config {
	return ratelimit.Config{
		MinRequestDelay:        c.MinRequestDelay,
		MaxRequestDelay:        c.MaxRequestDelay,
		ScrollDelay:            c.ScrollDelay,
		ScrollDelayVariance:    c.ScrollDelayVariance,
		PageLoadDelay:          c.PageLoadDelay,
		PageLoadVariance:       c.PageLoadVariance,
		PostProcessingDelay:    c.PostProcessingDelay,
		PostProcessingVariance: c.PostProcessingVariance,
		MaxRequestsPerMinute:   c.MaxRequestsPerMinute,
		MaxRequestsPerHour:     c.MaxRequestsPerHour,
		InitialBackoff:         c.InitialBackoff,
		MaxBackoff:             c.MaxBackoff,
		BackoffMultiplier:      c.BackoffMultiplier,
		RateLimitKeywords:      c.RateLimitKeywords,
	}
}

// ScrapeProfile crawls the configured profile, collecting raw post
// candidates into the store. With resume, a prior checkpoint skips
// already-collected posts.
func (s *Session) ScrapeProfile(ctx context.Context, resume bool) error {
	profileURL, err := facebook.NormalizeProfileURL(s.cfg.Facebook.ProfileURL)
	if err != nil {
		return err
	}

	cpMgr, err := checkpoint.NewManager(s.cfg.Storage.DataDir, profileURL)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}

	var cp *checkpoint.Checkpoint
	if resume {
		if cp, err = cpMgr.Load(); err != nil {
			s.logger.WithError(err).Warn("failed to load checkpoint, starting fresh")
		}
	}
	if cp == nil {
		if cp, err = cpMgr.Create(profileURL); err != nil {
			return err
		}
	}

	existing, err := s.store.LoadPosts()
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, p := range existing {
		known[p.ID] = true
	}

	cursor := cp.PageCursor
	collected := 0

	for page := cp.LastPage; page < s.cfg.Facebook.MaxPages; page++ {
		requestType := ratelimit.RequestTypeScroll
		if page == 0 {
			requestType = ratelimit.RequestTypePageLoad
		}

		result, err := s.client.FetchPage(ctx, requestType, facebook.PageURL(profileURL, cursor))
		if err != nil {
			return fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		if result.Throttled {
			// Not fatal: the limiter has already escalated backoff, which
			// stretches the next wait. Stop this run early.
			s.logger.WarnWithFields("throttling detected, stopping scrape early", map[string]interface{}{
				"page": page,
			})
			break
		}

		posts, err := facebook.ExtractPosts(result.Body)
		if err != nil {
			return err
		}

		for _, post := range posts {
			if cp.HasSeen(post.ID) || known[post.ID] {
				continue
			}
			existing = append(existing, post)
			known[post.ID] = true
			collected++
			if err := cpMgr.RecordPost(cp, post.ID); err != nil {
				s.logger.WithError(err).Warn("failed to record post in checkpoint")
			}
		}

		cursor = facebook.NextCursor(result.Body)
		if err := cpMgr.UpdateProgress(cp, cursor, page+1); err != nil {
			s.logger.WithError(err).Warn("failed to update checkpoint")
		}
		if cursor == "" {
			break
		}
	}

	if err := s.store.SavePosts(existing); err != nil {
		return err
	}

	s.logger.InfoWithFields("scrape complete", map[string]interface{}{
		"new_posts":   collected,
		"total_posts": len(existing),
	})
	return nil
}

// Report summarizes one analysis run.
type Report struct {
	FilterStats      content.Stats    `json:"filter_stats"`
	TemplatesCreated int              `json:"templates_created"`
	Summary          analysis.Summary `json:"summary"`
	Topics           []analysis.Topic `json:"topics"`
}

// Analyze filters stored posts, derives templates from high-engagement
// groups, and persists both.
func (s *Session) Analyze(ctx context.Context) (*Report, error) {
	posts, err := s.store.LoadPosts()
	if err != nil {
		return nil, err
	}

	pipe := pipeline.New(pipelineWorkers, s.filter, s.analyzer, s.logger)
	accepted, rejected := pipe.Run(ctx, posts)

	good := make([]models.Post, 0, len(accepted))
	engaged := make([]models.Post, 0, len(accepted))
	for _, ap := range accepted {
		good = append(good, ap.Post)
		if ap.EngagementScore >= s.cfg.Analysis.MinEngagement {
			engaged = append(engaged, ap.Post)
		}
	}

	templates := s.builder.Build(engaged)
	if len(templates) > 0 {
		if err := s.store.AppendTemplates(templates); err != nil {
			return nil, err
		}
	}

	// Keep filter annotations from this run.
	if err := s.store.SavePosts(append(good, rejected...)); err != nil {
		return nil, err
	}

	marketing := make([]models.Post, 0, len(good))
	for _, p := range good {
		if p.ContentType == content.TypeMarketing {
			marketing = append(marketing, p)
		}
	}

	return &Report{
		FilterStats:      content.FilterStats(good, rejected),
		TemplatesCreated: len(templates),
		Summary:          s.builder.Summarize(good),
		Topics:           s.builder.TopTopics(marketing),
	}, nil
}

// Ideas generates content ideas for a topic from stored templates.
func (s *Session) Ideas(topic string) ([]string, error) {
	templates, err := s.store.Templates()
	if err != nil {
		return nil, err
	}
	if len(templates) > 5 {
		templates = templates[len(templates)-5:]
	}
	return analysis.GenerateIdeas(topic, templates), nil
}

// LimiterStatistics exposes the limiter's aggregate counters.
func (s *Session) LimiterStatistics() ratelimit.Statistics {
	return s.limiter.Statistics()
}

// ResetBackoff clears the limiter's backoff after user intervention.
func (s *Session) ResetBackoff() {
	s.limiter.ResetBackoff()
}
