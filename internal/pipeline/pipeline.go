// Package pipeline runs quality filtering and structural analysis over
// scraped posts concurrently. The filter and analyzer are pure, so posts
// can fan out across workers without shared state.
package pipeline

import (
	"context"
	"sync"

	"postwriter/pkg/analysis"
	"postwriter/pkg/content"
	"postwriter/pkg/logger"
	"postwriter/pkg/models"
)

// Result is the outcome of processing one post.
type Result struct {
	Post     models.Post
	Analyzed models.AnalyzedPost
	Quality  content.Quality
	Accepted bool
}

// Pipeline fans posts out over a bounded worker pool.
type Pipeline struct {
	numWorkers int
	filter     *content.Filter
	analyzer   *analysis.Analyzer
	logger     logger.Logger
}

// New creates a pipeline. numWorkers below 1 is raised to 1.
func New(numWorkers int, filter *content.Filter, analyzer *analysis.Analyzer, log logger.Logger) *Pipeline {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pipeline{
		numWorkers: numWorkers,
		filter:     filter,
		analyzer:   analyzer,
		logger:     log,
	}
}

// Run processes posts concurrently and returns the accepted posts (content
// replaced by filtered text, analysis attached) and the rejected ones (with
// rejection reasons). Input order is not preserved.
func (p *Pipeline) Run(ctx context.Context, posts []models.Post) (accepted []models.AnalyzedPost, rejected []models.Post) {
	jobs := make(chan models.Post)
	results := make(chan Result, p.numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < p.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for post := range jobs {
				results <- p.process(post)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, post := range posts {
			select {
			case jobs <- post:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.Accepted {
			accepted = append(accepted, r.Analyzed)
		} else {
			rejected = append(rejected, r.Post)
		}
	}

	p.logger.InfoWithFields("pipeline finished", map[string]interface{}{
		"total":    len(posts),
		"accepted": len(accepted),
		"rejected": len(rejected),
	})
	return accepted, rejected
}

func (p *Pipeline) process(post models.Post) Result {
	quality := p.filter.AssessQuality(post.Body())

	result := Result{Post: post, Quality: quality}
	result.Post.QualityScore = quality.Score

	if !quality.IsValid {
		result.Post.FilterReason = quality.Issues
		return result
	}

	result.Post.Content = p.filter.FilterUIElements(post.Body())
	result.Post.ContentType = quality.ContentType
	result.Analyzed = p.analyzer.Analyze(result.Post)
	result.Accepted = true
	return result
}
