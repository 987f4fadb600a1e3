package pipeline

import (
	"context"
	"time"

	"github.com/coursemix/coursesync/internal/course"
	"github.com/coursemix/coursesync/internal/logger"
	"github.com/coursemix/coursesync/internal/metrics"
	"github.com/coursemix/coursesync/internal/store"
)

// Outcome is what happened to one course
type Outcome string

const (
	OutcomeStored  Outcome = "stored"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Store operation labels for duration metrics
const (
	opLookup         = "lookup"
	opInsert         = "insert"
	opInsertIfAbsent = "insert_if_absent"
)

// Fetcher returns the courses found on one page
type Fetcher interface {
	FetchCourses(ctx context.Context, pageURL string) ([]*course.Course, error)
}

// Pipeline syncs calendar pages into a store
type Pipeline struct {
	fetcher     Fetcher
	store       store.Store
	metrics     *metrics.Metrics
	log         *logger.Logger
	conditional bool
	runID       string
	dryRun      bool
	now         func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithMetrics records page and course counters on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets the logger; the package default is used otherwise
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithConditionalInsert enables single-call inserts on stores that support them
func WithConditionalInsert(enabled bool) Option {
	return func(p *Pipeline) {
		p.conditional = enabled
	}
}

// WithRunID tags the summary and every log line with id
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// WithDryRun marks the summary as a dry run
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}

// New creates a Pipeline reading pages with f and writing to s
func New(f Fetcher, s store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:     f,
		store:       s,
		log:         logger.Default(),
		conditional: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID != "" {
		p.log = p.log.With(logger.Fields{"run_id": p.runID})
	}
	return p
}

// Run processes urls in order and returns what happened. When ctx is done it stops before the
// next page or course and marks the summary interrupted.
func (p *Pipeline) Run(ctx context.Context, urls []string) *Summary {
	summary := &Summary{
		RunID:     p.runID,
		DryRun:    p.dryRun,
		StartedAt: p.now().UTC(),
	}

	for _, pageURL := range urls {
		if err := ctx.Err(); err != nil {
			p.log.Warn("Sync interrupted", logger.Fields{"remaining_pages": len(urls) - len(summary.Pages)})
			summary.Interrupted = true
			break
		}
		result := p.runPage(ctx, pageURL)
		summary.add(result)
		if result.Interrupted {
			p.log.Warn("Sync interrupted", logger.Fields{
				"url":             pageURL,
				"remaining_pages": len(urls) - len(summary.Pages),
			})
			break
		}
	}

	summary.Duration = p.now().Sub(summary.StartedAt)
	if p.metrics != nil {
		p.metrics.FinishRun(p.now(), summary.Duration)
	}

	p.log.Info("Sync finished", logger.Fields{
		"pages_fetched": summary.PagesFetched,
		"pages_failed":  summary.PagesFailed,
		"stored":        summary.Stored,
		"skipped":       summary.Skipped,
		"failed":        summary.Failed,
		"duration":      summary.Duration.String(),
	})
	return summary
}

func (p *Pipeline) runPage(ctx context.Context, pageURL string) PageResult {
	result := PageResult{URL: pageURL}
	log := p.log.With(logger.Fields{"url": pageURL})
	log.Info("Scraping courses", nil)

	start := p.now()
	courses, err := p.fetcher.FetchCourses(ctx, pageURL)
	if p.metrics != nil {
		pageResult := metrics.PageFetched
		if err != nil {
			pageResult = metrics.PageFailed
		}
		p.metrics.ObservePage(pageResult, p.now().Sub(start))
	}
	if err != nil {
		log.Error("Error fetching page", nil, err)
		result.Error = err.Error()
		return result
	}

	result.Courses = len(courses)
	for _, c := range courses {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}
		outcome := p.syncCourse(ctx, c)
		result.count(outcome)
		if p.metrics != nil {
			p.metrics.ObserveCourse(string(outcome))
		}
		echo(log, c)
	}
	return result
}

// syncCourse stores c unless its code is already present
func (p *Pipeline) syncCourse(ctx context.Context, c *course.Course) Outcome {
	fields := logger.Fields{"course_code": c.Code}

	if ci, ok := p.store.(store.ConditionalInserter); ok && p.conditional {
		start := p.now()
		inserted, err := ci.InsertIfAbsent(ctx, c)
		p.observeStore(opInsertIfAbsent, start)
		switch {
		case err != nil:
			p.log.Error("Error storing course", fields, err)
			return OutcomeFailed
		case !inserted:
			p.log.Info("Skipping duplicate course", fields)
			return OutcomeSkipped
		default:
			p.log.Info("Successfully stored course", fields)
			return OutcomeStored
		}
	}

	start := p.now()
	exists, err := p.store.FindByCode(ctx, c.Code)
	p.observeStore(opLookup, start)
	if err != nil {
		p.log.Error("Error storing course", fields, err)
		return OutcomeFailed
	}
	if exists {
		p.log.Info("Skipping duplicate course", fields)
		return OutcomeSkipped
	}

	start = p.now()
	err = p.store.Insert(ctx, c)
	p.observeStore(opInsert, start)
	switch {
	case store.IsUniqueViolation(err):
		p.log.Info("Skipping duplicate course", fields)
		return OutcomeSkipped
	case err != nil:
		p.log.Error("Error storing course", fields, err)
		return OutcomeFailed
	}
	p.log.Info("Successfully stored course", fields)
	return OutcomeStored
}

func (p *Pipeline) observeStore(op string, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveStore(op, p.now().Sub(start))
	}
}

// echo logs the extracted record at debug level
func echo(log *logger.Logger, c *course.Course) {
	if !log.Enabled(logger.LevelDebug) {
		return
	}
	log.Debug("Course", logger.Fields{
		"course_code":  c.Code,
		"title":        c.NameOrEmpty(),
		"description":  c.DescriptionOrEmpty(),
		"prerequisite": c.Prerequisite,
	})
}
