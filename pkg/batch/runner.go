// Package batch runs the collector over an ordered list of categories and
// persists one artifact per category.
//
// Categories are isolated from each other: a failed page walk or a failed
// write marks that category as failed and the run moves on. Only context
// cancellation stops the run early.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/hh-skills-collector/pkg/analysis"
	"github.com/Sternrassler/hh-skills-collector/pkg/collector"
	"github.com/Sternrassler/hh-skills-collector/pkg/vacancy"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	hhCategoriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_categories_total",
		Help: "Total categories processed by status",
	}, []string{"status"}) // "success", "partial", "failed"

	hhCategoryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hh_category_duration_seconds",
		Help:    "Time spent collecting and saving one category",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"category"})
)

// Category status values.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// ErrInvalidConfig is returned by NewRunner for unusable configurations.
var ErrInvalidConfig = errors.New("invalid batch config")

// Category maps an artifact label to a search term.
type Category struct {
	Label string
	Term  string
}

// Config holds everything a run needs. Categories are processed in slice
// order.
type Config struct {
	Categories []Category
	PageSize   int
	MaxPages   int
}

// Validate checks that the config can drive a run.
func (c Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Label) == "" {
			return fmt.Errorf("%w: category %d has no label", ErrInvalidConfig, i)
		}
		if seen[cat.Label] {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidConfig, cat.Label)
		}
		seen[cat.Label] = true
	}
	return nil
}

// Collector gathers the records of one query.
type Collector interface {
	Collect(ctx context.Context, q vacancy.SearchQuery, observer collector.Observer) ([]vacancy.Record, collector.Stats, error)
}

// Store persists a category batch and returns where it went.
type Store interface {
	Save(ctx context.Context, batch vacancy.CategoryBatch) (string, error)
}

// CategoryResult describes how one category went.
type CategoryResult struct {
	Label     string
	Term      string
	Records   int
	Stats     collector.Stats
	Artifact  string // empty when nothing was written
	TopSkills []analysis.SkillCount
	Duration  time.Duration
	Err       error
}

// Status returns StatusSuccess, StatusPartial (failed but an artifact was
// written) or StatusFailed.
func (r CategoryResult) Status() string {
	switch {
	case r.Err == nil:
		return StatusSuccess
	case r.Artifact != "":
		return StatusPartial
	default:
		return StatusFailed
	}
}

// Summary is the outcome of a whole run.
type Summary struct {
	RunID      string
	Started    time.Time
	Duration   time.Duration
	Categories []CategoryResult
}

// Failed returns the categories that did not complete cleanly.
func (s Summary) Failed() []CategoryResult {
	var out []CategoryResult
	for _, r := range s.Categories {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Records returns the total number of records written.
func (s Summary) Records() int {
	n := 0
	for _, r := range s.Categories {
		if r.Artifact != "" {
			n += r.Records
		}
	}
	return n
}

// Option configures a Runner.
type Option func(*Runner)

// WithReporter replaces the default LogReporter.
func WithReporter(r Reporter) Option {
	return func(rn *Runner) {
		rn.reporter = r
	}
}

// WithTopN sets how many top skills each result carries.
func WithTopN(n int) Option {
	return func(rn *Runner) {
		rn.topN = n
	}
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(rn *Runner) {
		rn.runID = id
	}
}

// Runner executes a batch.
type Runner struct {
	config    Config
	collector Collector
	store     Store
	reporter  Reporter
	topN      int
	runID     string
}

// NewRunner creates a runner. The config is copied; later changes to the
// caller's slice do not affect the run.
func NewRunner(cfg Config, c Collector, s Store, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c == nil || s == nil {
		return nil, fmt.Errorf("%w: collector and store are required", ErrInvalidConfig)
	}

	cfg.Categories = append([]Category(nil), cfg.Categories...)
	r := &Runner{
		config:    cfg,
		collector: c,
		store:     s,
		topN:      analysis.DefaultTopN,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reporter == nil {
		r.reporter = NewLogReporter(log.Logger)
	}
	return r, nil
}

// Run processes every category in order. The returned error is non-nil only
// when ctx ended the run early; per-category failures are in the summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	runID := r.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	summary := Summary{
		RunID:   runID,
		Started: time.Now(),
	}

	var runErr error
	for _, cat := range r.config.Categories {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		result := r.runCategory(ctx, runID, cat)
		summary.Categories = append(summary.Categories, result)

		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
	}

	summary.Duration = time.Since(summary.Started)
	r.reporter.RunFinished(summary)
	return summary, runErr
}

func (r *Runner) runCategory(ctx context.Context, runID string, cat Category) CategoryResult {
	start := time.Now()
	r.reporter.CategoryStarted(runID, cat)

	q := vacancy.SearchQuery{
		Term:     cat.Term,
		PageSize: r.config.PageSize,
		MaxPages: r.config.MaxPages,
	}

	records, stats, err := r.collector.Collect(ctx, q, collector.ObserverFunc(func(e collector.Event) {
		r.reporter.Progress(cat, e)
	}))

	result := CategoryResult{
		Label:   cat.Label,
		Term:    cat.Term,
		Records: len(records),
		Stats:   stats,
		Err:     err,
	}

	// an invalid query collected nothing and a cancelled run writes nothing
	switch {
	case ctx.Err() != nil:
		if result.Err == nil {
			result.Err = ctx.Err()
		}
	case errors.Is(err, vacancy.ErrInvalidQuery):
	default:
		path, saveErr := r.store.Save(ctx, vacancy.CategoryBatch{Category: cat.Label, Records: records})
		if saveErr != nil {
			result.Err = errors.Join(err, fmt.Errorf("save %s: %w", cat.Label, saveErr))
		} else {
			result.Artifact = path
		}
	}

	result.TopSkills = analysis.Top(records, r.topN)
	result.Duration = time.Since(start)

	hhCategoriesTotal.WithLabelValues(result.Status()).Inc()
	hhCategoryDuration.WithLabelValues(cat.Label).Observe(result.Duration.Seconds())

	r.reporter.CategoryFinished(result)
	return result
}
