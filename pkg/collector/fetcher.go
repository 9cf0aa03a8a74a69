package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/hh-skills-collector/pkg/cache"
	"github.com/Sternrassler/hh-skills-collector/pkg/client"
	"github.com/Sternrassler/hh-skills-collector/pkg/logging"
	"github.com/Sternrassler/hh-skills-collector/pkg/ratelimit"
	"github.com/Sternrassler/hh-skills-collector/pkg/vacancy"
	"github.com/rs/zerolog"
)

// Outcome is the result of one detail fetch.
type Outcome int

const (
	// Accepted means the vacancy has at least one skill and becomes a record.
	Accepted Outcome = iota

	// SkippedNoSkills means the vacancy was fetched but lists no skills.
	SkippedNoSkills

	// SkippedUnavailable means the detail request failed or returned a
	// non-success status.
	SkippedUnavailable
)

// String returns the label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case SkippedNoSkills:
		return "no_skills"
	case SkippedUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DetailSource returns the full record of one vacancy.
type DetailSource interface {
	Vacancy(ctx context.Context, id string) (*client.VacancyDetail, error)
}

// Cache stores extracted vacancy details by id. Get reports a miss with
// cache.ErrMiss.
type Cache interface {
	Get(ctx context.Context, id string) (cache.Entry, error)
	Put(ctx context.Context, id string, detail vacancy.ItemDetail, ttl time.Duration) error
}

// DefaultCacheTTL is used when a cache is configured without a TTL.
const DefaultCacheTTL = 24 * time.Hour

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithCache enables the detail cache. Entries live for ttl (DefaultCacheTTL
// when ttl <= 0).
func WithCache(c Cache, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithFetcherLogger replaces the component logger.
func WithFetcherLogger(logger zerolog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// Fetcher retrieves vacancy details one at a time behind a rate limiter.
type Fetcher struct {
	source   DetailSource
	limiter  ratelimit.Limiter
	cache    Cache
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewFetcher creates a detail fetcher. A nil limiter disables gating.
func NewFetcher(source DetailSource, limiter ratelimit.Limiter, opts ...FetcherOption) *Fetcher {
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}
	f := &Fetcher{
		source:  source,
		limiter: limiter,
		logger:  logging.NewLogger("detail-fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves and extracts one vacancy.
//
// Unavailable vacancies and vacancies without skills are reported through
// the Outcome, never as errors. The returned error is non-nil only when ctx
// is done or the limiter fails; the caller should stop in that case.
func (f *Fetcher) Fetch(ctx context.Context, id string) (vacancy.ItemDetail, Outcome, error) {
	if err := ctx.Err(); err != nil {
		return vacancy.ItemDetail{}, SkippedUnavailable, err
	}

	item, ok := f.fromCache(ctx, id)
	if !ok {
		if err := f.limiter.Wait(ctx); err != nil {
			return vacancy.ItemDetail{}, SkippedUnavailable, err
		}

		detail, err := f.source.Vacancy(ctx, id)
		if err != nil {
			if ctx.Err() != nil && client.IsContextError(err) {
				return vacancy.ItemDetail{}, SkippedUnavailable, err
			}
			f.logger.Warn().
				Err(err).
				Str("vacancy_id", id).
				Msg("Vacancy unavailable - skipping")
			return vacancy.ItemDetail{}, SkippedUnavailable, nil
		}

		item = vacancy.ItemDetail{
			Name:   detail.Name,
			Skills: ExtractSkills(detail.KeySkills),
		}
		f.toCache(ctx, id, item)
	}

	if len(item.Skills) == 0 {
		f.logger.Debug().
			Str("vacancy_id", id).
			Msg("Vacancy lists no skills - skipping")
		return item, SkippedNoSkills, nil
	}
	return item, Accepted, nil
}

// ExtractSkills returns the skill names in source order. Blank names are
// dropped; duplicates are kept.
func ExtractSkills(skills []client.KeySkill) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		out = append(out, s.Name)
	}
	return out
}

func (f *Fetcher) fromCache(ctx context.Context, id string) (vacancy.ItemDetail, bool) {
	if f.cache == nil {
		return vacancy.ItemDetail{}, false
	}

	entry, err := f.cache.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			f.logger.Warn().Err(err).Str("vacancy_id", id).Msg("Cache read failed")
		}
		return vacancy.ItemDetail{}, false
	}

	f.logger.Trace().
		Str("vacancy_id", id).
		Time("cached_at", entry.CachedAt).
		Msg("Vacancy served from cache")
	return entry.Detail(), true
}

func (f *Fetcher) toCache(ctx context.Context, id string, item vacancy.ItemDetail) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Put(ctx, id, item, f.cacheTTL); err != nil {
		f.logger.Warn().Err(err).Str("vacancy_id", id).Msg("Cache write failed")
	}
}
