// Package collector turns a search query into vacancy records: it walks the
// search pages, fetches every item's detail behind the rate limiter and keeps
// the vacancies that list at least one skill.
package collector

import (
	"context"
	"errors"
	"iter"

	"github.com/Sternrassler/hh-skills-collector/pkg/logging"
	"github.com/Sternrassler/hh-skills-collector/pkg/pagination"
	"github.com/Sternrassler/hh-skills-collector/pkg/vacancy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	hhVacanciesCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hh_vacancies_collected_total",
		Help: "Total vacancies kept as records",
	})

	hhVacanciesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_vacancies_skipped_total",
		Help: "Total vacancies skipped by reason",
	}, []string{"reason"}) // "no_skills", "unavailable"
)

// ItemWalker yields the item summaries of a query.
type ItemWalker interface {
	Walk(ctx context.Context, q vacancy.SearchQuery) iter.Seq2[vacancy.ItemSummary, error]
}

// DetailFetcher fetches and classifies one item.
type DetailFetcher interface {
	Fetch(ctx context.Context, id string) (vacancy.ItemDetail, Outcome, error)
}

// Stats counts what happened during one collection.
type Stats struct {
	Items              int
	Accepted           int
	SkippedNoSkills    int
	SkippedUnavailable int
}

// Skipped returns the total number of skipped items.
func (s Stats) Skipped() int {
	return s.SkippedNoSkills + s.SkippedUnavailable
}

// Collector drives the walker and fetcher for one query at a time.
type Collector struct {
	walker  ItemWalker
	fetcher DetailFetcher
	logger  zerolog.Logger
}

// New creates a collector.
func New(walker ItemWalker, fetcher DetailFetcher) *Collector {
	return &Collector{
		walker:  walker,
		fetcher: fetcher,
		logger:  logging.NewLogger("collector"),
	}
}

// Collect gathers the records for q, strictly in page order and then in
// within-page order. Items are processed one at a time.
//
// If the walk stops on a failed page, the records gathered so far are
// returned together with the error. observer may be nil.
func (c *Collector) Collect(ctx context.Context, q vacancy.SearchQuery, observer Observer) ([]vacancy.Record, Stats, error) {
	if observer == nil {
		observer = ObserverFunc(func(Event) {})
	}

	records := make([]vacancy.Record, 0)
	var stats Stats

	for item, err := range c.walker.Walk(ctx, q) {
		if err != nil {
			if errors.Is(err, pagination.ErrPageFetch) {
				observer.Observe(Event{
					Kind:    EventPageError,
					Term:    q.Term,
					Records: len(records),
					Err:     err,
				})
			}
			return records, stats, err
		}

		stats.Items++
		detail, outcome, err := c.fetcher.Fetch(ctx, item.ID)
		if err != nil {
			return records, stats, err
		}

		switch outcome {
		case Accepted:
			stats.Accepted++
			hhVacanciesCollectedTotal.Inc()
			records = append(records, detail.Record())
			observer.Observe(Event{
				Kind:    EventRecord,
				Term:    q.Term,
				ItemID:  item.ID,
				Records: len(records),
				Outcome: outcome,
			})
			continue
		case SkippedNoSkills:
			stats.SkippedNoSkills++
		default:
			stats.SkippedUnavailable++
		}

		hhVacanciesSkippedTotal.WithLabelValues(outcome.String()).Inc()
		observer.Observe(Event{
			Kind:    EventSkip,
			Term:    q.Term,
			ItemID:  item.ID,
			Records: len(records),
			Outcome: outcome,
		})
	}

	c.logger.Debug().
		Str("term", q.Term).
		Int("items", stats.Items).
		Int("records", len(records)).
		Int("skipped", stats.Skipped()).
		Msg("Collection finished")

	return records, stats, nil
}
