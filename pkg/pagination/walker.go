package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/Sternrassler/hh-skills-collector/pkg/logging"
	"github.com/Sternrassler/hh-skills-collector/pkg/vacancy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	hhPagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_pages_fetched_total",
		Help: "Total search pages requested by outcome",
	}, []string{"outcome"}) // "items", "empty", "error"

	hhItemsWithoutIDTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hh_items_without_id_total",
		Help: "Total search hits dropped because they carried no id",
	})
)

// ErrPageFetch wraps a failed page request.
var ErrPageFetch = errors.New("page fetch failed")

// PageFetcher fetches one page of search results for a query.
type PageFetcher interface {
	// FetchPage returns the summaries of page (zero-based) in API order.
	FetchPage(ctx context.Context, q vacancy.SearchQuery, page int) ([]vacancy.ItemSummary, error)
}

// PageError describes which page failed.
type PageError struct {
	Term string
	Page int
	Err  error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("%v: term %q page %d: %v", ErrPageFetch, e.Term, e.Page, e.Err)
}

// Unwrap exposes both ErrPageFetch and the underlying cause.
func (e *PageError) Unwrap() []error {
	return []error{ErrPageFetch, e.Err}
}

// Walker iterates search pages for a query.
type Walker struct {
	fetcher PageFetcher
	logger  zerolog.Logger
}

// NewWalker creates a walker on top of fetcher.
func NewWalker(fetcher PageFetcher) *Walker {
	return &Walker{
		fetcher: fetcher,
		logger:  logging.NewLogger("page-walker"),
	}
}

// Walk returns a lazy, finite sequence of item summaries for q.
//
// Pages 0..MaxPages-1 are requested in order; the walk ends at the first page
// with no items. Hits without an id are dropped but still make the page
// non-empty. An invalid query or a failed page yields a single non-nil error
// and ends the sequence.
func (w *Walker) Walk(ctx context.Context, q vacancy.SearchQuery) iter.Seq2[vacancy.ItemSummary, error] {
	return func(yield func(vacancy.ItemSummary, error) bool) {
		if err := q.Validate(); err != nil {
			yield(vacancy.ItemSummary{}, err)
			return
		}

		for page := 0; page < q.MaxPages; page++ {
			if err := ctx.Err(); err != nil {
				yield(vacancy.ItemSummary{}, err)
				return
			}

			items, err := w.fetcher.FetchPage(ctx, q, page)
			if err != nil {
				hhPagesFetchedTotal.WithLabelValues("error").Inc()
				w.logger.Warn().
					Err(err).
					Str("term", q.Term).
					Int("page", page).
					Msg("Page fetch failed")
				yield(vacancy.ItemSummary{}, &PageError{Term: q.Term, Page: page, Err: err})
				return
			}

			if len(items) == 0 {
				hhPagesFetchedTotal.WithLabelValues("empty").Inc()
				w.logger.Debug().
					Str("term", q.Term).
					Int("page", page).
					Msg("Empty page - end of results")
				return
			}

			hhPagesFetchedTotal.WithLabelValues("items").Inc()
			w.logger.Debug().
				Str("term", q.Term).
				Int("page", page).
				Int("items", len(items)).
				Msg("Page fetched")

			for _, item := range items {
				if item.ID == "" {
					hhItemsWithoutIDTotal.Inc()
					continue
				}
				if !yield(item, nil) {
					return
				}
			}
		}

		w.logger.Debug().
			Str("term", q.Term).
			Int("max_pages", q.MaxPages).
			Msg("Page budget exhausted")
	}
}
