// Package vacancy defines the data model shared by the collector pipeline:
// search queries, item summaries, extracted details and persisted records.
package vacancy

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPageSize is the largest per_page value accepted by the hh.ru search endpoint.
const MaxPageSize = 100

// ErrInvalidQuery is returned when a SearchQuery fails validation.
var ErrInvalidQuery = errors.New("invalid search query")

// SearchQuery describes one paginated search. It is built once per category
// and never modified afterwards.
type SearchQuery struct {
	// Term is the search term, scoped to vacancy names by the client.
	Term string

	// PageSize is the number of items requested per page (1..MaxPageSize).
	PageSize int

	// MaxPages bounds the number of pages walked (>= 1).
	MaxPages int
}

// Validate checks the query bounds. Queries with non-positive page size or
// page budget are rejected rather than treated as no-ops.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Term) == "" {
		return fmt.Errorf("%w: term is required", ErrInvalidQuery)
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page_size must be in [1, %d] (got %d)", ErrInvalidQuery, MaxPageSize, q.PageSize)
	}
	if q.MaxPages < 1 {
		return fmt.Errorf("%w: max_pages must be >= 1 (got %d)", ErrInvalidQuery, q.MaxPages)
	}
	return nil
}

// ItemSummary is one search hit. Only the identifier is kept.
type ItemSummary struct {
	ID string `json:"id"`
}

// ItemDetail is what the detail fetcher extracts from a full vacancy record.
type ItemDetail struct {
	Name   string
	Skills []string
}

// Record converts the detail into its persisted form.
func (d ItemDetail) Record() Record {
	skills := make([]string, len(d.Skills))
	copy(skills, d.Skills)
	return Record{Name: d.Name, Skills: skills}
}

// Record is the unit of persisted output. Skills keep the order returned by
// the source and may contain duplicates.
type Record struct {
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

// CategoryBatch holds every record collected for one category label.
type CategoryBatch struct {
	Category string
	Records  []Record
}

// Len returns the number of records in the batch.
func (b CategoryBatch) Len() int {
	return len(b.Records)
}
