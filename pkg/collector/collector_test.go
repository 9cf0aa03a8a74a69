package collector

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Sternrassler/hh-skills-collector/internal/testutil"
	"github.com/Sternrassler/hh-skills-collector/pkg/pagination"
	"github.com/Sternrassler/hh-skills-collector/pkg/vacancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T, mock *testutil.MockHH, limiter *countingLimiter) *Collector {
	t.Helper()
	hh := newTestClient(t, mock)
	return New(pagination.NewWalker(hh), NewFetcher(hh, limiter))
}

func TestCollect_EndToEnd(t *testing.T) {
	mock := testutil.NewMockHH()
	defer mock.Close()

	mock.SetSearchPages("NAME:(Backend)", []string{"A", "B"})
	mock.AddVacancy(
		testutil.MockVacancy{ID: "A", Name: "A", Skills: []string{"Go", "SQL"}},
		testutil.MockVacancy{ID: "B", Name: "B", Skills: []string{}},
	)

	limiter := &countingLimiter{}
	c := newTestCollector(t, mock, limiter)

	var events []Event
	q := vacancy.SearchQuery{Term: "Backend", PageSize: 2, MaxPages: 20}
	records, stats, err := c.Collect(context.Background(), q, ObserverFunc(func(e Event) {
		events = append(events, e)
	}))
	require.NoError(t, err)

	assert.Equal(t, []vacancy.Record{{Name: "A", Skills: []string{"Go", "SQL"}}}, records)
	assert.Equal(t, Stats{Items: 2, Accepted: 1, SkippedNoSkills: 1}, stats)
	assert.Equal(t, 2, mock.GetSearchRequests())
	assert.Equal(t, 2, limiter.Calls())

	require.Len(t, events, 2)
	assert.Equal(t, EventRecord, events[0].Kind)
	assert.Equal(t, "A", events[0].ItemID)
	assert.Equal(t, 1, events[0].Records)
	assert.Equal(t, EventSkip, events[1].Kind)
	assert.Equal(t, SkippedNoSkills, events[1].Outcome)
	assert.Equal(t, 1, events[1].Records)
}

func TestCollect_SkillLessItemsProduceNoRecords(t *testing.T) {
	mock := testutil.NewMockHH()
	defer mock.Close()

	ids := []string{"1", "2", "3", "4", "5"}
	mock.SetSearchPages("NAME:(Frontend)", ids)
	for _, id := range ids {
		mock.AddVacancy(testutil.MockVacancy{ID: id, Name: "vacancy " + id, OmitSkills: id == "3"})
	}

	c := newTestCollector(t, mock, &countingLimiter{})

	q := vacancy.SearchQuery{Term: "Frontend", PageSize: 5, MaxPages: 3}
	records, stats, err := c.Collect(context.Background(), q, nil)
	require.NoError(t, err)

	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Equal(t, 5, stats.SkippedNoSkills)
	assert.Equal(t, 5, stats.Skipped())
}

func TestCollect_OrderFollowsPages(t *testing.T) {
	mock := testutil.NewMockHH()
	defer mock.Close()

	mock.SetSearchPages("NAME:(Go)", []string{"3", "1"}, []string{"2"})
	mock.AddVacancy(
		testutil.MockVacancy{ID: "1", Name: "one", Skills: []string{"a"}},
		testutil.MockVacancy{ID: "2", Name: "two", Skills: []string{"b"}},
		testutil.MockVacancy{ID: "3", Name: "three", Skills: []string{"c"}},
	)

	c := newTestCollector(t, mock, &countingLimiter{})

	q := vacancy.SearchQuery{Term: "Go", PageSize: 2, MaxPages: 5}
	records, _, err := c.Collect(context.Background(), q, nil)
	require.NoError(t, err)

	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"three", "one", "two"}, names)
}

func TestCollect_UnavailableItemIsSkipped(t *testing.T) {
	mock := testutil.NewMockHH()
	defer mock.Close()

	mock.SetSearchPages("NAME:(Go)", []string{"1", "2", "3"})
	mock.AddVacancy(
		testutil.MockVacancy{ID: "1", Name: "one", Skills: []string{"Go"}},
		testutil.MockVacancy{ID: "2", Name: "two", StatusCode: http.StatusForbidden},
		testutil.MockVacancy{ID: "3", Name: "three", Skills: []string{"Go"}},
	)

	c := newTestCollector(t, mock, &countingLimiter{})

	q := vacancy.SearchQuery{Term: "Go", PageSize: 3, MaxPages: 1}
	records, stats, err := c.Collect(context.Background(), q, nil)
	require.NoError(t, err)

	assert.Len(t, records, 2)
	assert.Equal(t, 1, stats.SkippedUnavailable)
}

func TestCollect_PageFailureKeepsPartialRecords(t *testing.T) {
	mock := testutil.NewMockHH()
	defer mock.Close()

	mock.SetSearchPages("NAME:(Go)", []string{"1"}, []string{"2"})
	mock.FailSearchPage("NAME:(Go)", 1, http.StatusServiceUnavailable)
	mock.AddVacancy(
		testutil.MockVacancy{ID: "1", Name: "one", Skills: []string{"Go"}},
		testutil.MockVacancy{ID: "2", Name: "two", Skills: []string{"Go"}},
	)

	c := newTestCollector(t, mock, &countingLimiter{})

	var pageErrors int
	q := vacancy.SearchQuery{Term: "Go", PageSize: 1, MaxPages: 5}
	records, stats, err := c.Collect(context.Background(), q, ObserverFunc(func(e Event) {
		if e.Kind == EventPageError {
			pageErrors++
		}
	}))

	require.Error(t, err)
	assert.True(t, errors.Is(err, pagination.ErrPageFetch))
	assert.Equal(t, []vacancy.Record{{Name: "one", Skills: []string{"Go"}}}, records)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, pageErrors)
	assert.Equal(t, 1, mock.GetDetailRequests())
}

func TestCollect_InvalidQuery(t *testing.T) {
	mock := testutil.NewMockHH()
	defer mock.Close()

	c := newTestCollector(t, mock, &countingLimiter{})

	_, _, err := c.Collect(context.Background(), vacancy.SearchQuery{Term: "Go", PageSize: 0, MaxPages: 1}, nil)
	assert.ErrorIs(t, err, vacancy.ErrInvalidQuery)
	assert.Equal(t, 0, mock.GetSearchRequests())
}

func TestCollect_LimiterFailureStops(t *testing.T) {
	mock := testutil.NewMockHH()
	defer mock.Close()

	mock.SetSearchPages("NAME:(Go)", []string{"1", "2"})

	limiterErr := errors.New("gate closed")
	c := newTestCollector(t, mock, &countingLimiter{err: limiterErr})

	q := vacancy.SearchQuery{Term: "Go", PageSize: 2, MaxPages: 1}
	records, stats, err := c.Collect(context.Background(), q, nil)

	assert.ErrorIs(t, err, limiterErr)
	assert.Empty(t, records)
	assert.Equal(t, 1, stats.Items)
	assert.Equal(t, 0, mock.GetDetailRequests())
}
