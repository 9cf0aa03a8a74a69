// Package testutil provides testing utilities for the hh.ru collector.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// MockVacancy is a vacancy served by the mock detail endpoint.
type MockVacancy struct {
	ID     string
	Name   string
	Skills []string

	// StatusCode overrides the response status (0 means 200).
	StatusCode int

	// OmitSkills drops the key_skills field from the body entirely.
	OmitSkills bool
}

// MockHH is a configurable mock of the hh.ru vacancies API.
type MockHH struct {
	server *httptest.Server

	mu        sync.RWMutex
	pages     map[string][][]string // text -> page index -> ids
	pageFails map[string]int        // "text#page" -> status code
	vacancies map[string]MockVacancy

	// Tracking
	SearchRequests    int
	DetailRequests    int
	SearchPages       []int
	LastRequestHeader http.Header
	LastQuery         map[string]string
}

// NewMockHH creates a new mock hh.ru server.
func NewMockHH() *MockHH {
	mock := &MockHH{
		pages:     make(map[string][][]string),
		pageFails: make(map[string]int),
		vacancies: make(map[string]MockVacancy),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/vacancies", mock.searchHandler)
	mux.HandleFunc("/vacancies/", mock.detailHandler)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server URL.
func (m *MockHH) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockHH) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockHH) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchRequests = 0
	m.DetailRequests = 0
	m.SearchPages = nil
	m.LastRequestHeader = nil
	m.LastQuery = nil
}

// SetSearchPages configures the pages returned for a raw text query. Pages
// past the configured ones are empty.
func (m *MockHH) SetSearchPages(text string, pages ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[text] = pages
}

// FailSearchPage makes the given page of a text query answer with status.
func (m *MockHH) FailSearchPage(text string, page int, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageFails[text+"#"+strconv.Itoa(page)] = status
}

// AddVacancy registers vacancies for the detail endpoint.
func (m *MockHH) AddVacancy(vacancies ...MockVacancy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vacancies {
		m.vacancies[v.ID] = v
	}
}

// GetSearchRequests returns the number of search requests received.
func (m *MockHH) GetSearchRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SearchRequests
}

// GetDetailRequests returns the number of detail requests received.
func (m *MockHH) GetDetailRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.DetailRequests
}

// GetLastUserAgent returns the User-Agent of the last request.
func (m *MockHH) GetLastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.LastRequestHeader == nil {
		return ""
	}
	return m.LastRequestHeader.Get("User-Agent")
}

// GetLastQuery returns the query parameters of the last search request.
func (m *MockHH) GetLastQuery() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.LastQuery))
	for k, v := range m.LastQuery {
		out[k] = v
	}
	return out
}

func (m *MockHH) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("text")
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	m.mu.Lock()
	m.SearchRequests++
	m.SearchPages = append(m.SearchPages, page)
	m.LastRequestHeader = r.Header.Clone()
	m.LastQuery = map[string]string{
		"text":     text,
		"page":     q.Get("page"),
		"per_page": q.Get("per_page"),
	}
	status, failing := m.pageFails[text+"#"+strconv.Itoa(page)]
	pages := m.pages[text]
	m.mu.Unlock()

	if failing {
		writeJSON(w, status, map[string]any{
			"errors": []map[string]string{{"type": "mock_failure"}},
		})
		return
	}

	var ids []string
	if page >= 0 && page < len(pages) {
		ids = pages[page]
	}

	items := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		items = append(items, map[string]string{"id": id, "name": "vacancy " + id})
	}

	found := 0
	for _, p := range pages {
		found += len(p)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"found":    found,
		"pages":    len(pages),
		"page":     page,
		"per_page": perPage,
	})
}

func (m *MockHH) detailHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/vacancies/")

	m.mu.Lock()
	m.DetailRequests++
	m.LastRequestHeader = r.Header.Clone()
	v, ok := m.vacancies[id]
	m.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"errors": []map[string]string{{"type": "not_found"}},
		})
		return
	}

	if v.StatusCode != 0 && v.StatusCode != http.StatusOK {
		writeJSON(w, v.StatusCode, map[string]any{
			"errors": []map[string]string{{"type": fmt.Sprintf("status_%d", v.StatusCode)}},
		})
		return
	}

	body := map[string]any{
		"id":   v.ID,
		"name": v.Name,
	}
	if !v.OmitSkills {
		skills := make([]map[string]string, 0, len(v.Skills))
		for _, s := range v.Skills {
			skills = append(skills, map[string]string{"name": s})
		}
		body["key_skills"] = skills
	}

	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
