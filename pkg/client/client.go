// Package client provides the hh.ru HTTP client used by the collector:
// identification header, error classification, metrics and response decoding.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/hh-skills-collector/pkg/logging"
	"github.com/Sternrassler/hh-skills-collector/pkg/vacancy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for hh.ru client operations.
var (
	hhRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_requests_total",
		Help: "Total hh.ru API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	hhRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hh_request_duration_seconds",
		Help:    "hh.ru API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	hhErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_errors_total",
		Help: "Total hh.ru API errors by class",
	}, []string{"class"})
)

// Endpoint labels. Raw paths are never used as label values because detail
// paths embed the vacancy id.
const (
	EndpointSearch  = "search"
	EndpointVacancy = "vacancy"
)

const (
	// DefaultBaseURL is the public hh.ru API root.
	DefaultBaseURL = "https://api.hh.ru"

	// DefaultUserAgent is the identification header value sent with every request.
	DefaultUserAgent = "HH-User-Agent"

	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 30 * time.Second
)

// Client talks to the hh.ru vacancies API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. https://api.hh.ru
	BaseURL string

	// UserAgent identifies this client to hh.ru (REQUIRED).
	UserAgent string

	// Timeout for a single request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultConfig returns the production configuration for the given User-Agent.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   DefaultTimeout,
	}
}

// New creates a new hh.ru client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  logging.NewLogger("hh-client"),
	}, nil
}

// Do sends the request with the identification headers and records metrics.
// Responses are returned for every status code; callers decide what a
// non-success status means.
func (c *Client) Do(req *http.Request, endpoint string) (*http.Response, error) {
	startTime := time.Now()
	defer func() {
		hhRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("url", req.URL.String()).
		Msg("Executing hh.ru request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := classifyError(nil, err)
		hhErrorsTotal.WithLabelValues(string(errClass)).Inc()
		hhRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &APIError{
			Endpoint:   endpoint,
			ErrorClass: errClass,
			Message:    "transport failure",
			Err:        err,
		}
	}

	hhRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyError(resp, nil)
		hhErrorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("hh.ru request error")
	}

	return resp, nil
}

// get builds and sends a GET request for path relative to the base URL.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) (*http.Response, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req, endpoint)
}

// getJSON performs a GET and decodes a 2xx JSON body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	resp, err := c.get(ctx, endpoint, path, query)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			ErrorClass: classifyError(resp, nil),
			Message:    strings.TrimSpace(resp.Status + " " + string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		hhErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response body",
			Err:        err,
		}
	}
	return nil
}

// NameQuery scopes a search term to vacancy names using hh.ru query syntax.
func NameQuery(term string) string {
	return "NAME:(" + term + ")"
}

// SearchVacancies fetches one page of search results for the raw text query.
func (c *Client) SearchVacancies(ctx context.Context, text string, perPage, page int) (*SearchResponse, error) {
	query := url.Values{}
	query.Set("text", text)
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("page", strconv.Itoa(page))

	var out SearchResponse
	if err := c.getJSON(ctx, EndpointSearch, "/vacancies", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchPage returns the item summaries of one search page for q, in the order
// returned by the API. Items without an id are kept so the caller can tell an
// empty page from a page of unusable items.
func (c *Client) FetchPage(ctx context.Context, q vacancy.SearchQuery, page int) ([]vacancy.ItemSummary, error) {
	resp, err := c.SearchVacancies(ctx, NameQuery(q.Term), q.PageSize, page)
	if err != nil {
		return nil, err
	}

	items := make([]vacancy.ItemSummary, len(resp.Items))
	for i, item := range resp.Items {
		items[i] = vacancy.ItemSummary{ID: item.ID}
	}
	return items, nil
}

// Vacancy fetches the full record of one vacancy.
func (c *Client) Vacancy(ctx context.Context, id string) (*VacancyDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("vacancy id cannot be empty")
	}

	var out VacancyDetail
	if err := c.getJSON(ctx, EndpointVacancy, "/vacancies/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// drainAndClose lets the transport reuse the connection.
func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// IsContextError reports whether err was caused by context cancellation or
// deadline expiry rather than by the upstream.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
