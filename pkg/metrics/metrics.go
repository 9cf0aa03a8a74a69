// Package metrics exposes the collector's Prometheus metrics.
// All metrics are defined in their respective packages (client, pagination,
// collector, batch, storage, cache, ratelimit) and registered via promauto on
// the default registry; this package only serves them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the default Prometheus registry used by the collector.
var Registry = prometheus.DefaultRegisterer

// Path is where the handler is mounted.
const Path = "/metrics"

// shutdownTimeout bounds the listener shutdown once the run ends.
const shutdownTimeout = 5 * time.Second

// Handler returns the /metrics handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Server serves /metrics while a batch runs.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger zerolog.Logger
}

// Listen binds addr (e.g. ":9090") without serving yet.
func Listen(addr string, logger zerolog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(Path, Handler())

	return &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger.With().Str("component", "metrics").Logger(),
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until ctx is done, then shuts the listener down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.ln)
	}()

	s.logger.Info().Str("addr", s.Addr()).Msg("Metrics listener started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	s.logger.Info().Msg("Metrics listener stopped")
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - hh_requests_total{endpoint, status} (Counter): Requests by endpoint (search, vacancy) and HTTP status
//   - hh_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - hh_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Walk Metrics (pkg/pagination):
//   - hh_pages_fetched_total{outcome} (Counter): Search pages by outcome (items, empty, error)
//   - hh_items_without_id_total (Counter): Search hits dropped for a missing id
//
// Collection Metrics (pkg/collector):
//   - hh_vacancies_collected_total (Counter): Vacancies kept as records
//   - hh_vacancies_skipped_total{reason} (Counter): Vacancies skipped (no_skills, unavailable)
//
// Batch Metrics (pkg/batch, pkg/storage):
//   - hh_categories_total{status} (Counter): Categories by status (success, partial, failed)
//   - hh_category_duration_seconds{category} (Histogram): Time per category
//   - hh_artifacts_written_total{result} (Counter): Artifact writes (success, error)
//   - hh_artifact_records{category} (Gauge): Records in the last artifact per category
//
// Rate Limit Metrics (pkg/ratelimit):
//   - hh_rate_limit_wait_seconds{limiter} (Histogram): Time spent waiting (interval, redis)
//   - hh_rate_limit_errors_total{limiter} (Counter): Failed waits
//
// Cache Metrics (pkg/cache):
//   - hh_cache_lookups_total{result} (Counter): Detail cache lookups (hit, miss, corrupt)
//   - hh_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Share of vacancies kept
//   sum(rate(hh_vacancies_collected_total[5m])) /
//   (sum(rate(hh_vacancies_collected_total[5m])) + sum(rate(hh_vacancies_skipped_total[5m])))
//
//   # Detail request error rate
//   rate(hh_errors_total[5m])
//
//   # P95 detail latency
//   histogram_quantile(0.95, rate(hh_request_duration_seconds_bucket{endpoint="vacancy"}[5m]))
