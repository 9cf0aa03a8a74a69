// Package ratelimit provides the request gate used to bound the outbound
// request rate against hh.ru. The gate is an injectable collaborator so the
// pipeline can run without real delays in tests.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request gating.
var (
	hhRateLimitWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hh_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the request gate by limiter kind",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
	}, []string{"limiter"})

	hhRateLimitErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_rate_limit_errors_total",
		Help: "Total number of failed waits by limiter kind",
	}, []string{"limiter"})
)

// DefaultInterval is the minimum spacing between detail requests.
const DefaultInterval = 1 * time.Second

// Limiter gates outbound requests. Wait blocks until the caller may send one
// request or ctx is done.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Interval is an in-process fixed-interval gate: at most one request per
// interval, no burst. The first Wait returns immediately.
type Interval struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewInterval creates a fixed-interval gate. A non-positive interval disables
// gating.
func NewInterval(interval time.Duration) *Interval {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Interval{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
}

// Wait blocks until the next request slot.
func (l *Interval) Wait(ctx context.Context) error {
	start := time.Now()
	err := l.limiter.Wait(ctx)
	hhRateLimitWaitSeconds.WithLabelValues("interval").Observe(time.Since(start).Seconds())
	if err != nil {
		hhRateLimitErrorsTotal.WithLabelValues("interval").Inc()
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// Interval returns the configured spacing.
func (l *Interval) Interval() time.Duration {
	return l.interval
}

// Nop never blocks. It still honours cancellation.
type Nop struct{}

// Wait returns ctx.Err().
func (Nop) Wait(ctx context.Context) error {
	return ctx.Err()
}
