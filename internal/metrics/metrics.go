// Package metrics exposes Prometheus collectors for badge evaluation, leaderboard
// composition and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "teamfit"

// Evaluation outcomes.
const (
	OutcomeAwarded   = "awarded"
	OutcomeUnchanged = "unchanged"
	OutcomeDeferred  = "deferred"
	OutcomeSkipped   = "skipped"
)

// Cache results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Collector owns a private registry so several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	badgesAwarded  *prometheus.CounterVec
	writeConflicts prometheus.Counter
	evaluations    *prometheus.CounterVec
	composeLatency *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	refreshRuns    *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates a collector with every metric registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		badgesAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badges_awarded_total",
			Help:      "Badges newly awarded, by badge id.",
		}, []string{"badge"}),
		writeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badge_write_conflicts_total",
			Help:      "Badge merges deferred because concurrent writers exhausted the retries.",
		}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Badge evaluation cycles, by outcome.",
		}, []string{"outcome"}),
		composeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaderboard_compose_seconds",
			Help:      "Time spent fetching and composing a leaderboard.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"mode"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_cache_total",
			Help:      "Leaderboard cache lookups, by result.",
		}, []string{"result"}),
		refreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "refresh_runs_total",
			Help:      "Scheduled leaderboard refresh runs, by success.",
		}, []string{"success"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.badgesAwarded,
		c.writeConflicts,
		c.evaluations,
		c.composeLatency,
		c.cacheLookups,
		c.refreshRuns,
		c.httpRequests,
		c.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// BadgeAwarded counts one newly earned badge.
func (c *Collector) BadgeAwarded(badge string) {
	if c == nil {
		return
	}
	c.badgesAwarded.WithLabelValues(badge).Inc()
}

// WriteConflict counts a merge deferred to the next evaluation.
func (c *Collector) WriteConflict() {
	if c == nil {
		return
	}
	c.writeConflicts.Inc()
}

// Evaluation counts one evaluation cycle.
func (c *Collector) Evaluation(outcome string) {
	if c == nil {
		return
	}
	c.evaluations.WithLabelValues(outcome).Inc()
}

// ObserveCompose records how long building a leaderboard took.
func (c *Collector) ObserveCompose(mode string, d time.Duration) {
	if c == nil {
		return
	}
	c.composeLatency.WithLabelValues(mode).Observe(d.Seconds())
}

// CacheLookup counts a leaderboard cache access.
func (c *Collector) CacheLookup(result string) {
	if c == nil {
		return
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// RefreshRun counts a scheduled refresh pass.
func (c *Collector) RefreshRun(success bool) {
	if c == nil {
		return
	}
	c.refreshRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// Middleware records request counts and latency per chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
