// Package metrics exposes Prometheus instrumentation for scrapes, saves,
// generation calls and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "reblock"

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Generation kinds.
const (
	KindText  = "text"
	KindImage = "image"
)

// Metrics holds all reblock Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Page metrics
	ScrapesTotal      *prometheus.CounterVec
	ScrapeDuration    prometheus.Histogram
	ExtractedBlocks   prometheus.Histogram
	SavesTotal        *prometheus.CounterVec
	PagesDeletedTotal prometheus.Counter

	// Generation metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics on reg.
// A nil reg uses a fresh private registry, so repeated calls never collide.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	factory := promauto.With(reg)
	m := &Metrics{gatherer: reg}

	m.initPageMetrics(factory)
	m.initGenerationMetrics(factory)
	m.initHTTPMetrics(factory)

	return m
}

func (m *Metrics) initPageMetrics(factory promauto.Factory) {
	m.ScrapesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scrapes_total",
			Help:      "Total number of scrape requests by outcome",
		},
		[]string{"status"},
	)

	m.ScrapeDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Time to fetch and extract one page",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

	m.ExtractedBlocks = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "extracted_blocks",
			Help:      "Number of blocks extracted per scraped page",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	m.SavesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "saves_total",
			Help:      "Total number of modification saves by outcome",
		},
		[]string{"status"},
	)

	m.PagesDeletedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pages_deleted_total",
			Help:      "Total number of page records deleted",
		},
	)
}

func (m *Metrics) initGenerationMetrics(factory promauto.Factory) {
	m.GenerationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generations_total",
			Help:      "Total number of text and image generation calls by outcome",
		},
		[]string{"kind", "status"},
	)

	m.GenerationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2min
		},
		[]string{"kind"},
	)
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveScrape records one scrape attempt.
func (m *Metrics) ObserveScrape(err error, blocks int, d time.Duration) {
	if m == nil {
		return
	}
	m.ScrapesTotal.WithLabelValues(status(err)).Inc()
	m.ScrapeDuration.Observe(d.Seconds())
	if err == nil {
		m.ExtractedBlocks.Observe(float64(blocks))
	}
}

// ObserveSave records one modification save.
func (m *Metrics) ObserveSave(err error) {
	if m == nil {
		return
	}
	m.SavesTotal.WithLabelValues(status(err)).Inc()
}

// ObserveDeleted adds n deleted records.
func (m *Metrics) ObserveDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PagesDeletedTotal.Add(float64(n))
}

// ObserveGeneration records one generation call of the given kind.
func (m *Metrics) ObserveGeneration(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(kind, status(err)).Inc()
	m.GenerationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
