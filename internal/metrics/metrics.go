// Package metrics exposes Prometheus collectors for the nomination crawl.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Crawl stages used as label values.
const (
	StageOverview = "overview"
	StageDetail   = "detail"
)

// Page outcomes used as label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	pagesTotal                 *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	summariesTotal             *prometheus.CounterVec
	peopleTotal                prometheus.Counter
	skippedRowsTotal           *prometheus.CounterVec
	pendingNominations         prometheus.Gauge
	exportRowsTotal            prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nominations_pages_total",
				Help: "Archive pages fetched, labeled by crawl stage and outcome.",
			},
			[]string{"stage", "status"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nominations_fetch_duration_seconds",
				Help:    "Histogram of archive page fetch latencies, labeled by crawl stage.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"stage"},
		)

		summariesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nominations_summaries_total",
				Help: "Nomination summaries seen by the overview crawl, labeled by whether they were new.",
			},
			[]string{"result"},
		)

		peopleTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nominations_people_saved_total",
				Help: "Person detail rows written by the detail crawl.",
			},
		)

		skippedRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nominations_skipped_rows_total",
				Help: "Rows or fields dropped while parsing, labeled by crawl stage.",
			},
			[]string{"stage"},
		)

		pendingNominations = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nominations_pending",
				Help: "Nominations still waiting for their detail page.",
			},
		)

		exportRowsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nominations_export_rows_total",
				Help: "Rows written to CSV exports.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage records one archive fetch.
func ObservePage(stage, status string, duration time.Duration) {
	pagesTotal.WithLabelValues(stage, status).Inc()
	fetchDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveSummary records an overview row and whether it was newly stored.
func ObserveSummary(inserted bool) {
	result := "existing"
	if inserted {
		result = "inserted"
	}
	summariesTotal.WithLabelValues(result).Inc()
}

// ObservePeople adds newly stored person rows.
func ObservePeople(n int) {
	if n > 0 {
		peopleTotal.Add(float64(n))
	}
}

// ObserveSkipped adds rows or fields dropped during parsing.
func ObserveSkipped(stage string, n int) {
	if n > 0 {
		skippedRowsTotal.WithLabelValues(stage).Add(float64(n))
	}
}

// SetPending records the size of the detail backlog.
func SetPending(n int) {
	pendingNominations.Set(float64(n))
}

// ObserveExport adds rows written to an export.
func ObserveExport(rows int) {
	exportRowsTotal.Add(float64(rows))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
