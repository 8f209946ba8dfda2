package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. They live on their own registry so tests can build
// as many servers as they like.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal        *prometheus.CounterVec
	ResolveAttemptsTotal *prometheus.CounterVec
	ResolveDuration      *prometheus.HistogramVec
	CatalogSongsTotal    *prometheus.CounterVec
	OfflineDownloads     *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	metrics := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audiomab_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		ResolveAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audiomab_resolve_attempts_total",
				Help: "Total number of backend attempts",
			},
			[]string{"backend", "operation", "outcome"},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audiomab_resolve_duration_seconds",
				Help:    "Time spent in a single backend attempt",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CatalogSongsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audiomab_catalog_songs_total",
				Help: "Total number of catalog songs by match result",
			},
			[]string{"result"},
		),
		OfflineDownloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audiomab_offline_downloads_total",
				Help: "Total number of offline downloads by status",
			},
			[]string{"status"},
		),
	}

	metrics.Registry.MustRegister(
		metrics.RequestsTotal,
		metrics.ResolveAttemptsTotal,
		metrics.ResolveDuration,
		metrics.CatalogSongsTotal,
		metrics.OfflineDownloads,
	)

	return metrics
}

// RecordRequest counts a finished HTTP request.
func (m *Metrics) RecordRequest(route string, status int) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// RecordAttempt counts one backend attempt and its duration.
func (m *Metrics) RecordAttempt(backend, operation, outcome string, duration time.Duration) {
	m.ResolveAttemptsTotal.WithLabelValues(backend, operation, outcome).Inc()
	m.ResolveDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordCatalogSong(result string) {
	m.CatalogSongsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordOfflineDownload(status string) {
	m.OfflineDownloads.WithLabelValues(status).Inc()
}
