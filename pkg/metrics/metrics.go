// Package metrics provides Prometheus metrics for ingestion, retrieval and chat.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all docchat metrics. A nil *Metrics records nothing.
type Metrics struct {
	// Ingestion metrics
	UploadsIngested  prometheus.Counter
	UploadsFailed    prometheus.Counter
	DocumentsIndexed *prometheus.CounterVec
	IngestDuration   prometheus.Histogram

	// Retrieval metrics
	Searches       prometheus.Counter
	SearchDuration prometheus.Histogram
	DegradedTurns  prometheus.Counter

	// Model metrics
	ModelCalls    *prometheus.CounterVec
	ModelFailures prometheus.Counter

	// Server metrics
	ActiveConnections prometheus.Gauge
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UploadsIngested: f.NewCounter(prometheus.CounterOpts{
			Name: "docchat_uploads_ingested_total",
			Help: "Total number of uploaded documents ingested",
		}),
		UploadsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "docchat_uploads_failed_total",
			Help: "Total number of uploaded documents that failed extraction",
		}),
		DocumentsIndexed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docchat_documents_indexed_total",
			Help: "Total number of chunks added to the vector index by category",
		}, []string{"category"}),
		IngestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "docchat_ingest_duration_seconds",
			Help:    "Duration of ingestion batches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4min
		}),
		Searches: f.NewCounter(prometheus.CounterOpts{
			Name: "docchat_searches_total",
			Help: "Total number of similarity searches",
		}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "docchat_search_duration_seconds",
			Help:    "Duration of similarity searches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		}),
		DegradedTurns: f.NewCounter(prometheus.CounterOpts{
			Name: "docchat_degraded_turns_total",
			Help: "Grounded turns answered without retrieved context",
		}),
		ModelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docchat_model_calls_total",
			Help: "Total number of language model calls by mode",
		}, []string{"mode"}),
		ModelFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "docchat_model_failures_total",
			Help: "Total number of failed language model calls",
		}),
		ActiveConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "docchat_active_connections",
			Help: "Number of open websocket connections",
		}),
	}
}

func (m *Metrics) ObserveIngest(ingested, failed int, d time.Duration) {
	if m == nil {
		return
	}
	m.UploadsIngested.Add(float64(ingested))
	m.UploadsFailed.Add(float64(failed))
	m.IngestDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveIndexed(category string, n int) {
	if m == nil {
		return
	}
	m.DocumentsIndexed.WithLabelValues(category).Add(float64(n))
}

func (m *Metrics) ObserveSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.Searches.Inc()
	m.SearchDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveDegraded() {
	if m == nil {
		return
	}
	m.DegradedTurns.Inc()
}

func (m *Metrics) ObserveModelCall(mode string, err error) {
	if m == nil {
		return
	}
	m.ModelCalls.WithLabelValues(mode).Inc()
	if err != nil {
		m.ModelFailures.Inc()
	}
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}
