// Package metrics exposes Prometheus instruments for ingestion and querying.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	global *Metrics
	once   sync.Once
)

// Metrics holds the tutor's Prometheus instruments.
type Metrics struct {
	QueriesTotal        *prometheus.CounterVec
	UpstreamErrorsTotal *prometheus.CounterVec
	SourcesTotal        *prometheus.CounterVec
	ChunksEmbeddedTotal prometheus.Counter
	CallDuration        *prometheus.HistogramVec
}

// Default registers the instruments with the default registry on first use.
//
// Metrics:
//   - tutor_queries_total{outcome} - answered, refused, unanswerable, invalid, error
//   - tutor_upstream_errors_total{stage} - embed, retrieve, lookup, generate
//   - tutor_sources_total{result} - ingested, skipped, failed
//   - tutor_chunks_embedded_total - chunks embedded during ingestion
//   - tutor_call_duration_seconds{call} - latency of external calls
func Default() *Metrics {
	once.Do(func() {
		global = &Metrics{
			QueriesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tutor_queries_total",
					Help: "Total number of questions by outcome",
				},
				[]string{"outcome"},
			),
			UpstreamErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tutor_upstream_errors_total",
					Help: "Total number of failed external calls by pipeline stage",
				},
				[]string{"stage"},
			),
			SourcesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tutor_sources_total",
					Help: "Total number of sources processed by result",
				},
				[]string{"result"},
			),
			ChunksEmbeddedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "tutor_chunks_embedded_total",
					Help: "Total number of chunks embedded during ingestion",
				},
			),
			CallDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tutor_call_duration_seconds",
					Help:    "Duration of external calls in seconds",
					Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
				},
				[]string{"call"},
			),
		}
	})
	return global
}

// Query counts one finished question. All recording methods are no-ops on a nil receiver.
func (m *Metrics) Query(outcome string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
}

// Upstream counts one failed external call.
func (m *Metrics) Upstream(stage string) {
	if m == nil {
		return
	}
	m.UpstreamErrorsTotal.WithLabelValues(stage).Inc()
}

// Source counts one processed source.
func (m *Metrics) Source(result string) {
	if m == nil {
		return
	}
	m.SourcesTotal.WithLabelValues(result).Inc()
}

// Since records the time elapsed since start for call.
func (m *Metrics) Since(call string, start time.Time) {
	if m == nil {
		return
	}
	m.CallDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
}

// Chunks counts embedded chunks.
func (m *Metrics) Chunks(n int) {
	if m == nil {
		return
	}
	m.ChunksEmbeddedTotal.Add(float64(n))
}
