package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches     *prometheus.CounterVec
	cache       *prometheus.CounterVec
	archived    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	fragments   *prometheus.CounterVec
}

// New creates a recorder registered on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundflow_upstream_fetches_total",
				Help: "Upstream fund flow fetches by source and result",
			},
			[]string{"source", "result"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundflow_cache_requests_total",
				Help: "Snapshot cache lookups by result",
			},
			[]string{"result"},
		),
		archived: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundflow_archived_rows_total",
				Help: "Raw rows archived per backend",
			},
			[]string{"backend"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundflow_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundflow_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		fragments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundflow_llm_fragments_total",
				Help: "Streamed analysis fragments per provider",
			},
			[]string{"provider"},
		),
	}
}

func (r *Recorder) RecordFetch(source, result string) {
	r.fetches.WithLabelValues(source, result).Inc()
}

func (r *Recorder) RecordCache(result string) {
	r.cache.WithLabelValues(result).Inc()
}

// RecordArchived adds rows written to an archive backend.
func (r *Recorder) RecordArchived(backend string, rows int) {
	r.archived.WithLabelValues(backend).Add(float64(rows))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordFragments(provider string, n int) {
	r.fragments.WithLabelValues(provider).Add(float64(n))
}
