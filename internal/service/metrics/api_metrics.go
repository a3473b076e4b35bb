package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fundflow",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of fund flow endpoints",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundflow",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by fund flow endpoint",
		},
		[]string{"endpoint", "code"},
	)

	ActiveStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fundflow",
			Subsystem: "api",
			Name:      "active_streams",
			Help:      "Analysis streams currently open",
		},
		[]string{"transport"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, ActiveStreams)
	})
}

// ObserveSince records the latency of endpoint measured from start.
func ObserveSince(endpoint string, start time.Time) {
	APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
