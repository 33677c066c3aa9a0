package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Origins of an analysis request.
const (
	OriginHTTP  = "http"
	OriginKafka = "kafka"
	OriginCLI   = "cli"
)

var (
	once sync.Once

	AnalysisRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contractscan",
			Subsystem: "requests",
			Name:      "total",
			Help:      "Analysis requests by origin and outcome",
		},
		[]string{"origin", "outcome"},
	)

	AnalysisLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "contractscan",
			Subsystem: "requests",
			Name:      "latency_seconds",
			Help:      "End-to-end latency of analysis requests",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"origin"},
	)
)

// Register adds the request collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalysisRequests, AnalysisLatency)
	})
}

// ObserveRequest records one finished request. outcome is ok, cached, invalid, busy or error.
func ObserveRequest(origin, outcome string, started time.Time) {
	AnalysisRequests.WithLabelValues(origin, outcome).Inc()
	AnalysisLatency.WithLabelValues(origin).Observe(time.Since(started).Seconds())
}
