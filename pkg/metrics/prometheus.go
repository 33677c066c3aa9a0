package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	stageDuration *prometheus.HistogramVec
	units         *prometheus.CounterVec
	flagged       *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	compositePeak prometheus.Gauge
}

// New registers the analysis metrics on reg. A nil reg means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contractscan_stage_duration_seconds",
				Help:    "Duration of analysis stages in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"stage"},
		),
		units: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contractscan_units_total",
				Help: "Tickers or pairs processed per stage, by outcome",
			},
			[]string{"stage", "status"},
		),
		flagged: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contractscan_flagged_total",
				Help: "Tickers flagged per stage",
			},
			[]string{"stage"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contractscan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		compositePeak: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "contractscan_composite_peak",
				Help: "Peak composite score of the most recent analysis",
			},
		),
	}
}

func (r *Recorder) ObserveStage(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordUnits(stage string, ok, skipped int) {
	r.units.WithLabelValues(stage, "ok").Add(float64(ok))
	r.units.WithLabelValues(stage, "skipped").Add(float64(skipped))
}

func (r *Recorder) RecordFlagged(stage string, n int) {
	r.flagged.WithLabelValues(stage).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordCompositePeak(score float64) {
	r.compositePeak.Set(score)
}

// Noop discards everything. Used by the one-shot CLI and tests.
type Noop struct{}

func (Noop) ObserveStage(string, float64) {}
func (Noop) RecordUnits(string, int, int) {}
func (Noop) RecordFlagged(string, int)    {}
func (Noop) RecordError(string)           {}
func (Noop) RecordCompositePeak(float64)  {}
