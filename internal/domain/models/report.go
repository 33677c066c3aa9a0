package models

import (
	"sort"
	"time"
)

// DateRange is a half-open [Start, End) span of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AnalysisReport is everything produced for one contract date.
type AnalysisReport struct {
	ContractDate     time.Time                    `json:"contract_date"`
	GeneratedAt      time.Time                    `json:"generated_at"`
	Window           DateRange                    `json:"window"`
	VolumeSignals    map[string]VolumeSignal      `json:"volume_signals"`
	Correlations     map[string]CorrelationSeries `json:"correlations"`
	PriceTrends      map[string]TickerTrend       `json:"price_trends"`
	CompositeSignals Series                       `json:"composite_signals"`
	Skipped          []UnitResult                 `json:"skipped,omitempty"`
	Warnings         []string                     `json:"warnings,omitempty"`
}

// ReportSummary is the compact form published to downstream consumers.
type ReportSummary struct {
	ContractDate       string   `json:"contract_date"`
	GeneratedAt        string   `json:"generated_at"`
	FlaggedTrends      int      `json:"flagged_trends"`
	SignificantTickers []string `json:"significant_tickers"`
	VolumeAnomalies    int      `json:"volume_anomalies"`
	CorrelationPairs   int      `json:"correlation_pairs"`
	PeakDate           string   `json:"peak_date,omitempty"`
	PeakScore          float64  `json:"peak_score"`
	Skipped            int      `json:"skipped"`
}

func (r *AnalysisReport) Summary() ReportSummary {
	s := ReportSummary{
		ContractDate:     r.ContractDate.Format("2006-01-02"),
		GeneratedAt:      r.GeneratedAt.UTC().Format(time.RFC3339),
		FlaggedTrends:    len(r.PriceTrends),
		CorrelationPairs: len(r.Correlations),
		Skipped:          len(r.Skipped),
	}
	for _, v := range r.VolumeSignals {
		s.VolumeAnomalies += len(v.Points)
	}
	for name, t := range r.PriceTrends {
		if t.Validation != nil && t.Validation.Significant {
			s.SignificantTickers = append(s.SignificantTickers, name)
		}
	}
	sort.Strings(s.SignificantTickers)
	if peak, ok := r.CompositeSignals.Max(); ok {
		s.PeakDate = peak.Date.Format("2006-01-02")
		s.PeakScore = peak.Value
	}
	return s
}

// Stamp is the compact date used in artifact names.
func Stamp(t time.Time) string { return t.Format("20060102") }

// Artifact names, one file or table each.
const (
	ArtifactMarketData       = "market_data"
	ArtifactVolumeData       = "volume_data"
	ArtifactVolumePatterns   = "volume_patterns"
	ArtifactCorrelations     = "correlations"
	ArtifactPriceTrends      = "price_trends"
	ArtifactCompositeSignals = "composite_signals"
	ArtifactReport           = "report"
)

type VolumeSignalRow struct {
	Ticker string
	Date   time.Time
	ZScore float64
}

type CorrelationRow struct {
	Pair        string
	Date        time.Time
	Coefficient float64
}

type TrendRow struct {
	Ticker     string
	Window     string
	StartDate  time.Time
	GrowthRate float64
}

type CompositeRow struct {
	ContractDate time.Time
	Date         time.Time
	Score        float64
}

// Artifacts is the flattened, persistence-ready form of one run.
type Artifacts struct {
	ContractDate  time.Time
	Prices        *Frame
	Volumes       *Frame
	VolumeSignals []VolumeSignalRow
	Correlations  []CorrelationRow
	Trends        []TrendRow
	Composite     []CompositeRow
	Report        *AnalysisReport
}

// BuildArtifacts flattens a report into rows in deterministic (sorted key) order.
func BuildArtifacts(prices, volumes *Frame, r *AnalysisReport) *Artifacts {
	a := &Artifacts{ContractDate: r.ContractDate, Prices: prices, Volumes: volumes, Report: r}

	for _, name := range sortedKeys(r.VolumeSignals) {
		for _, p := range r.VolumeSignals[name].Points {
			a.VolumeSignals = append(a.VolumeSignals, VolumeSignalRow{Ticker: name, Date: p.Date, ZScore: p.Value})
		}
	}
	for _, key := range sortedKeys(r.Correlations) {
		for _, p := range r.Correlations[key].Points {
			a.Correlations = append(a.Correlations, CorrelationRow{Pair: key, Date: p.Date, Coefficient: p.Value})
		}
	}
	for _, name := range sortedKeys(r.PriceTrends) {
		tt := r.PriceTrends[name]
		labels := sortedKeys(tt.Windows)
		sort.SliceStable(labels, func(i, j int) bool { return tt.Windows[labels[i]].Weeks < tt.Windows[labels[j]].Weeks })
		for _, label := range labels {
			for _, p := range tt.Windows[label].Points {
				a.Trends = append(a.Trends, TrendRow{Ticker: name, Window: label, StartDate: p.Date, GrowthRate: p.Value})
			}
		}
	}
	for _, p := range r.CompositeSignals {
		a.Composite = append(a.Composite, CompositeRow{ContractDate: r.ContractDate, Date: p.Date, Score: p.Value})
	}
	return a
}

// ProgressEvent is pushed to live subscribers while an analysis runs.
type ProgressEvent struct {
	ContractDate string    `json:"contract_date"`
	Stage        string    `json:"stage"`
	Status       string    `json:"status"` // started, completed, failed
	Detail       string    `json:"detail,omitempty"`
	At           time.Time `json:"at"`
}

const (
	ProgressStarted   = "started"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
)
