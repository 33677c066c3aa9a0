package models

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"time"
)

// Stage names used in unit results, metrics and progress events.
const (
	StageCollect     = "collect"
	StageTrend       = "price_trend"
	StageValidation  = "validation"
	StageVolume      = "volume"
	StageCorrelation = "correlation"
	StageFusion      = "fusion"
	StagePersist     = "persist"
)

type UnitStatus string

const (
	UnitOK      UnitStatus = "ok"
	UnitSkipped UnitStatus = "skipped"
)

// UnitResult records the outcome of one ticker or pair within a stage.
type UnitResult struct {
	Stage  string     `json:"stage"`
	Unit   string     `json:"unit"`
	Status UnitStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

func UnitDone(stage, unit string) UnitResult {
	return UnitResult{Stage: stage, Unit: unit, Status: UnitOK}
}

func UnitSkip(stage, unit string, err error) UnitResult {
	reason := "unknown"
	if err != nil {
		reason = err.Error()
		var sf *StageFailure
		if errors.As(err, &sf) {
			reason = sf.Err.Error()
		}
	}
	return UnitResult{Stage: stage, Unit: unit, Status: UnitSkipped, Reason: reason}
}

// SkippedUnits filters the skipped entries.
func SkippedUnits(units []UnitResult) []UnitResult {
	var out []UnitResult
	for _, u := range units {
		if u.Status == UnitSkipped {
			out = append(out, u)
		}
	}
	return out
}

// TrendWindowResult holds the flagged (date, adjusted growth) points of one window length.
type TrendWindowResult struct {
	Weeks  int    `json:"weeks"`
	Label  string `json:"label"`
	Points Series `json:"points"`
}

// TickerTrend is the per-ticker trend record. Validation is attached by the validator.
type TickerTrend struct {
	Ticker     string                       `json:"ticker"`
	Windows    map[string]TrendWindowResult `json:"windows"`
	Validation *ValidationResult            `json:"validation,omitempty"`
}

// FlaggedDates is the union of flagged dates over the given window labels.
func (t TickerTrend) FlaggedDates(labels []string) map[time.Time]struct{} {
	out := make(map[time.Time]struct{})
	for _, l := range labels {
		for _, p := range t.Windows[l].Points {
			out[p.Date] = struct{}{}
		}
	}
	return out
}

// HasFlags reports whether any window flagged a date.
func (t TickerTrend) HasFlags() bool {
	for _, w := range t.Windows {
		if len(w.Points) > 0 {
			return true
		}
	}
	return false
}

// TrendAnalysis is the detector's output: flagged tickers only, plus every ticker's outcome.
type TrendAnalysis struct {
	Tickers map[string]TickerTrend `json:"tickers"`
	Units   []UnitResult           `json:"units"`
}

func NewTrendAnalysis() TrendAnalysis {
	return TrendAnalysis{Tickers: map[string]TickerTrend{}}
}

// Names returns the flagged tickers sorted.
func (a TrendAnalysis) Names() []string { return sortedKeys(a.Tickers) }

// WithValidation returns a copy with results attached; the receiver is left untouched.
func (a TrendAnalysis) WithValidation(results map[string]ValidationResult) TrendAnalysis {
	out := TrendAnalysis{Tickers: make(map[string]TickerTrend, len(a.Tickers)), Units: a.Units}
	for name, tt := range a.Tickers {
		if v, ok := results[name]; ok {
			v := v
			tt.Validation = &v
		}
		out.Tickers[name] = tt
	}
	return out
}

// ValidationResult is the significance verdict for one flagged ticker.
type ValidationResult struct {
	PValue         float64
	ControlPValues map[string]float64
	Significant    bool
	Confidence     float64
}

type validationJSON struct {
	PValue         *float64            `json:"p_value"`
	ControlPValues map[string]*float64 `json:"control_p_values"`
	Significant    bool                `json:"significant"`
	Confidence     *float64            `json:"confidence"`
}

func (v ValidationResult) MarshalJSON() ([]byte, error) {
	raw := validationJSON{
		PValue:         Nullable(v.PValue),
		ControlPValues: make(map[string]*float64, len(v.ControlPValues)),
		Significant:    v.Significant,
		Confidence:     Nullable(v.Confidence),
	}
	for k, p := range v.ControlPValues {
		raw.ControlPValues[k] = Nullable(p)
	}
	return json.Marshal(raw)
}

func (v *ValidationResult) UnmarshalJSON(b []byte) error {
	var raw validationJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v.PValue = FromNullable(raw.PValue)
	v.Confidence = FromNullable(raw.Confidence)
	v.Significant = raw.Significant
	v.ControlPValues = make(map[string]float64, len(raw.ControlPValues))
	for k, p := range raw.ControlPValues {
		v.ControlPValues[k] = FromNullable(p)
	}
	return nil
}

// MaxPValue is the largest of the base and control p-values; NaN if any is undefined.
func (v ValidationResult) MaxPValue() float64 {
	m := v.PValue
	for _, p := range v.ControlPValues {
		if math.IsNaN(p) || math.IsNaN(m) {
			return math.NaN()
		}
		m = math.Max(m, p)
	}
	return m
}

// ValidationAnalysis holds the verdicts of every ticker that could be tested.
type ValidationAnalysis struct {
	Results map[string]ValidationResult `json:"results"`
	Units   []UnitResult                `json:"units"`
}

func NewValidationAnalysis() ValidationAnalysis {
	return ValidationAnalysis{Results: map[string]ValidationResult{}}
}

// VolumeSignal holds the flagged (date, z-score) points for one ticker.
type VolumeSignal struct {
	Ticker string `json:"ticker"`
	Points Series `json:"points"`
}

type VolumeAnalysis struct {
	Signals map[string]VolumeSignal `json:"signals"`
	Units   []UnitResult            `json:"units"`
}

func NewVolumeAnalysis() VolumeAnalysis {
	return VolumeAnalysis{Signals: map[string]VolumeSignal{}}
}

func (a VolumeAnalysis) Names() []string { return sortedKeys(a.Signals) }

// CorrelationSeries is the rolling correlation of one ticker pair over the full date index.
type CorrelationSeries struct {
	Key    string `json:"key"`
	First  string `json:"first"`
	Second string `json:"second"`
	Points Series `json:"points"`
}

// PairKey joins two tickers the way correlation outputs are keyed.
func PairKey(first, second string) string { return first + "_" + second }

type CorrelationAnalysis struct {
	Series map[string]CorrelationSeries `json:"series"`
	Units  []UnitResult                 `json:"units"`
}

func NewCorrelationAnalysis() CorrelationAnalysis {
	return CorrelationAnalysis{Series: map[string]CorrelationSeries{}}
}

// Keys returns pair keys sorted, the order contributions are summed in.
func (a CorrelationAnalysis) Keys() []string { return sortedKeys(a.Series) }

// CompositeScore is the fused daily score computed for one contract date.
type CompositeScore struct {
	ContractDate time.Time `json:"contract_date"`
	Scores       Series    `json:"scores"`
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
