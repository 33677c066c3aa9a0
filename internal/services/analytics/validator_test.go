package analytics

import (
	"math"
	"testing"

	"ContractScan/internal/domain/models"
	applogger "ContractScan/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator() *PatternValidator {
	return NewPatternValidator(models.DefaultAnalysisParams().Validation, testControls(), applogger.Nop())
}

// trendOn builds a trend record flagging the given rows under one window label.
func trendOn(ticker, label string, rows ...int) models.TrendAnalysis {
	var pts models.Series
	for _, r := range rows {
		pts = append(pts, models.Point{Date: day(r), Value: 0.1})
	}
	a := models.NewTrendAnalysis()
	a.Tickers[ticker] = models.TickerTrend{
		Ticker:  ticker,
		Windows: map[string]models.TrendWindowResult{label: {Label: label, Points: pts}},
	}
	return a
}

func rowsBetween(lo, hi int) []int {
	var out []int
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// pumped compounds +5% on rows [lo, hi] and small alternating moves elsewhere.
func pumped(n, lo, hi int) []float64 {
	out := make([]float64, n)
	out[0] = 100
	for i := 1; i < n; i++ {
		r := 0.001 * float64((i*7)%5-2)
		if i >= lo && i <= hi {
			r = 0.05
		}
		out[i] = out[i-1] * (1 + r)
	}
	return out
}

func TestValidatorSignificantPattern(t *testing.T) {
	const n = 40
	cols := append([]any{"Target", pumped(n, 21, 30)}, flatControls(n)...)
	f := buildFrame(t, n, cols...)

	got := newValidator().Validate(f, trendOn("Target", "4w", rowsBetween(21, 30)...))
	require.Contains(t, got.Results, "Target")

	res := got.Results["Target"]
	assert.True(t, res.Significant)
	assert.Less(t, res.PValue, 0.001)
	require.Len(t, res.ControlPValues, 4)
	for role, p := range res.ControlPValues {
		assert.Less(t, p, 0.05, role)
	}
	assert.InDelta(t, 1-res.MaxPValue(), res.Confidence, 1e-12)
	assert.Greater(t, res.Confidence, 0.95)
}

func TestValidatorSignificantImpliesAllBelowLevel(t *testing.T) {
	const n = 40
	params := models.DefaultAnalysisParams().Validation
	cols := append([]any{"A", pumped(n, 21, 30), "B", wave(n, 50, 3, 0.9)}, flatControls(n)...)
	f := buildFrame(t, n, cols...)

	trends := trendOn("A", "8w", rowsBetween(21, 30)...)
	trends.Tickers["B"] = trendOn("B", "4w", rowsBetween(5, 12)...).Tickers["B"]

	got := newValidator().Validate(f, trends)
	require.Len(t, got.Results, 2)
	for name, res := range got.Results {
		if !res.Significant {
			continue
		}
		assert.Less(t, res.PValue, params.SignificanceLevel, name)
		for role, p := range res.ControlPValues {
			assert.Less(t, p, params.SignificanceLevel, name+"/"+role)
		}
	}
}

func TestValidatorIgnoresTwelveWeekFlags(t *testing.T) {
	const n = 40
	cols := append([]any{"Target", pumped(n, 21, 30)}, flatControls(n)...)
	f := buildFrame(t, n, cols...)

	got := newValidator().Validate(f, trendOn("Target", "12w", rowsBetween(21, 30)...))
	assert.NotContains(t, got.Results, "Target")
	u, ok := unitFor(got.Units, "Target")
	require.True(t, ok)
	assert.Equal(t, models.UnitSkipped, u.Status)
	assert.Contains(t, u.Reason, "mask")
}

func TestValidatorMaskAllTrueIsOmitted(t *testing.T) {
	const n = 30
	cols := append([]any{"Target", pumped(n, 1, 29)}, flatControls(n)...)
	f := buildFrame(t, n, cols...)

	got := newValidator().Validate(f, trendOn("Target", "4w", rowsBetween(0, n-1)...))
	assert.Empty(t, got.Results)
}

func TestValidatorConfigurableMaskWindows(t *testing.T) {
	const n = 40
	params := models.DefaultAnalysisParams().Validation
	params.MaskWindows = []string{"4w", "8w", "12w"}
	v := NewPatternValidator(params, testControls(), applogger.Nop())

	cols := append([]any{"Target", pumped(n, 21, 30)}, flatControls(n)...)
	got := v.Validate(buildFrame(t, n, cols...), trendOn("Target", "12w", rowsBetween(21, 30)...))
	assert.Contains(t, got.Results, "Target")
}

func TestValidatorMissingControlSkips(t *testing.T) {
	const n = 40
	f := buildFrame(t, n,
		"Target", pumped(n, 21, 30),
		"SP500", constant(n, 100),
		"Industrial_Sector", constant(n, 100),
		"General_Commodities", constant(n, 100),
	)
	got := newValidator().Validate(f, trendOn("Target", "4w", rowsBetween(21, 30)...))
	assert.Empty(t, got.Results)
	u, ok := unitFor(got.Units, "Target")
	require.True(t, ok)
	assert.Contains(t, u.Reason, "Russell_2000")
}

func TestValidatorOmitsUnalignedControlDates(t *testing.T) {
	const n = 40
	smallCap := constant(n, 100)
	for i := 20; i < 26; i++ {
		smallCap[i] = nan // forward-filled by pct change, so returns stay defined
	}
	smallCap[0] = nan
	smallCap[1] = nan
	cols := []any{
		"Target", pumped(n, 21, 30),
		"SP500", constant(n, 100),
		"Industrial_Sector", constant(n, 100),
		"General_Commodities", constant(n, 100),
		"Russell_2000", smallCap,
	}
	got := newValidator().Validate(buildFrame(t, n, cols...), trendOn("Target", "4w", rowsBetween(21, 30)...))
	require.Contains(t, got.Results, "Target")
	p := got.Results["Target"].ControlPValues["small_cap"]
	assert.False(t, math.IsNaN(p))
}
