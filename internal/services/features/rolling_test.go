package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func assertSeries(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestForwardFill(t *testing.T) {
	got := ForwardFill([]float64{nan, 1, nan, nan, 4, nan})
	assertSeries(t, []float64{nan, 1, 1, 1, 4, 4}, got)
}

func TestRollingMeanMinPeriods(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	assertSeries(t, []float64{nan, nan, 2, 3, 4}, RollingMean(x, 3, 3))
	assertSeries(t, []float64{1, 1.5, 2, 3, 4}, RollingMean(x, 3, 1))

	withGap := []float64{1, nan, 3, 5}
	assertSeries(t, []float64{nan, nan, 2, 4}, RollingMean(withGap, 3, 2))
}

func TestRollingStdConstantIsZero(t *testing.T) {
	x := []float64{5, 5, 5, 5}
	assertSeries(t, []float64{nan, nan, 0, 0}, RollingStd(x, 3, 3))

	y := []float64{1, 2, 3}
	assertSeries(t, []float64{nan, nan, 1}, RollingStd(y, 3, 3))
}

func TestRollingCorr(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{2, 4, 6, 8, 10, 12}
	z := []float64{6, 5, 4, 3, 2, 1}

	got := RollingCorr(x, y, 4, 3)
	assertSeries(t, []float64{nan, nan, 1, 1, 1, 1}, got)

	got = RollingCorr(x, z, 4, 3)
	assertSeries(t, []float64{nan, nan, -1, -1, -1, -1}, got)

	flat := []float64{1, 1, 1, 1, 1, 1}
	for _, v := range RollingCorr(x, flat, 4, 3) {
		assert.True(t, math.IsNaN(v))
	}
}

func TestLaggedGrowthGuards(t *testing.T) {
	x := []float64{100, 0, 110, nan, 121}
	got := LaggedGrowth(x, 1)
	assertSeries(t, []float64{nan, -1, nan, nan, nan}, got)

	assertSeries(t, []float64{nan, nan, 0.1, 0.1, 0.1}, LaggedGrowth([]float64{100, 50, 110, 55, 121}, 2))
}

func TestPctChangeForwardFills(t *testing.T) {
	got := PctChange([]float64{nan, 100, nan, 110})
	assertSeries(t, []float64{nan, nan, 0, 0.1}, got)
}

func TestLogReturnsCoercesUndefined(t *testing.T) {
	got := LogReturns([]float64{100, 110, 0, 50, nan, 60})
	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, math.Log(1.1), got[1], 1e-12)
	assert.Equal(t, 0.0, got[2]) // ln(0) = -Inf
	assert.Equal(t, 0.0, got[3]) // division by zero
	assert.Equal(t, 0.0, got[4])
	assert.Equal(t, 0.0, got[5])
}

func TestZScoresZeroStd(t *testing.T) {
	got := ZScores([]float64{1, 2, 3}, []float64{1, 1, 1}, []float64{0, nan, 1})
	assertSeries(t, []float64{nan, nan, 2}, got)
}
