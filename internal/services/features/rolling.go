package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Rolling windows are trailing and inclusive of the current row. A window with fewer than
// minPeriods defined observations yields NaN.

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func defined(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ForwardFill carries the last defined value forward. Leading gaps stay NaN.
func ForwardFill(x []float64) []float64 {
	out := make([]float64, len(x))
	last := math.NaN()
	for i, v := range x {
		if !math.IsNaN(v) {
			last = v
		}
		out[i] = last
	}
	return out
}

// window collects the defined values of x[i-w+1 .. i].
func window(x []float64, i, w int, buf []float64) []float64 {
	buf = buf[:0]
	lo := i - w + 1
	if lo < 0 {
		lo = 0
	}
	for j := lo; j <= i; j++ {
		if !math.IsNaN(x[j]) {
			buf = append(buf, x[j])
		}
	}
	return buf
}

// RollingMean is the trailing mean over w rows.
func RollingMean(x []float64, w, minPeriods int) []float64 {
	out := nanSlice(len(x))
	if w <= 0 {
		return out
	}
	buf := make([]float64, 0, w)
	for i := range x {
		vals := window(x, i, w, buf)
		if len(vals) >= minPeriods && len(vals) > 0 {
			out[i] = stat.Mean(vals, nil)
		}
	}
	return out
}

// RollingStd is the trailing sample standard deviation (n-1 denominator) over w rows.
func RollingStd(x []float64, w, minPeriods int) []float64 {
	out := nanSlice(len(x))
	if w <= 0 {
		return out
	}
	buf := make([]float64, 0, w)
	for i := range x {
		vals := window(x, i, w, buf)
		if len(vals) >= minPeriods && len(vals) > 1 {
			out[i] = stat.StdDev(vals, nil)
		}
	}
	return out
}

// RollingCorr is the trailing Pearson correlation of x and y over w rows, using only rows where
// both are defined. Results are clamped to [-1, 1]; zero variance yields NaN.
func RollingCorr(x, y []float64, w, minPeriods int) []float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	out := nanSlice(n)
	if w <= 0 {
		return out
	}
	xs := make([]float64, 0, w)
	ys := make([]float64, 0, w)
	for i := 0; i < n; i++ {
		xs, ys = xs[:0], ys[:0]
		lo := i - w + 1
		if lo < 0 {
			lo = 0
		}
		for j := lo; j <= i; j++ {
			if math.IsNaN(x[j]) || math.IsNaN(y[j]) {
				continue
			}
			xs = append(xs, x[j])
			ys = append(ys, y[j])
		}
		if len(xs) < minPeriods || len(xs) < 2 {
			continue
		}
		c := stat.Correlation(xs, ys, nil)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		out[i] = math.Max(-1, math.Min(1, c))
	}
	return out
}

// LaggedGrowth is (x[t] - x[t-lag]) / x[t-lag]; NaN when either side is undefined or the base is 0.
func LaggedGrowth(x []float64, lag int) []float64 {
	out := nanSlice(len(x))
	for i := lag; i < len(x); i++ {
		base := x[i-lag]
		if !defined(base) || base == 0 || !defined(x[i]) {
			continue
		}
		out[i] = (x[i] - base) / base
	}
	return out
}

// PctChange is the simple return on the forward-filled series. Row 0 is NaN.
func PctChange(x []float64) []float64 {
	return LaggedGrowth(ForwardFill(x), 1)
}

// LogReturns is ln(x[t]/x[t-1]) with every undefined result, and row 0, coerced to 0.
func LogReturns(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		r := math.Log(x[i] / x[i-1])
		if defined(r) {
			out[i] = r
		}
	}
	return out
}

// ZScores standardizes x against per-row mean and std; zero or undefined std yields NaN.
func ZScores(x, mean, std []float64) []float64 {
	out := nanSlice(len(x))
	for i := range x {
		if i >= len(mean) || i >= len(std) {
			break
		}
		s := std[i]
		if !defined(s) || s == 0 {
			continue
		}
		out[i] = (x[i] - mean[i]) / s
	}
	return out
}
