package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// MannWhitneyGreater is the one-sided Mann-Whitney U test of H1: x tends to exceed y.
// The exact null distribution is used when the smaller sample has at most exactMax observations
// and there are no ties; otherwise the normal approximation with tie and continuity corrections.
// Returns NaN when either sample is empty or the statistic has no variance.
func MannWhitneyGreater(x, y []float64, exactMax int) (u, p float64) {
	n1, n2 := len(x), len(y)
	if n1 == 0 || n2 == 0 {
		return math.NaN(), math.NaN()
	}

	ranks, tieTerm := rankAll(x, y)
	var r1 float64
	for i := 0; i < n1; i++ {
		r1 += ranks[i]
	}
	u = r1 - float64(n1*(n1+1))/2

	if (n1 <= exactMax || n2 <= exactMax) && tieTerm == 0 {
		return u, exactSurvival(n1, n2, u)
	}

	n := float64(n1 + n2)
	mu := float64(n1) * float64(n2) / 2
	variance := float64(n1) * float64(n2) / 12 * ((n + 1) - tieTerm/(n*(n-1)))
	if variance <= 0 {
		return u, math.NaN()
	}
	z := (u - mu - 0.5) / math.Sqrt(variance)
	return u, distuv.UnitNormal.Survival(z)
}

// rankAll assigns average ranks to the pooled sample (x first, then y) and returns the
// tie correction term sum(t^3 - t).
func rankAll(x, y []float64) ([]float64, float64) {
	pooled := make([]float64, 0, len(x)+len(y))
	pooled = append(pooled, x...)
	pooled = append(pooled, y...)

	order := make([]int, len(pooled))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pooled[order[a]] < pooled[order[b]] })

	ranks := make([]float64, len(pooled))
	var tieTerm float64
	for i := 0; i < len(order); {
		j := i + 1
		for j < len(order) && pooled[order[j]] == pooled[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // mean of 1-based ranks i+1 .. j
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		if t := float64(j - i); t > 1 {
			tieTerm += t*t*t - t
		}
		i = j
	}
	return ranks, tieTerm
}

// exactSurvival is P(U >= u) under H0 for samples of size n1 and n2 without ties.
func exactSurvival(n1, n2 int, u float64) float64 {
	counts := uCounts(n1, n2)
	var total, tail float64
	for k, c := range counts {
		total += c
		if float64(k) >= u-1e-9 {
			tail += c
		}
	}
	if total == 0 {
		return math.NaN()
	}
	return math.Min(1, tail/total)
}

// uCounts returns the number of arrangements yielding each U in 0..n1*n2, i.e. the
// coefficients of the Gaussian binomial [n1+n2 choose m]_q.
func uCounts(n1, n2 int) []float64 {
	m, n := n1, n2
	if m > n {
		m, n = n, m
	}
	deg := m * n
	c := make([]float64, deg+1)
	c[0] = 1
	for i := 1; i <= m; i++ {
		// multiply by (1 - q^(n+i))
		s := n + i
		for k := deg; k >= s; k-- {
			c[k] -= c[k-s]
		}
		// divide by (1 - q^i)
		for k := i; k <= deg; k++ {
			c[k] += c[k-i]
		}
	}
	return c
}
