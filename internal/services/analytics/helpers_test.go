package analytics

import (
	"math"
	"testing"
	"time"

	"ContractScan/internal/domain/models"

	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func day(n int) time.Time {
	return time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day(i)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// step is `before` for the first k rows and `after` for the rest.
func step(n, k int, before, after float64) []float64 {
	out := constant(n, before)
	for i := k; i < n; i++ {
		out[i] = after
	}
	return out
}

func wave(n int, base, amp, freq float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + amp*math.Sin(float64(i)*freq) + float64(i)*0.1
	}
	return out
}

func buildFrame(t *testing.T, n int, cols ...any) *models.Frame {
	t.Helper()
	f := models.NewFrame(days(n))
	for i := 0; i < len(cols); i += 2 {
		require.NoError(t, f.Set(cols[i].(string), cols[i+1].([]float64)))
	}
	return f
}

func testControls() models.ControlRoles {
	return models.ControlRoles{
		Market:      "SP500",
		Sector:      "Industrial_Sector",
		Commodities: "General_Commodities",
		SmallCap:    "Russell_2000",
	}
}

// flatControls returns the four control columns held at 100.
func flatControls(n int) []any {
	return []any{
		"SP500", constant(n, 100),
		"Industrial_Sector", constant(n, 100),
		"General_Commodities", constant(n, 100),
		"Russell_2000", constant(n, 100),
	}
}

func unitFor(units []models.UnitResult, unit string) (models.UnitResult, bool) {
	for _, u := range units {
		if u.Unit == unit {
			return u, true
		}
	}
	return models.UnitResult{}, false
}
