package analytics

import (
	"math"
	"testing"

	"ContractScan/internal/domain/models"
	applogger "ContractScan/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corrRoster() models.Roster {
	return models.Roster{
		Instruments: []models.Instrument{
			{Name: "Materials", Symbol: "XLB", Group: models.GroupMaterials},
			{Name: "Aerospace", Symbol: "ITA", Group: models.GroupAerospace},
			{Name: "Luna", Symbol: "LUNA", Group: models.GroupSupplier, Tier: 3},
			{Name: "Dead", Symbol: "DEAD", Group: models.GroupSupplier, Tier: 3},
			{Name: "SP500", Symbol: "SPY", Group: models.GroupControl},
		},
		Controls:    testControls(),
		Correlation: models.DefaultEligibility(),
	}
}

func newTracker() *CorrelationTracker {
	return NewCorrelationTracker(models.DefaultAnalysisParams().Correlation, corrRoster(), applogger.Nop())
}

func TestCorrelationTrackerPairsAndBounds(t *testing.T) {
	const n = 60
	f := buildFrame(t, n,
		"Materials", wave(n, 100, 5, 0.7),
		"SP500", wave(n, 300, 9, 0.2),
		"Aerospace", wave(n, 80, 4, 1.3),
		"Luna", wave(n, 20, 2, 0.4),
	)
	got := newTracker().Track(f)

	assert.ElementsMatch(t, []string{"Materials_Aerospace", "Materials_Luna", "Aerospace_Luna"}, got.Keys())
	for _, key := range got.Keys() {
		s := got.Series[key]
		require.Len(t, s.Points, n)
		for i, p := range s.Points {
			if i < 4 {
				assert.True(t, math.IsNaN(p.Value), "%s row %d", key, i)
				continue
			}
			require.False(t, math.IsNaN(p.Value), "%s row %d", key, i)
			assert.GreaterOrEqual(t, p.Value, -1.0)
			assert.LessOrEqual(t, p.Value, 1.0)
		}
	}
}

func TestCorrelationTrackerAllNaNTickerDoesNotBlockOthers(t *testing.T) {
	const n = 40
	f := buildFrame(t, n,
		"Materials", wave(n, 100, 5, 0.7),
		"Dead", constant(n, nan),
		"Aerospace", wave(n, 80, 4, 1.3),
	)
	got := newTracker().Track(f)

	require.Len(t, got.Series, 3)
	for _, p := range got.Series["Materials_Dead"].Points {
		assert.True(t, math.IsNaN(p.Value))
	}
	var defined int
	for _, p := range got.Series["Materials_Aerospace"].Points {
		if !math.IsNaN(p.Value) {
			defined++
		}
	}
	assert.Equal(t, n-4, defined)
	for _, u := range got.Units {
		assert.Equal(t, models.UnitOK, u.Status)
	}
}

func TestCorrelationTrackerNoEligibleTickers(t *testing.T) {
	const n = 30
	got := newTracker().Track(buildFrame(t, n, "SP500", wave(n, 300, 9, 0.2), "Target", wave(n, 10, 1, 0.5)))
	assert.Empty(t, got.Series)
}
