package cache

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractScan/internal/domain/models"
	pkgcache "ContractScan/pkg/cache"
)

func newCache(t *testing.T) *ReportCache {
	t.Helper()
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	return NewReportCache(store, time.Hour)
}

func TestReportCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)
	contract := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)
	day := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

	report := &models.AnalysisReport{
		ContractDate: contract,
		PriceTrends: map[string]models.TickerTrend{
			"Materials": {
				Ticker: "Materials",
				Windows: map[string]models.TrendWindowResult{
					"4w": {Weeks: 4, Label: "4w", Points: models.Series{{Date: day, Value: 0.2}}},
				},
				Validation: &models.ValidationResult{
					PValue:         0.01,
					ControlPValues: map[string]float64{"market": math.NaN()},
				},
			},
		},
		CompositeSignals: models.Series{{Date: day, Value: math.NaN()}},
	}
	require.NoError(t, c.Set(ctx, report))

	got, err := c.Get(ctx, contract)
	require.NoError(t, err)
	assert.True(t, got.ContractDate.Equal(contract))
	assert.InDelta(t, 0.2, got.PriceTrends["Materials"].Windows["4w"].Points[0].Value, 1e-12)
	assert.True(t, math.IsNaN(got.PriceTrends["Materials"].Validation.ControlPValues["market"]))
	assert.True(t, math.IsNaN(got.CompositeSignals[0].Value))
}

func TestReportCacheMiss(t *testing.T) {
	_, err := newCache(t).Get(context.Background(), time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, models.ErrReportNotFound)
}

func TestReportCacheLock(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)
	contract := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)

	release, ok, err := c.Lock(ctx, contract, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.Lock(ctx, contract, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	_, ok, err = c.Lock(ctx, contract, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
