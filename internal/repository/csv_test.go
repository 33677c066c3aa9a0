package repository

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractScan/internal/domain/models"
	applogger "ContractScan/pkg/logger"
)

func day(n int) time.Time { return time.Date(2020, 1, n, 0, 0, 0, 0, time.UTC) }

func sampleFrame(t *testing.T) *models.Frame {
	t.Helper()
	f := models.NewFrame([]time.Time{day(2), day(3), day(6)})
	require.NoError(t, f.Set("Aerospace", []float64{100.5, math.NaN(), 101}))
	require.NoError(t, f.Set("SP500", []float64{320, 321.25, 322}))
	return f
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, sampleFrame(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date,Aerospace,SP500", lines[0])
	assert.Equal(t, "2020-01-03,,321.25", lines[2])

	f, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aerospace", "SP500"}, f.Columns())
	assert.Equal(t, []time.Time{day(2), day(3), day(6)}, f.Index())
	col, _ := f.Column("Aerospace")
	assert.True(t, math.IsNaN(col[1]))
	assert.Equal(t, 101.0, col[2])
}

func TestReadFrameRejectsBadInput(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("Day,A\n2020-01-02,1\n"))
	assert.Error(t, err)

	_, err = ReadFrame(strings.NewReader("Date,A\n01/02/2020,1\n"))
	assert.Error(t, err)

	_, err = ReadFrame(strings.NewReader("Date,A\n2020-01-02,abc\n"))
	assert.Error(t, err)

	f, err := ReadFrame(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, f.Empty())
}

func TestReadFrameAcceptsTimestamps(t *testing.T) {
	f, err := ReadFrame(strings.NewReader("Date,A\n2020-01-02 00:00:00,1\n"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2)}, f.Index())
}

func TestSupplierStoreSeedAndRoundTrip(t *testing.T) {
	seed, err := SeedSuppliers()
	require.NoError(t, err)
	require.Len(t, seed, 55)
	assert.Equal(t, "Northrop Grumman", seed[0].CompanyName)
	assert.Equal(t, 1, seed[0].TierLevel)

	var syensqo models.Supplier
	for _, s := range seed {
		if s.CompanyName == "Syensqo" {
			syensqo = s
		}
	}
	assert.Equal(t, 4, syensqo.TierLevel)
	assert.Contains(t, syensqo.AdditionalNotes, "Euronext Brussels")

	ctx := context.Background()
	store := NewCSVSupplierStore(filepath.Join(t.TempDir(), "registry", "suppliers.csv"))

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Save(ctx, seed[:3]))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, seed[:3], got)
}

func TestSupplierStoreRejectsUnknownColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppliers.csv")
	require.NoError(t, os.WriteFile(path, []byte("Company_Name,Rating\nAcme,5\n"), 0o644))

	_, err := NewCSVSupplierStore(path).Load(context.Background())
	assert.ErrorIs(t, err, models.ErrUnknownSupplierField)
}

func TestSupplierStoreAcceptsFloatTiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppliers.csv")
	require.NoError(t, os.WriteFile(path, []byte("Company_Name,Ticker_Symbol,Tier_Level\nAcme,ACM,3.0\n"), 0o644))

	got, err := NewCSVSupplierStore(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].TierLevel)
}

func sampleReport() *models.AnalysisReport {
	contract := day(31)
	return &models.AnalysisReport{
		ContractDate: contract,
		GeneratedAt:  contract.Add(time.Hour),
		VolumeSignals: map[string]models.VolumeSignal{
			"Aerospace": {Ticker: "Aerospace", Points: models.Series{{Date: day(3), Value: 2.5}}},
		},
		Correlations: map[string]models.CorrelationSeries{
			"Aerospace_SP500": {Key: "Aerospace_SP500", Points: models.Series{{Date: day(2), Value: math.NaN()}, {Date: day(3), Value: 0.4}}},
		},
		PriceTrends: map[string]models.TickerTrend{
			"Aerospace": {Ticker: "Aerospace", Windows: map[string]models.TrendWindowResult{
				"4w": {Weeks: 4, Label: "4w", Points: models.Series{{Date: day(2), Value: 0.2}}},
			}},
		},
		CompositeSignals: models.Series{{Date: day(2), Value: 0}, {Date: day(3), Value: 0.33}},
	}
}

func TestCSVArtifactSinkWritesEveryArtifact(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVArtifactSink(dir, applogger.Nop())
	f := sampleFrame(t)
	art := models.BuildArtifacts(f, f, sampleReport())

	require.NoError(t, sink.Save(context.Background(), art))

	for _, name := range []string{
		"market_data_20200131.csv",
		"volume_data_20200131.csv",
		"volume_patterns_20200131.csv",
		"correlations_20200131.csv",
		"price_trends_20200131.csv",
		"composite_signals_20200131.csv",
		"report_20200131.json",
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	b, err := os.ReadFile(filepath.Join(dir, "price_trends_20200131.csv"))
	require.NoError(t, err)
	assert.Equal(t, "ticker,window,start_date,growth_rate\nAerospace,4w,2020-01-02,0.2\n", string(b))

	b, err = os.ReadFile(filepath.Join(dir, "correlations_20200131.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "Aerospace_SP500,2020-01-02,\n")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "temp file left behind: %s", e.Name())
	}
}

func TestCSVArtifactSinkSkipsEmptyTables(t *testing.T) {
	dir := t.TempDir()
	r := &models.AnalysisReport{ContractDate: day(31)}
	art := models.BuildArtifacts(models.NewFrame(nil), models.NewFrame(nil), r)

	require.NoError(t, NewCSVArtifactSink(dir, applogger.Nop()).Save(context.Background(), art))
	assert.NoFileExists(t, filepath.Join(dir, "volume_patterns_20200131.csv"))
	assert.FileExists(t, filepath.Join(dir, "market_data_20200131.csv"))
	assert.FileExists(t, filepath.Join(dir, "report_20200131.json"))
}

func TestCSVMarketSourceReplaysSinkOutput(t *testing.T) {
	dir := t.TempDir()
	f := sampleFrame(t)
	art := models.BuildArtifacts(f, f, sampleReport())
	require.NoError(t, NewCSVArtifactSink(dir, applogger.Nop()).Save(context.Background(), art))

	roster := models.Roster{Instruments: []models.Instrument{
		{Name: "SP500", Symbol: "SPY", Group: models.GroupControl},
		{Name: "Aerospace", Symbol: "ITA", Group: models.GroupAerospace},
		{Name: "Missing", Symbol: "XXX", Group: models.GroupMaterials},
	}}
	lookahead := 5 * 24 * time.Hour
	src := NewCSVMarketSource(dir, lookahead, applogger.Nop())
	window := models.DateRange{Start: day(3), End: day(31).Add(lookahead)}

	data, err := src.Fetch(context.Background(), roster, window)
	require.NoError(t, err)
	assert.Equal(t, []string{"SP500", "Aerospace"}, data.Prices.Columns())
	assert.Equal(t, []time.Time{day(3), day(6)}, data.Prices.Index())

	aero, _ := data.Prices.Column("Aerospace")
	assert.True(t, math.IsNaN(aero[0]))
	assert.Equal(t, 101.0, aero[1])

	skipped := models.SkippedUnits(data.Units)
	require.Len(t, skipped, 1)
	assert.Equal(t, "Missing", skipped[0].Unit)
}

func TestCSVMarketSourceMissingFiles(t *testing.T) {
	src := NewCSVMarketSource(t.TempDir(), 0, applogger.Nop())
	_, err := src.Fetch(context.Background(), models.DefaultRoster(), models.DateRange{Start: day(1), End: day(31)})
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}
