package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"ContractScan/internal/domain/models"
	applogger "ContractScan/pkg/logger"
)

// CSVMarketSource replays tables written by CSVArtifactSink. For a window ending at
// contract+lookahead it reads market_data_<stamp>.csv and volume_data_<stamp>.csv from dir,
// falling back to market_data.csv and volume_data.csv.
type CSVMarketSource struct {
	dir       string
	lookahead time.Duration
	l         *applogger.Logger
}

func NewCSVMarketSource(dir string, lookahead time.Duration, l *applogger.Logger) *CSVMarketSource {
	return &CSVMarketSource{dir: dir, lookahead: lookahead, l: l}
}

func (s *CSVMarketSource) Fetch(ctx context.Context, roster models.Roster, window models.DateRange) (*models.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stamp := models.Stamp(window.End.Add(-s.lookahead))
	prices, err := s.readTable(models.ArtifactMarketData, stamp)
	if err != nil {
		return nil, err
	}
	volumes, err := s.readTable(models.ArtifactVolumeData, stamp)
	if err != nil {
		return nil, err
	}

	data := &models.MarketData{Window: window}
	pSeries := make(map[string]models.Series)
	vSeries := make(map[string]models.Series)
	for _, in := range roster.Instruments {
		p := clipSeries(prices, in.Name, window)
		if len(p) == 0 {
			err := fmt.Errorf("%w: %s not in %s", models.ErrDataUnavailable, in.Name, s.dir)
			s.l.Warn("skipping instrument", applogger.String("name", in.Name), applogger.Error(err))
			data.Units = append(data.Units, models.UnitSkip(models.StageCollect, in.Name, err))
			continue
		}
		pSeries[in.Name] = p
		if v := clipSeries(volumes, in.Name, window); len(v) > 0 {
			vSeries[in.Name] = v
		}
		data.Units = append(data.Units, models.UnitDone(models.StageCollect, in.Name))
	}
	names := roster.Names()
	data.Prices = models.AlignSeries(names, pSeries)
	data.Volumes = models.AlignSeries(names, vSeries)
	return data, nil
}

func (s *CSVMarketSource) readTable(artifact, stamp string) (*models.Frame, error) {
	candidates := []string{
		filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", artifact, stamp)),
		filepath.Join(s.dir, artifact+".csv"),
	}
	for _, path := range candidates {
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		frame, err := ReadFrame(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return frame, nil
	}
	return nil, fmt.Errorf("%w: no %s table for %s in %s", models.ErrDataUnavailable, artifact, stamp, s.dir)
}

// clipSeries keeps the defined observations of column name dated inside window.
func clipSeries(f *models.Frame, name string, window models.DateRange) models.Series {
	full, ok := f.Series(name)
	if !ok {
		return nil
	}
	var out models.Series
	for _, p := range full {
		if p.Date.Before(window.Start) || !p.Date.Before(window.End) || math.IsNaN(p.Value) {
			continue
		}
		out = append(out, p)
	}
	return out
}
