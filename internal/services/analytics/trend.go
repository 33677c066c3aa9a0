package analytics

import (
	"fmt"
	"math"

	"ContractScan/internal/domain/models"
	domsvc "ContractScan/internal/domain/service"
	"ContractScan/internal/services/features"
	applogger "ContractScan/pkg/logger"
)

// TrendDetector flags dates where a ticker's rolling-mean growth, net of the average of the
// market and sector controls' growth, exceeds a threshold.
type TrendDetector struct {
	params   models.TrendParams
	controls models.ControlRoles
	l        *applogger.Logger
}

func NewTrendDetector(params models.TrendParams, controls models.ControlRoles, l *applogger.Logger) *TrendDetector {
	return &TrendDetector{params: params, controls: controls, l: l}
}

var _ domsvc.TrendDetector = (*TrendDetector)(nil)

// baseline is the averaged market/sector growth for one window length.
type baseline struct {
	weeks int
	days  int
	mean  []float64
}

func (d *TrendDetector) Detect(prices *models.Frame) models.TrendAnalysis {
	out := models.NewTrendAnalysis()
	if prices.Empty() {
		return out
	}

	baselines, berr := d.baselines(prices)
	for _, name := range prices.Columns() {
		var tt models.TickerTrend
		err := runUnit(models.StageTrend, name, func() error {
			if berr != nil {
				return berr
			}
			col, _ := prices.Column(name)
			tt = d.detectTicker(prices, name, col, baselines)
			return nil
		})
		if err != nil {
			d.l.Warn("trend analysis skipped ticker", applogger.String("ticker", name), applogger.Error(err))
			out.Units = append(out.Units, models.UnitSkip(models.StageTrend, name, err))
			continue
		}
		out.Units = append(out.Units, models.UnitDone(models.StageTrend, name))
		if tt.HasFlags() {
			out.Tickers[name] = tt
		}
	}

	d.l.Debug("trend analysis done",
		applogger.Int("tickers", len(prices.Columns())),
		applogger.Int("flagged", len(out.Tickers)),
	)
	return out
}

func (d *TrendDetector) baselines(prices *models.Frame) ([]baseline, error) {
	market, ok := prices.Column(d.controls.Market)
	if !ok {
		return nil, fmt.Errorf("%w: market control %q missing", models.ErrDataUnavailable, d.controls.Market)
	}
	sector, ok := prices.Column(d.controls.Sector)
	if !ok {
		return nil, fmt.Errorf("%w: sector control %q missing", models.ErrDataUnavailable, d.controls.Sector)
	}

	out := make([]baseline, 0, len(d.params.WindowsWeeks))
	for _, weeks := range d.params.WindowsWeeks {
		days := weeks * d.params.DaysPerWeek
		mg := features.LaggedGrowth(features.RollingMean(market, days, d.params.ControlMinPeriods), days)
		sg := features.LaggedGrowth(features.RollingMean(sector, days, d.params.ControlMinPeriods), days)
		mean := make([]float64, len(mg))
		for i := range mg {
			mean[i] = (mg[i] + sg[i]) / 2
		}
		out = append(out, baseline{weeks: weeks, days: days, mean: mean})
	}
	return out, nil
}

func (d *TrendDetector) detectTicker(prices *models.Frame, name string, col []float64, baselines []baseline) models.TickerTrend {
	filled := features.ForwardFill(col)
	index := prices.Index()
	tt := models.TickerTrend{Ticker: name, Windows: map[string]models.TrendWindowResult{}}

	for _, b := range baselines {
		growth := features.LaggedGrowth(features.RollingMean(filled, b.days, b.days), b.days)
		var flagged models.Series
		for i, g := range growth {
			adj := g - b.mean[i]
			if math.IsNaN(adj) || !(adj > d.params.Threshold) {
				continue
			}
			flagged = append(flagged, models.Point{Date: index[i], Value: adj})
		}
		if len(flagged) == 0 {
			continue
		}
		label := models.WindowLabel(b.weeks)
		tt.Windows[label] = models.TrendWindowResult{Weeks: b.weeks, Label: label, Points: flagged}
	}
	return tt
}
