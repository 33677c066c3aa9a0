package analytics

import (
	"ContractScan/internal/domain/models"
	domsvc "ContractScan/internal/domain/service"
	"ContractScan/internal/services/features"
	applogger "ContractScan/pkg/logger"
)

// CorrelationTracker computes rolling log-return correlations for every unordered pair of
// eligible tickers.
type CorrelationTracker struct {
	params models.CorrelationParams
	roster models.Roster
	l      *applogger.Logger
}

func NewCorrelationTracker(params models.CorrelationParams, roster models.Roster, l *applogger.Logger) *CorrelationTracker {
	return &CorrelationTracker{params: params, roster: roster, l: l}
}

var _ domsvc.CorrelationTracker = (*CorrelationTracker)(nil)

// EligibleColumns lists the frame's columns that take part, in frame order.
func (c *CorrelationTracker) EligibleColumns(prices *models.Frame) []string {
	var out []string
	for _, name := range prices.Columns() {
		if c.roster.Eligible(name) {
			out = append(out, name)
		}
	}
	return out
}

func (c *CorrelationTracker) Track(prices *models.Frame) models.CorrelationAnalysis {
	out := models.NewCorrelationAnalysis()
	if prices.Empty() {
		return out
	}
	index := prices.Index()
	eligible := c.EligibleColumns(prices)

	returns := make(map[string][]float64, len(eligible))
	for _, name := range eligible {
		col, _ := prices.Column(name)
		returns[name] = features.LogReturns(col)
	}

	for i, first := range eligible {
		for _, second := range eligible[i+1:] {
			key := models.PairKey(first, second)
			var series models.Series
			err := runUnit(models.StageCorrelation, key, func() error {
				corr := features.RollingCorr(returns[first], returns[second], c.params.Window, c.params.MinPeriods)
				series = make(models.Series, len(corr))
				for j, v := range corr {
					series[j] = models.Point{Date: index[j], Value: v}
				}
				return nil
			})
			if err != nil {
				c.l.Warn("correlation skipped pair", applogger.String("pair", key), applogger.Error(err))
				out.Units = append(out.Units, models.UnitSkip(models.StageCorrelation, key, err))
				continue
			}
			out.Units = append(out.Units, models.UnitDone(models.StageCorrelation, key))
			out.Series[key] = models.CorrelationSeries{Key: key, First: first, Second: second, Points: series}
		}
	}

	c.l.Debug("correlation tracking done",
		applogger.Int("eligible", len(eligible)),
		applogger.Int("pairs", len(out.Series)),
	)
	return out
}
