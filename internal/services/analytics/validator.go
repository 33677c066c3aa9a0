package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"ContractScan/internal/domain/models"
	domsvc "ContractScan/internal/domain/service"
	"ContractScan/internal/services/features"
	applogger "ContractScan/pkg/logger"
)

var errDegenerateMask = errors.New("in-trend mask is all true or all false")

// PatternValidator runs the one-sided Mann-Whitney test of in-trend versus out-of-trend daily
// returns, on raw returns and on returns net of each control.
type PatternValidator struct {
	params   models.ValidationParams
	controls models.ControlRoles
	l        *applogger.Logger
}

func NewPatternValidator(params models.ValidationParams, controls models.ControlRoles, l *applogger.Logger) *PatternValidator {
	return &PatternValidator{params: params, controls: controls, l: l}
}

var _ domsvc.PatternValidator = (*PatternValidator)(nil)

// returnSeries holds the defined simple returns of one column keyed by date.
type returnSeries struct {
	dates  []time.Time
	values []float64
	byDate map[time.Time]float64
}

func simpleReturns(prices *models.Frame, name string) (returnSeries, bool) {
	col, ok := prices.Column(name)
	if !ok {
		return returnSeries{}, false
	}
	r := features.PctChange(col)
	index := prices.Index()
	out := returnSeries{byDate: make(map[time.Time]float64)}
	for i, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out.dates = append(out.dates, index[i])
		out.values = append(out.values, v)
		out.byDate[index[i]] = v
	}
	return out, true
}

func (v *PatternValidator) Validate(prices *models.Frame, trends models.TrendAnalysis) models.ValidationAnalysis {
	out := models.NewValidationAnalysis()
	if prices.Empty() || len(trends.Tickers) == 0 {
		return out
	}

	controls := make(map[string]returnSeries, 4)
	var missing []string
	for _, c := range v.controls.Validation() {
		rs, ok := simpleReturns(prices, c.Column)
		if !ok {
			missing = append(missing, c.Column)
			continue
		}
		controls[c.Role] = rs
	}

	for _, name := range trends.Names() {
		var res models.ValidationResult
		err := runUnit(models.StageValidation, name, func() error {
			if len(missing) > 0 {
				return fmt.Errorf("%w: control series %v missing", models.ErrDataUnavailable, missing)
			}
			var err error
			res, err = v.validateTicker(prices, name, trends.Tickers[name], controls)
			return err
		})
		if err != nil {
			v.l.Warn("validation skipped ticker", applogger.String("ticker", name), applogger.Error(err))
			out.Units = append(out.Units, models.UnitSkip(models.StageValidation, name, err))
			continue
		}
		out.Units = append(out.Units, models.UnitDone(models.StageValidation, name))
		out.Results[name] = res
	}
	return out
}

func (v *PatternValidator) validateTicker(prices *models.Frame, name string, tt models.TickerTrend, controls map[string]returnSeries) (models.ValidationResult, error) {
	rs, ok := simpleReturns(prices, name)
	if !ok {
		return models.ValidationResult{}, fmt.Errorf("%w: no price column", models.ErrDataUnavailable)
	}
	flagged := tt.FlaggedDates(v.params.MaskWindows)

	mask := make([]bool, len(rs.dates))
	var in int
	for i, d := range rs.dates {
		if _, ok := flagged[d]; ok {
			mask[i] = true
			in++
		}
	}
	if in == 0 || in == len(mask) {
		return models.ValidationResult{}, errDegenerateMask
	}

	x, y := split(rs.values, mask)
	_, base := MannWhitneyGreater(x, y, v.params.ExactMaxSample)

	res := models.ValidationResult{
		PValue:         base,
		ControlPValues: make(map[string]float64, len(controls)),
	}
	for _, c := range v.controls.Validation() {
		ctl := controls[c.Role]
		adjusted := make([]float64, 0, len(rs.values))
		adjMask := make([]bool, 0, len(rs.values))
		for i, d := range rs.dates {
			cr, ok := ctl.byDate[d]
			if !ok {
				continue
			}
			adjusted = append(adjusted, rs.values[i]-cr)
			adjMask = append(adjMask, mask[i])
		}
		ax, ay := split(adjusted, adjMask)
		_, p := MannWhitneyGreater(ax, ay, v.params.ExactMaxSample)
		res.ControlPValues[c.Role] = p
	}

	maxP := res.MaxPValue()
	res.Significant = !math.IsNaN(maxP) && maxP < v.params.SignificanceLevel
	res.Confidence = 1 - maxP
	return res, nil
}

// split partitions values into the in-trend and out-of-trend samples.
func split(values []float64, mask []bool) (in, out []float64) {
	for i, x := range values {
		if mask[i] {
			in = append(in, x)
		} else {
			out = append(out, x)
		}
	}
	return in, out
}
