package analytics

import (
	"math"
	"time"

	"ContractScan/internal/domain/models"
	domsvc "ContractScan/internal/domain/service"
)

// SignalFuser sums scaled volume z-scores and absolute pair correlations into one daily score.
type SignalFuser struct {
	params models.FusionParams
}

func NewSignalFuser(params models.FusionParams) *SignalFuser {
	return &SignalFuser{params: params}
}

var _ domsvc.SignalFuser = (*SignalFuser)(nil)

func (f *SignalFuser) Fuse(index []time.Time, contractDates []time.Time, volume models.VolumeAnalysis, corr models.CorrelationAnalysis) []models.CompositeScore {
	out := make([]models.CompositeScore, 0, len(contractDates))
	for _, cd := range contractDates {
		out = append(out, models.CompositeScore{ContractDate: cd, Scores: f.score(index, volume, corr)})
	}
	return out
}

func (f *SignalFuser) score(index []time.Time, volume models.VolumeAnalysis, corr models.CorrelationAnalysis) models.Series {
	pos := make(map[time.Time]int, len(index))
	scores := make([]float64, len(index))
	for i, d := range index {
		pos[d] = i
	}

	for _, name := range volume.Names() {
		for _, p := range volume.Signals[name].Points {
			i, ok := pos[p.Date]
			if !ok || math.IsNaN(p.Value) {
				continue
			}
			scores[i] += p.Value / f.params.VolumeDivisor
		}
	}
	for _, key := range corr.Keys() {
		for _, p := range corr.Series[key].Points {
			i, ok := pos[p.Date]
			if !ok || math.IsNaN(p.Value) {
				continue
			}
			scores[i] += math.Abs(p.Value) / f.params.CorrelationDivisor
		}
	}

	out := make(models.Series, len(index))
	for i, d := range index {
		out[i] = models.Point{Date: d, Value: scores[i]}
	}
	return out
}
