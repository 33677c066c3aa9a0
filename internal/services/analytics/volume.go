package analytics

import (
	"math"

	"ContractScan/internal/domain/models"
	domsvc "ContractScan/internal/domain/service"
	"ContractScan/internal/services/features"
	applogger "ContractScan/pkg/logger"
)

// VolumeDetector flags days whose volume z-score against a trailing window exceeds a threshold.
type VolumeDetector struct {
	params models.VolumeParams
	l      *applogger.Logger
}

func NewVolumeDetector(params models.VolumeParams, l *applogger.Logger) *VolumeDetector {
	return &VolumeDetector{params: params, l: l}
}

var _ domsvc.VolumeDetector = (*VolumeDetector)(nil)

func (d *VolumeDetector) Detect(volumes *models.Frame) models.VolumeAnalysis {
	out := models.NewVolumeAnalysis()
	if volumes.Empty() {
		return out
	}
	index := volumes.Index()

	for _, name := range volumes.Columns() {
		var flagged models.Series
		err := runUnit(models.StageVolume, name, func() error {
			col, _ := volumes.Column(name)
			z := d.ZScores(col)
			for i, v := range z {
				if !math.IsNaN(v) && v > d.params.Threshold {
					flagged = append(flagged, models.Point{Date: index[i], Value: v})
				}
			}
			return nil
		})
		if err != nil {
			d.l.Warn("volume analysis skipped ticker", applogger.String("ticker", name), applogger.Error(err))
			out.Units = append(out.Units, models.UnitSkip(models.StageVolume, name, err))
			continue
		}
		out.Units = append(out.Units, models.UnitDone(models.StageVolume, name))
		if len(flagged) > 0 {
			out.Signals[name] = models.VolumeSignal{Ticker: name, Points: flagged}
		}
	}
	return out
}

// ZScores returns the rolling z-score of every row, NaN where the window is short or flat.
func (d *VolumeDetector) ZScores(volume []float64) []float64 {
	mean := features.RollingMean(volume, d.params.Window, d.params.MinPeriods)
	std := features.RollingStd(volume, d.params.Window, d.params.MinPeriods)
	return features.ZScores(volume, mean, std)
}
