package models

import (
	"fmt"

	"github.com/creasty/defaults"
)

type TrendParams struct {
	WindowsWeeks      []int   `yaml:"windows_weeks" json:"windows_weeks" default:"[4,8,12]" validate:"min=1,dive,gt=0"`
	Threshold         float64 `yaml:"threshold" json:"threshold" default:"0.05"`
	DaysPerWeek       int     `yaml:"days_per_week" json:"days_per_week" default:"5" validate:"gt=0"`
	ControlMinPeriods int     `yaml:"control_min_periods" json:"control_min_periods" default:"3" validate:"gt=0"`
}

// WindowLabel is the key a window length is reported under, e.g. "4w".
func WindowLabel(weeks int) string { return fmt.Sprintf("%dw", weeks) }

type ValidationParams struct {
	SignificanceLevel float64 `yaml:"significance_level" json:"significance_level" default:"0.05" validate:"gt=0,lt=1"`
	// MaskWindows are the trend windows whose flagged dates form the in-trend sample.
	MaskWindows []string `yaml:"mask_windows" json:"mask_windows" default:"[\"4w\",\"8w\"]" validate:"min=1"`
	// ExactMaxSample is the largest smaller-sample size for which the exact U distribution is used.
	ExactMaxSample int `yaml:"exact_max_sample" json:"exact_max_sample" default:"8" validate:"gte=0"`
}

type VolumeParams struct {
	Window     int     `yaml:"window" json:"window" default:"20" validate:"gt=1"`
	MinPeriods int     `yaml:"min_periods" json:"min_periods" default:"20" validate:"gt=1"`
	Threshold  float64 `yaml:"threshold" json:"threshold" default:"2.0"`
}

type CorrelationParams struct {
	Window     int `yaml:"window" json:"window" default:"20" validate:"gt=1"`
	MinPeriods int `yaml:"min_periods" json:"min_periods" default:"5" validate:"gt=1"`
}

type FusionParams struct {
	VolumeDivisor      float64 `yaml:"volume_divisor" json:"volume_divisor" default:"10" validate:"gt=0"`
	CorrelationDivisor float64 `yaml:"correlation_divisor" json:"correlation_divisor" default:"5" validate:"gt=0"`
}

type AnalysisParams struct {
	Trend       TrendParams       `yaml:"trend" json:"trend"`
	Validation  ValidationParams  `yaml:"validation" json:"validation"`
	Volume      VolumeParams      `yaml:"volume" json:"volume"`
	Correlation CorrelationParams `yaml:"correlation" json:"correlation"`
	Fusion      FusionParams      `yaml:"fusion" json:"fusion"`
}

// DefaultAnalysisParams returns the stock parameter set.
func DefaultAnalysisParams() AnalysisParams {
	var p AnalysisParams
	defaults.MustSet(&p)
	return p
}
