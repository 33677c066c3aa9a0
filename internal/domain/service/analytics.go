package service

import (
	"time"

	"ContractScan/internal/domain/models"
)

// TrendDetector flags sustained, market- and sector-adjusted price growth per ticker.
type TrendDetector interface {
	Detect(prices *models.Frame) models.TrendAnalysis
}

// PatternValidator tests whether returns inside flagged trend periods beat those outside,
// both raw and net of each control factor.
type PatternValidator interface {
	Validate(prices *models.Frame, trends models.TrendAnalysis) models.ValidationAnalysis
}

// VolumeDetector flags days whose traded volume is a rolling z-score outlier.
type VolumeDetector interface {
	Detect(volumes *models.Frame) models.VolumeAnalysis
}

// CorrelationTracker computes rolling pairwise return correlations among eligible tickers.
type CorrelationTracker interface {
	Track(prices *models.Frame) models.CorrelationAnalysis
}

// SignalFuser combines volume and correlation signals into a daily score per contract date.
type SignalFuser interface {
	Fuse(index []time.Time, contractDates []time.Time, volume models.VolumeAnalysis, corr models.CorrelationAnalysis) []models.CompositeScore
}
