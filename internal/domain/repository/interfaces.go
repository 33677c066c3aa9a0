package repository

import (
	"context"
	"time"

	"ContractScan/internal/domain/models"
)

// MarketDataSource retrieves daily closes and volumes for every roster instrument.
// Per-ticker failures are reported in MarketData.Units, not as an error.
type MarketDataSource interface {
	Fetch(ctx context.Context, roster models.Roster, window models.DateRange) (*models.MarketData, error)
}

// ArtifactSink persists the flattened outputs of one analysis run.
type ArtifactSink interface {
	Name() string
	Save(ctx context.Context, a *models.Artifacts) error
}

// ReportPublisher announces finished reports to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, r *models.AnalysisReport) error
	Close() error
}

// ReportCache keeps recent reports by contract date.
type ReportCache interface {
	Get(ctx context.Context, contractDate time.Time) (*models.AnalysisReport, error)
	Set(ctx context.Context, r *models.AnalysisReport) error
}

// ReportArchive looks up reports persisted by earlier runs.
type ReportArchive interface {
	LoadReport(ctx context.Context, contractDate time.Time) (*models.AnalysisReport, error)
}

// ProgressNotifier receives stage transitions while an analysis runs.
type ProgressNotifier interface {
	Notify(ctx context.Context, ev models.ProgressEvent)
}

// SupplierStore loads and rewrites the whole supplier registry.
type SupplierStore interface {
	Load(ctx context.Context) ([]models.Supplier, error)
	Save(ctx context.Context, suppliers []models.Supplier) error
}

type Metrics interface {
	ObserveStage(stage string, seconds float64)
	RecordUnits(stage string, ok, skipped int)
	RecordFlagged(stage string, n int)
	RecordError(kind string)
	RecordCompositePeak(score float64)
}
