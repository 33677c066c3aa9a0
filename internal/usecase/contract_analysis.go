package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ContractScan/internal/domain/models"
	domrepo "ContractScan/internal/domain/repository"
	domsvc "ContractScan/internal/domain/service"
	"ContractScan/internal/services/analytics"
	applogger "ContractScan/pkg/logger"
	"ContractScan/pkg/util"
)

// CollectionWindow positions the data window relative to the contract date:
// [contract+Lookahead-Lookback, contract+Lookahead).
type CollectionWindow struct {
	Lookahead time.Duration
	Lookback  time.Duration
}

func DefaultCollectionWindow() CollectionWindow {
	return CollectionWindow{Lookahead: util.Days(5), Lookback: util.Days(120)}
}

// ContractAnalyzer runs the full detection pipeline for one contract date.
type ContractAnalyzer struct {
	roster models.Roster
	window CollectionWindow
	source domrepo.MarketDataSource

	trend     domsvc.TrendDetector
	validator domsvc.PatternValidator
	volume    domsvc.VolumeDetector
	corr      domsvc.CorrelationTracker
	fuser     domsvc.SignalFuser

	sinks     []domrepo.ArtifactSink
	publisher domrepo.ReportPublisher
	cache     domrepo.ReportCache
	archive   domrepo.ReportArchive
	progress  domrepo.ProgressNotifier
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
}

// AnalyzerOption configures optional collaborators.
type AnalyzerOption func(*ContractAnalyzer)

func WithSinks(sinks ...domrepo.ArtifactSink) AnalyzerOption {
	return func(a *ContractAnalyzer) { a.sinks = append(a.sinks, sinks...) }
}

func WithPublisher(p domrepo.ReportPublisher) AnalyzerOption {
	return func(a *ContractAnalyzer) { a.publisher = p }
}

func WithCache(c domrepo.ReportCache) AnalyzerOption {
	return func(a *ContractAnalyzer) { a.cache = c }
}

// WithArchive adds a durable fallback consulted on cache misses.
func WithArchive(r domrepo.ReportArchive) AnalyzerOption {
	return func(a *ContractAnalyzer) { a.archive = r }
}

func WithProgress(p domrepo.ProgressNotifier) AnalyzerOption {
	return func(a *ContractAnalyzer) { a.progress = p }
}

func WithCollectionWindow(w CollectionWindow) AnalyzerOption {
	return func(a *ContractAnalyzer) { a.window = w }
}

func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *ContractAnalyzer) { a.now = now }
}

// WithDetectors replaces the stage implementations; nil arguments keep the defaults.
func WithDetectors(trend domsvc.TrendDetector, validator domsvc.PatternValidator, volume domsvc.VolumeDetector, corr domsvc.CorrelationTracker, fuser domsvc.SignalFuser) AnalyzerOption {
	return func(a *ContractAnalyzer) {
		if trend != nil {
			a.trend = trend
		}
		if validator != nil {
			a.validator = validator
		}
		if volume != nil {
			a.volume = volume
		}
		if corr != nil {
			a.corr = corr
		}
		if fuser != nil {
			a.fuser = fuser
		}
	}
}

func NewContractAnalyzer(
	roster models.Roster,
	params models.AnalysisParams,
	source domrepo.MarketDataSource,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	opts ...AnalyzerOption,
) *ContractAnalyzer {
	a := &ContractAnalyzer{
		roster:    roster,
		window:    DefaultCollectionWindow(),
		source:    source,
		trend:     analytics.NewTrendDetector(params.Trend, roster.Controls, l),
		validator: analytics.NewPatternValidator(params.Validation, roster.Controls, l),
		volume:    analytics.NewVolumeDetector(params.Volume, l),
		corr:      analytics.NewCorrelationTracker(params.Correlation, roster, l),
		fuser:     analytics.NewSignalFuser(params.Fusion),
		metrics:   metrics,
		l:         l,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze parses the MM/DD/YYYY contract date and runs the pipeline. A malformed date fails
// with *models.DateFormatError before any data is fetched. Any other failure is logged and
// yields a nil report together with the error.
func (a *ContractAnalyzer) Analyze(ctx context.Context, contractDate string) (*models.AnalysisReport, error) {
	contract, err := models.ParseContractDate(contractDate)
	if err != nil {
		a.metrics.RecordError("date_format")
		return nil, err
	}

	start := time.Now()
	report, err := a.run(ctx, contract)
	if err != nil {
		a.l.Error("contract analysis failed", applogger.Date("contract_date", contract), applogger.Error(err))
		a.metrics.RecordError("analysis")
		a.notify(ctx, contract, "analysis", models.ProgressFailed, err.Error())
		return nil, err
	}
	a.l.Info("contract analysis finished",
		applogger.Date("contract_date", contract),
		applogger.Int("flagged_trends", len(report.PriceTrends)),
		applogger.Int("volume_signals", len(report.VolumeSignals)),
		applogger.Int("correlation_pairs", len(report.Correlations)),
		applogger.Int("skipped", len(report.Skipped)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return report, nil
}

// Report returns a previously computed report from the cache, then the archive.
// Archive hits are written back to the cache.
func (a *ContractAnalyzer) Report(ctx context.Context, contract time.Time) (*models.AnalysisReport, error) {
	if a.cache != nil {
		r, err := a.cache.Get(ctx, contract)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, models.ErrReportNotFound) {
			a.l.Warn("report cache read failed", applogger.Date("contract_date", contract), applogger.Error(err))
		}
	}
	if a.archive == nil {
		return nil, models.ErrReportNotFound
	}
	r, err := a.archive.LoadReport(ctx, contract)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		if err := a.cache.Set(ctx, r); err != nil {
			a.l.Warn("report cache write failed", applogger.Date("contract_date", contract), applogger.Error(err))
		}
	}
	return r, nil
}

func (a *ContractAnalyzer) run(ctx context.Context, contract time.Time) (report *models.AnalysisReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			report, err = nil, &models.StageFailure{Stage: "analysis", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	from, to := util.LookbackWindow(contract, a.window.Lookahead, a.window.Lookback)
	window := models.DateRange{Start: from, End: to}

	var data *models.MarketData
	if err := a.stage(ctx, contract, models.StageCollect, func() error {
		var ferr error
		data, ferr = a.source.Fetch(ctx, a.roster, window)
		return ferr
	}); err != nil {
		return nil, fmt.Errorf("collect market data: %w", err)
	}

	var warnings []string
	if data == nil {
		data = &models.MarketData{Window: window}
	}
	if data.Prices == nil {
		data.Prices = models.NewFrame(nil)
	}
	if data.Volumes == nil {
		data.Volumes = models.NewFrame(nil)
	}
	if data.Empty() {
		a.l.Warn("no market data for window",
			applogger.Date("from", window.Start),
			applogger.Date("to", window.End),
			applogger.Error(models.ErrDataUnavailable),
		)
		warnings = append(warnings, models.ErrDataUnavailable.Error())
	}
	prices, volumes := data.Prices, data.Volumes

	var (
		trends models.TrendAnalysis
		volume models.VolumeAnalysis
		corr   models.CorrelationAnalysis
	)
	var g errgroup.Group
	g.Go(func() error {
		return a.stage(ctx, contract, models.StageTrend, func() error { trends = a.trend.Detect(prices); return nil })
	})
	g.Go(func() error {
		return a.stage(ctx, contract, models.StageVolume, func() error { volume = a.volume.Detect(volumes); return nil })
	})
	g.Go(func() error {
		return a.stage(ctx, contract, models.StageCorrelation, func() error { corr = a.corr.Track(prices); return nil })
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if trends.Tickers == nil {
		warnings = append(warnings, "price trend analysis produced no results")
		trends.Tickers = map[string]models.TickerTrend{}
	}
	if volume.Signals == nil {
		warnings = append(warnings, "volume pattern analysis produced no results")
		volume.Signals = map[string]models.VolumeSignal{}
	}
	if corr.Series == nil {
		warnings = append(warnings, "correlation analysis produced no results")
		corr.Series = map[string]models.CorrelationSeries{}
	}

	var validation models.ValidationAnalysis
	if err := a.stage(ctx, contract, models.StageValidation, func() error {
		validation = a.validator.Validate(prices, trends)
		return nil
	}); err != nil {
		return nil, err
	}
	trends = trends.WithValidation(validation.Results)

	var composite []models.CompositeScore
	if err := a.stage(ctx, contract, models.StageFusion, func() error {
		composite = a.fuser.Fuse(prices.Index(), []time.Time{contract}, volume, corr)
		return nil
	}); err != nil {
		return nil, err
	}

	report = &models.AnalysisReport{
		ContractDate:     contract,
		GeneratedAt:      a.now().UTC(),
		Window:           window,
		VolumeSignals:    volume.Signals,
		Correlations:     corr.Series,
		PriceTrends:      trends.Tickers,
		CompositeSignals: models.Series{},
		Warnings:         warnings,
	}
	for _, cs := range composite {
		if cs.ContractDate.Equal(contract) {
			report.CompositeSignals = cs.Scores
		}
	}

	a.recordUnits(models.StageCollect, data.Units)
	a.recordUnits(models.StageTrend, trends.Units)
	a.recordUnits(models.StageValidation, validation.Units)
	a.recordUnits(models.StageVolume, volume.Units)
	a.recordUnits(models.StageCorrelation, corr.Units)
	for _, units := range [][]models.UnitResult{data.Units, trends.Units, validation.Units, volume.Units, corr.Units} {
		report.Skipped = append(report.Skipped, models.SkippedUnits(units)...)
	}
	a.metrics.RecordFlagged(models.StageTrend, len(report.PriceTrends))
	a.metrics.RecordFlagged(models.StageVolume, len(report.VolumeSignals))
	if peak, ok := report.CompositeSignals.Max(); ok {
		a.metrics.RecordCompositePeak(peak.Value)
	}

	a.deliver(ctx, contract, models.BuildArtifacts(prices, volumes, report))
	return report, nil
}

// stage times fn, emits progress events and converts a panic into a StageFailure.
func (a *ContractAnalyzer) stage(ctx context.Context, contract time.Time, name string, fn func() error) (err error) {
	a.notify(ctx, contract, name, models.ProgressStarted, "")
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &models.StageFailure{Stage: name, Err: fmt.Errorf("panic: %v", r)}
		}
		a.metrics.ObserveStage(name, time.Since(start).Seconds())
		if err != nil {
			a.notify(ctx, contract, name, models.ProgressFailed, err.Error())
			return
		}
		a.notify(ctx, contract, name, models.ProgressCompleted, "")
	}()
	return fn()
}

// deliver persists, publishes and caches the run. Failures here degrade to warnings.
func (a *ContractAnalyzer) deliver(ctx context.Context, contract time.Time, art *models.Artifacts) {
	report := art.Report
	_ = a.stage(ctx, contract, models.StagePersist, func() error {
		var errs []error
		for _, sink := range a.sinks {
			if err := sink.Save(ctx, art); err != nil {
				a.l.Warn("artifact sink failed", applogger.String("sink", sink.Name()), applogger.Error(err))
				a.metrics.RecordError("persist_" + sink.Name())
				report.Warnings = append(report.Warnings, fmt.Sprintf("persist %s: %v", sink.Name(), err))
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	if a.publisher != nil {
		if err := a.publisher.PublishReport(ctx, report); err != nil {
			a.l.Warn("report publish failed", applogger.Date("contract_date", contract), applogger.Error(err))
			a.metrics.RecordError("publish")
			report.Warnings = append(report.Warnings, fmt.Sprintf("publish: %v", err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Set(ctx, report); err != nil {
			a.l.Warn("report cache write failed", applogger.Date("contract_date", contract), applogger.Error(err))
			a.metrics.RecordError("cache")
		}
	}
}

func (a *ContractAnalyzer) recordUnits(stage string, units []models.UnitResult) {
	var ok, skipped int
	for _, u := range units {
		if u.Status == models.UnitSkipped {
			skipped++
		} else {
			ok++
		}
	}
	a.metrics.RecordUnits(stage, ok, skipped)
}

func (a *ContractAnalyzer) notify(ctx context.Context, contract time.Time, stage, status, detail string) {
	if a.progress == nil {
		return
	}
	a.progress.Notify(ctx, models.ProgressEvent{
		ContractDate: contract.Format("2006-01-02"),
		Stage:        stage,
		Status:       status,
		Detail:       detail,
		At:           a.now().UTC(),
	})
}
