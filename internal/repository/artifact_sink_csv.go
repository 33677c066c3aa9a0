package repository

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"ContractScan/internal/domain/models"
	applogger "ContractScan/pkg/logger"
)

// CSVArtifactSink writes <artifact>_<YYYYMMDD>.csv files and report_<YYYYMMDD>.json into dir.
// Detector tables with no rows are not written.
type CSVArtifactSink struct {
	dir string
	l   *applogger.Logger
}

func NewCSVArtifactSink(dir string, l *applogger.Logger) *CSVArtifactSink {
	return &CSVArtifactSink{dir: dir, l: l}
}

func (s *CSVArtifactSink) Name() string { return "csv" }

func (s *CSVArtifactSink) Save(ctx context.Context, a *models.Artifacts) error {
	stamp := models.Stamp(a.ContractDate)
	path := func(artifact, ext string) string {
		return filepath.Join(s.dir, fmt.Sprintf("%s_%s.%s", artifact, stamp, ext))
	}

	writes := []struct {
		artifact string
		skip     bool
		write    func(io.Writer) error
	}{
		{models.ArtifactMarketData, a.Prices == nil, func(w io.Writer) error { return WriteFrame(w, a.Prices) }},
		{models.ArtifactVolumeData, a.Volumes == nil, func(w io.Writer) error { return WriteFrame(w, a.Volumes) }},
		{models.ArtifactVolumePatterns, len(a.VolumeSignals) == 0, func(w io.Writer) error {
			return writeRows(w, []string{"ticker", "date", "z_score"}, len(a.VolumeSignals), func(i int) []string {
				r := a.VolumeSignals[i]
				return []string{r.Ticker, r.Date.Format(csvDateLayout), formatFloat(r.ZScore)}
			})
		}},
		{models.ArtifactCorrelations, len(a.Correlations) == 0, func(w io.Writer) error {
			return writeRows(w, []string{"pair", "date", "coefficient"}, len(a.Correlations), func(i int) []string {
				r := a.Correlations[i]
				return []string{r.Pair, r.Date.Format(csvDateLayout), formatFloat(r.Coefficient)}
			})
		}},
		{models.ArtifactPriceTrends, len(a.Trends) == 0, func(w io.Writer) error {
			return writeRows(w, []string{"ticker", "window", "start_date", "growth_rate"}, len(a.Trends), func(i int) []string {
				r := a.Trends[i]
				return []string{r.Ticker, r.Window, r.StartDate.Format(csvDateLayout), formatFloat(r.GrowthRate)}
			})
		}},
		{models.ArtifactCompositeSignals, len(a.Composite) == 0, func(w io.Writer) error {
			return writeRows(w, []string{"contract_date", "date", "score"}, len(a.Composite), func(i int) []string {
				r := a.Composite[i]
				return []string{r.ContractDate.Format(csvDateLayout), r.Date.Format(csvDateLayout), formatFloat(r.Score)}
			})
		}},
	}

	written := 0
	for _, wr := range writes {
		if wr.skip {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeFileAtomic(path(wr.artifact, "csv"), wr.write); err != nil {
			return fmt.Errorf("write %s: %w", wr.artifact, err)
		}
		written++
	}

	if a.Report != nil {
		if err := writeFileAtomic(path(models.ArtifactReport, "json"), func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(a.Report)
		}); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		written++
	}

	s.l.Info("artifacts saved",
		applogger.String("dir", s.dir),
		applogger.String("stamp", stamp),
		applogger.Int("files", written),
	)
	return nil
}

func writeRows(w io.Writer, header []string, n int, row func(int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
