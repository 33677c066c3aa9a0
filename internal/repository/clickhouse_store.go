package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"ContractScan/internal/domain/models"
	pkgch "ContractScan/pkg/clickhouse"
	applogger "ContractScan/pkg/logger"
)

// ClickHouseSchema is the idempotent DDL for every table the store reads or writes.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS daily_bars (
		name        LowCardinality(String),
		date        Date,
		close       Nullable(Float64),
		volume      Nullable(Float64),
		inserted_at DateTime64(3) DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(inserted_at)
	ORDER BY (name, date)`,
	`CREATE TABLE IF NOT EXISTS volume_patterns (
		contract_date Date,
		ticker        LowCardinality(String),
		date          Date,
		z_score       Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (contract_date, ticker, date)`,
	`CREATE TABLE IF NOT EXISTS correlations (
		contract_date Date,
		pair          LowCardinality(String),
		date          Date,
		coefficient   Nullable(Float64)
	) ENGINE = ReplacingMergeTree
	ORDER BY (contract_date, pair, date)`,
	`CREATE TABLE IF NOT EXISTS price_trends (
		contract_date Date,
		ticker        LowCardinality(String),
		window        LowCardinality(String),
		start_date    Date,
		growth_rate   Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (contract_date, ticker, window, start_date)`,
	`CREATE TABLE IF NOT EXISTS composite_signals (
		contract_date Date,
		date          Date,
		score         Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (contract_date, date)`,
	`CREATE TABLE IF NOT EXISTS reports (
		contract_date Date,
		generated_at  DateTime64(3),
		payload       String CODEC(ZSTD)
	) ENGINE = ReplacingMergeTree(generated_at)
	ORDER BY contract_date`,
}

type tableRows struct {
	table string
	rows  [][]any
}

// artifactRows flattens a run into per-table insert rows. NaN is stored as NULL where the column allows it.
func artifactRows(a *models.Artifacts) []tableRows {
	var bars [][]any
	if a.Prices != nil {
		for _, name := range a.Prices.Columns() {
			closes, _ := a.Prices.Column(name)
			vols, hasVol := a.Volumes.Column(name)
			for i, d := range a.Prices.Index() {
				var vol *float64
				if hasVol {
					if j, ok := a.Volumes.Position(d); ok {
						vol = models.Nullable(vols[j])
					}
				}
				c := models.Nullable(closes[i])
				if c == nil && vol == nil {
					continue
				}
				bars = append(bars, []any{name, d, c, vol})
			}
		}
	}

	out := []tableRows{{table: "daily_bars", rows: bars}}

	var vp [][]any
	for _, r := range a.VolumeSignals {
		vp = append(vp, []any{a.ContractDate, r.Ticker, r.Date, r.ZScore})
	}
	out = append(out, tableRows{table: "volume_patterns", rows: vp})

	var cr [][]any
	for _, r := range a.Correlations {
		cr = append(cr, []any{a.ContractDate, r.Pair, r.Date, models.Nullable(r.Coefficient)})
	}
	out = append(out, tableRows{table: "correlations", rows: cr})

	var tr [][]any
	for _, r := range a.Trends {
		tr = append(tr, []any{a.ContractDate, r.Ticker, r.Window, r.StartDate, r.GrowthRate})
	}
	out = append(out, tableRows{table: "price_trends", rows: tr})

	var cs [][]any
	for _, r := range a.Composite {
		cs = append(cs, []any{r.ContractDate, r.Date, r.Score})
	}
	return append(out, tableRows{table: "composite_signals", rows: cs})
}

var insertColumns = map[string]string{
	"daily_bars":        "(name, date, close, volume)",
	"volume_patterns":   "(contract_date, ticker, date, z_score)",
	"correlations":      "(contract_date, pair, date, coefficient)",
	"price_trends":      "(contract_date, ticker, window, start_date, growth_rate)",
	"composite_signals": "(contract_date, date, score)",
	"reports":           "(contract_date, generated_at, payload)",
}

// ClickHouseStore is both an artifact sink and a market data source over the same tables.
type ClickHouseStore struct {
	conn driver.Conn
	l    *applogger.Logger
}

func NewClickHouseStore(client *pkgch.Client, l *applogger.Logger) *ClickHouseStore {
	return &ClickHouseStore{conn: client.Conn(), l: l}
}

func (s *ClickHouseStore) Name() string { return "clickhouse" }

func (s *ClickHouseStore) Save(ctx context.Context, a *models.Artifacts) error {
	start := time.Now()
	total := 0
	for _, t := range artifactRows(a) {
		if len(t.rows) == 0 {
			continue
		}
		if err := s.insert(ctx, t.table, t.rows); err != nil {
			s.l.Error("clickhouse insert failed", applogger.String("table", t.table), applogger.Error(err))
			return err
		}
		total += len(t.rows)
	}
	if a.Report != nil {
		payload, err := json.Marshal(a.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		if err := s.insert(ctx, "reports", [][]any{{a.ContractDate, a.Report.GeneratedAt, string(payload)}}); err != nil {
			return err
		}
		total++
	}
	s.l.Info("clickhouse artifacts saved",
		applogger.Date("contract_date", a.ContractDate),
		applogger.Int("rows", total),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *ClickHouseStore) insert(ctx context.Context, table string, rows [][]any) error {
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s %s", table, insertColumns[table]))
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append %s: %w", table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send %s: %w", table, err)
	}
	return nil
}

// Fetch reads stored daily bars for the roster inside window.
func (s *ClickHouseStore) Fetch(ctx context.Context, roster models.Roster, window models.DateRange) (*models.MarketData, error) {
	const q = `
		SELECT name, date, close, volume
		FROM daily_bars FINAL
		WHERE date >= ? AND date < ?
		ORDER BY name, date`
	rows, err := s.conn.Query(ctx, q, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query daily bars: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]models.Series)
	volumes := make(map[string]models.Series)
	for rows.Next() {
		var (
			name    string
			date    time.Time
			px, vol *float64
		)
		if err := rows.Scan(&name, &date, &px, &vol); err != nil {
			return nil, fmt.Errorf("scan daily bar: %w", err)
		}
		d := models.DateOnly(date)
		if px != nil {
			prices[name] = append(prices[name], models.Point{Date: d, Value: *px})
		}
		if vol != nil {
			volumes[name] = append(volumes[name], models.Point{Date: d, Value: *vol})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily bar rows: %w", err)
	}

	data := &models.MarketData{Window: window}
	for _, in := range roster.Instruments {
		if len(prices[in.Name]) == 0 {
			err := fmt.Errorf("%w: no stored bars for %s", models.ErrDataUnavailable, in.Name)
			s.l.Warn("skipping instrument", applogger.String("name", in.Name), applogger.Error(err))
			data.Units = append(data.Units, models.UnitSkip(models.StageCollect, in.Name, err))
			continue
		}
		data.Units = append(data.Units, models.UnitDone(models.StageCollect, in.Name))
	}
	names := roster.Names()
	data.Prices = models.AlignSeries(names, prices)
	data.Volumes = models.AlignSeries(names, volumes)
	return data, nil
}

// LoadReport returns the most recently generated report for a contract date.
func (s *ClickHouseStore) LoadReport(ctx context.Context, contract time.Time) (*models.AnalysisReport, error) {
	const q = `
		SELECT payload
		FROM reports
		WHERE contract_date = ?
		ORDER BY generated_at DESC
		LIMIT 1`
	var payload string
	if err := s.conn.QueryRow(ctx, q, contract).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrReportNotFound
		}
		return nil, fmt.Errorf("load report: %w", err)
	}
	var r models.AnalysisReport
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
