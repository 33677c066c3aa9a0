package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ContractScan/internal/domain/models"
	"ContractScan/internal/service/yahoo"
	applogger "ContractScan/pkg/logger"
)

// BarFetcher returns daily bars for one symbol.
type BarFetcher interface {
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]yahoo.Bar, error)
}

// YahooMarketSource downloads every roster instrument concurrently. A ticker that fails or
// returns no bars is logged, recorded as skipped and left out of both tables.
type YahooMarketSource struct {
	client      BarFetcher
	concurrency int
	l           *applogger.Logger
}

func NewYahooMarketSource(client BarFetcher, concurrency int, l *applogger.Logger) *YahooMarketSource {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &YahooMarketSource{client: client, concurrency: concurrency, l: l}
}

func (s *YahooMarketSource) Fetch(ctx context.Context, roster models.Roster, window models.DateRange) (*models.MarketData, error) {
	var (
		mu      sync.Mutex
		prices  = make(map[string]models.Series)
		volumes = make(map[string]models.Series)
		units   = make([]models.UnitResult, len(roster.Instruments))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, in := range roster.Instruments {
		g.Go(func() error {
			bars, err := s.client.DailyBars(gctx, in.Symbol, window.Start, window.End)
			if err == nil && len(bars) == 0 {
				err = fmt.Errorf("%w: no bars for %s", models.ErrDataUnavailable, in.Symbol)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.l.Warn("skipping instrument",
					applogger.String("name", in.Name),
					applogger.String("symbol", in.Symbol),
					applogger.Error(err),
				)
				units[i] = models.UnitSkip(models.StageCollect, in.Name, err)
				return nil
			}

			p := make(models.Series, 0, len(bars))
			v := make(models.Series, 0, len(bars))
			for _, b := range bars {
				if b.Missing {
					p = append(p, models.Point{Date: b.Date, Value: math.NaN()})
					v = append(v, models.Point{Date: b.Date, Value: math.NaN()})
					continue
				}
				p = append(p, models.Point{Date: b.Date, Value: b.Close.InexactFloat64()})
				v = append(v, models.Point{Date: b.Date, Value: float64(b.Volume)})
			}
			mu.Lock()
			prices[in.Name], volumes[in.Name] = p, v
			mu.Unlock()
			units[i] = models.UnitDone(models.StageCollect, in.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch market data: %w", err)
	}

	names := roster.Names()
	data := &models.MarketData{
		Window:  window,
		Prices:  models.AlignSeries(names, prices),
		Volumes: models.AlignSeries(names, volumes),
		Units:   units,
	}
	s.l.Info("market data collected",
		applogger.Date("from", window.Start),
		applogger.Date("to", window.End),
		applogger.Int("instruments", len(prices)),
		applogger.Int("dates", data.Prices.Len()),
	)
	return data, nil
}
