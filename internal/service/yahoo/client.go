package yahoo

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"ContractScan/internal/domain/models"
	"ContractScan/internal/service/ratelimit"
)

// Bar is one daily observation. Close is rounded to cents. Missing marks a row Yahoo
// returned with a null quote; its Close and Volume carry no data.
type Bar struct {
	Date    time.Time
	Close   decimal.Decimal
	Volume  int64
	Missing bool
}

// ChartFunc fetches raw daily bars for symbol in [start, end).
type ChartFunc func(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)

// Client fetches daily history from Yahoo Finance behind a shared token bucket.
type Client struct {
	limiter  *ratelimit.Limiter
	capacity float64
	rate     float64
	chart    ChartFunc
}

// NewClient allows `requests` chart calls per period.
func NewClient(limiter *ratelimit.Limiter, requests int, period time.Duration) *Client {
	return NewClientWithChart(limiter, requests, period, fetchChart)
}

// NewClientWithChart swaps the upstream call; used by tests.
func NewClientWithChart(limiter *ratelimit.Limiter, requests int, period time.Duration, fn ChartFunc) *Client {
	if requests <= 0 {
		requests = 1
	}
	if period <= 0 {
		period = time.Second
	}
	return &Client{
		limiter:  limiter,
		capacity: float64(requests),
		rate:     float64(requests) / period.Seconds(),
		chart:    fn,
	}
}

// DailyBars returns bars dated in [start, end), sorted by date, closes rounded to 2dp.
// A non-positive close is a null upstream quote and comes back flagged Missing.
func (c *Client) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := c.limiter.Wait(ctx, "yahoo", c.capacity, c.rate); err != nil {
		return nil, err
	}
	bars, err := c.chart(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		d := models.DateOnly(b.Date)
		if d.Before(start) || !d.Before(end) {
			continue
		}
		if b.Missing || !b.Close.IsPositive() {
			out = append(out, Bar{Date: d, Missing: true})
			continue
		}
		out = append(out, Bar{Date: d, Close: b.Close.Round(2), Volume: b.Volume})
	}
	return out, nil
}

func fetchChart(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	iter := chart.Get(&chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []Bar
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := iter.Bar()
		bars = append(bars, Bar{
			Date:   time.Unix(int64(bar.Timestamp), 0),
			Close:  bar.Close,
			Volume: int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	// Daily bars are stamped at the exchange open; shift to exchange local time before
	// truncating to a calendar date.
	offset := time.Duration(iter.Meta().Gmtoffset) * time.Second
	for i := range bars {
		bars[i].Date = bars[i].Date.UTC().Add(offset)
	}
	return bars, nil
}
