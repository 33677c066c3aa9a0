package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractScan/internal/domain/models"
	svccache "ContractScan/internal/service/cache"
	reqmetrics "ContractScan/internal/service/metrics"
	pkgcache "ContractScan/pkg/cache"
	applogger "ContractScan/pkg/logger"
)

func newService(t *testing.T, src *fakeSource) (*AnalysisService, *svccache.ReportCache) {
	t.Helper()
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	cache := svccache.NewReportCache(store, time.Hour)
	a := newAnalyzer(src, WithCache(cache))
	return NewAnalysisService(a, cache, time.Minute, applogger.Nop()), cache
}

func TestAnalysisServiceServesCachedReports(t *testing.T) {
	src := &fakeSource{data: stepMarket(t)}
	svc, _ := newService(t, src)
	ctx := context.Background()

	first, err := svc.Run(ctx, reqmetrics.OriginHTTP, models.AnalyzeRequest{ContractDate: "3/31/2017"})
	require.NoError(t, err)
	second, err := svc.Run(ctx, reqmetrics.OriginHTTP, models.AnalyzeRequest{ContractDate: "03/31/2017"})
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first.ContractDate, second.ContractDate)

	_, err = svc.Run(ctx, reqmetrics.OriginHTTP, models.AnalyzeRequest{ContractDate: "3/31/2017", Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestAnalysisServiceBusyWhenLocked(t *testing.T) {
	src := &fakeSource{data: stepMarket(t)}
	svc, cache := newService(t, src)
	ctx := context.Background()

	contract := time.Date(2017, 3, 31, 0, 0, 0, 0, time.UTC)
	release, ok, err := cache.Lock(ctx, contract, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Run(ctx, reqmetrics.OriginKafka, models.AnalyzeRequest{ContractDate: "3/31/2017"})
	assert.ErrorIs(t, err, models.ErrAnalysisInProgress)
	assert.Equal(t, 0, src.calls)

	release()
	_, err = svc.Run(ctx, reqmetrics.OriginKafka, models.AnalyzeRequest{ContractDate: "3/31/2017"})
	assert.NoError(t, err)
}

func TestAnalysisServiceInvalidDate(t *testing.T) {
	svc, _ := newService(t, &fakeSource{})
	_, err := svc.Run(context.Background(), reqmetrics.OriginCLI, models.AnalyzeRequest{ContractDate: "2017-03-31"})
	var dfe *models.DateFormatError
	assert.ErrorAs(t, err, &dfe)
}

func TestAnalysisRequestHandler(t *testing.T) {
	src := &fakeSource{data: stepMarket(t)}
	svc, cache := newService(t, src)
	h := NewAnalysisRequestHandler("contractscan.requests", svc, applogger.Nop())
	ctx := context.Background()

	assert.Equal(t, "contractscan.requests", h.Topic())
	assert.Error(t, h.Handle(ctx, []byte(`{"contract_date":`)))
	assert.Error(t, h.Handle(ctx, []byte(`{}`)))

	require.NoError(t, h.Handle(ctx, []byte(`{"contract_date":"3/31/2017"}`)))
	assert.Equal(t, 1, src.calls)
	_, err := cache.Get(ctx, time.Date(2017, 3, 31, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)

	release, ok, err := cache.Lock(ctx, time.Date(2017, 4, 3, 0, 0, 0, 0, time.UTC), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()
	assert.NoError(t, h.Handle(ctx, []byte(`{"contract_date":"4/3/2017"}`)), "busy dates are acknowledged")

	src.err = errors.New("upstream down")
	assert.Error(t, h.Handle(ctx, []byte(`{"contract_date":"3/31/2017","refresh":true}`)))
}
