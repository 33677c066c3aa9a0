package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractScan/internal/domain/models"
	svccache "ContractScan/internal/service/cache"
	"ContractScan/internal/usecase"
	pkgcache "ContractScan/pkg/cache"
	xhttp "ContractScan/pkg/http"
	applogger "ContractScan/pkg/logger"
	"ContractScan/pkg/metrics"
)

type stubSource struct {
	err   error
	calls int
}

func (s *stubSource) Fetch(context.Context, models.Roster, models.DateRange) (*models.MarketData, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.MarketData{}, nil
}

func newAnalysisAPI(t *testing.T, src *stubSource, checks ...HealthCheck) (*echo.Echo, *svccache.ReportCache) {
	t.Helper()
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	cache := svccache.NewReportCache(store, time.Hour)
	a := usecase.NewContractAnalyzer(models.DefaultRoster(), models.DefaultAnalysisParams(), src, metrics.Noop{}, applogger.Nop(), usecase.WithCache(cache))
	svc := usecase.NewAnalysisService(a, cache, time.Minute, applogger.Nop())

	e := echo.New()
	NewAnalysisHandler(svc, applogger.Nop(), checks...).RegisterRoutes(e)
	return e, cache
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) xhttp.APIResponse {
	t.Helper()
	var resp xhttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAnalyzeThenFetchReport(t *testing.T) {
	src := &stubSource{}
	e, _ := newAnalysisAPI(t, src)

	rec := do(e, http.MethodPost, "/api/analyze", `{"contract_date":"3/31/2017"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, decode(t, rec).Status)
	assert.Equal(t, 1, src.calls)

	rec = do(e, http.MethodGet, "/api/reports/20170331", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "private, max-age=60", rec.Header().Get(echo.HeaderCacheControl))

	rec = do(e, http.MethodGet, "/api/reports/20170331/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec).Data.(map[string]any)
	assert.Equal(t, "2017-03-31", data["contract_date"])
	assert.Equal(t, 1, src.calls)
}

func TestAnalyzeErrorMapping(t *testing.T) {
	e, cache := newAnalysisAPI(t, &stubSource{err: fmt.Errorf("yahoo: %w", models.ErrDataUnavailable)})

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/api/analyze", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/api/analyze", `{"contract_date":"2017-03-31"}`).Code)

	release, ok, err := cache.Lock(context.Background(), time.Date(2017, 4, 3, 0, 0, 0, 0, time.UTC), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()
	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/api/analyze", `{"contract_date":"4/3/2017"}`).Code)

	e, _ = newAnalysisAPI(t, &stubSource{err: fmt.Errorf("yahoo: %w", models.ErrDataUnavailable)})
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodPost, "/api/analyze", `{"contract_date":"3/31/2017"}`).Code)
}

func TestAnalyzeIsRateLimited(t *testing.T) {
	e, _ := newAnalysisAPI(t, &stubSource{})
	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		codes = append(codes, do(e, http.MethodPost, "/api/analyze", `{"contract_date":"3/31/2017"}`).Code)
	}
	assert.Equal(t, []int{200, 200, 200, http.StatusTooManyRequests}, codes)
}

func TestReportLookupErrors(t *testing.T) {
	e, _ := newAnalysisAPI(t, &stubSource{})

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/reports/2017-03", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(e, http.MethodGet, "/api/reports/20171340", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/reports/20170331", "").Code)
}

func TestHealth(t *testing.T) {
	ok := HealthCheck{Name: "redis", Check: func(context.Context) error { return nil }}
	e, _ := newAnalysisAPI(t, &stubSource{}, ok)
	rec := do(e, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"redis": "ok"}, decode(t, rec).Data)

	down := HealthCheck{Name: "clickhouse", Check: func(context.Context) error { return errors.New("connection refused") }}
	e, _ = newAnalysisAPI(t, &stubSource{}, ok, down)
	rec = do(e, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "connection refused", decode(t, rec).Data.(map[string]any)["clickhouse"])
}

type memoryStore struct {
	rows []models.Supplier
}

func (m *memoryStore) Load(context.Context) ([]models.Supplier, error) {
	return append([]models.Supplier(nil), m.rows...), nil
}

func (m *memoryStore) Save(_ context.Context, s []models.Supplier) error {
	m.rows = append([]models.Supplier(nil), s...)
	return nil
}

func newSupplierAPI() (*echo.Echo, *memoryStore) {
	store := &memoryStore{rows: []models.Supplier{
		{CompanyName: "Hexcel", TickerSymbol: "HXL", TierLevel: 2},
		{CompanyName: "Luna Innovations", TickerSymbol: "LUNA", TierLevel: 3},
		{CompanyName: "Bron Tapes of Colorado", TickerSymbol: "N/A", TierLevel: 3},
	}}
	e := echo.New()
	NewSupplierHandler(usecase.NewSupplierRegistry(store, applogger.Nop()), applogger.Nop()).RegisterRoutes(e)
	return e, store
}

func TestSupplierListing(t *testing.T) {
	e, _ := newSupplierAPI()

	rec := do(e, http.MethodGet, "/api/suppliers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec).Data.(map[string]any)["total"])

	rec = do(e, http.MethodGet, "/api/suppliers/public", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode(t, rec).Data.(map[string]any)["rows"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "Luna Innovations", rows[0].(map[string]any)["company_name"])

	rec = do(e, http.MethodGet, "/api/suppliers/public?tier=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec).Data.(map[string]any)["total"])

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/suppliers/public?tier=7", "").Code)
}

func TestSupplierMutations(t *testing.T) {
	e, store := newSupplierAPI()

	rec := do(e, http.MethodPost, "/api/suppliers", `{"company_name":"Carpenter Technology Corporation","ticker_symbol":"CRS","tier_level":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, store.rows, 4)

	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/api/suppliers", `{"company_name":"hexcel","tier_level":2}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/api/suppliers", `{"company_name":"Acme","tier_level":6}`).Code)

	rec = do(e, http.MethodPatch, "/api/suppliers/Hexcel", `{"Tier_Level":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, store.rows[0].TierLevel)
	assert.Equal(t, http.StatusUnprocessableEntity, do(e, http.MethodPatch, "/api/suppliers/Hexcel", `{"Rating":"A"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(e, http.MethodPatch, "/api/suppliers/Hexcel", `{"Tier_Level":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPatch, "/api/suppliers/Nobody", `{"Location":"x"}`).Code)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/suppliers/Hexcel", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/api/suppliers/Hexcel", "").Code)
	assert.Len(t, store.rows, 3)
}
