package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"ContractScan/internal/domain/models"
	reqmetrics "ContractScan/internal/service/metrics"
	"ContractScan/internal/service/ratelimit"
	"ContractScan/internal/usecase"
	xhttp "ContractScan/pkg/http"
	applogger "ContractScan/pkg/logger"
	"ContractScan/pkg/util"
)

// HealthCheck reports whether one backing service is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// AnalysisHandler exposes contract analyses over HTTP.
type AnalysisHandler struct {
	svc    *usecase.AnalysisService
	rl     *ratelimit.Limiter
	checks []HealthCheck
	l      *applogger.Logger
}

func NewAnalysisHandler(svc *usecase.AnalysisService, l *applogger.Logger, checks ...HealthCheck) *AnalysisHandler {
	reqmetrics.Register()
	return &AnalysisHandler{svc: svc, rl: ratelimit.New(), checks: checks, l: l}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/analyze", h.Analyze)
	g.GET("/reports/:date", h.Report)
	g.GET("/reports/:date/summary", h.Summary)
	g.GET("/health", h.Health)
}

// Analyze runs (or serves the cached) analysis for a contract date.
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":analyze", 3, 0.2) {
		h.l.Warn("analyze rate limited", applogger.String("remote", c.RealIP()))
		return c.JSON(http.StatusTooManyRequests, xhttp.APIResponse{
			Status:  http.StatusTooManyRequests,
			Message: http.StatusText(http.StatusTooManyRequests),
		})
	}

	report, err := h.svc.Run(c.Request().Context(), reqmetrics.OriginHTTP, *req)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *AnalysisHandler) Report(c echo.Context) error {
	report, err := h.lookup(c)
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, report)
}

func (h *AnalysisHandler) Summary(c echo.Context) error {
	report, err := h.lookup(c)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, report.Summary())
}

func (h *AnalysisHandler) lookup(c echo.Context) (*models.AnalysisReport, error) {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nil, &requestError{errs: verr}
	}
	contract, ok := util.ParseStamp(req.Date)
	if !ok {
		return nil, xhttp.UnprocessableError("date", "date must be YYYYMMDD")
	}
	return h.svc.Report(c.Request().Context(), contract)
}

// Health pings every registered dependency; any failure turns the response into a 503.
func (h *AnalysisHandler) Health(c echo.Context) error {
	status := map[string]string{}
	healthy := true
	for _, chk := range h.checks {
		if err := chk.Check(c.Request().Context()); err != nil {
			status[chk.Name] = err.Error()
			healthy = false
			continue
		}
		status[chk.Name] = "ok"
	}
	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}

// requestError carries binding or validation failures to fail.
type requestError struct {
	errs []xhttp.ValidationError
}

func (e *requestError) Error() string { return xhttp.JoinValidation(e.errs).Error() }

func (h *AnalysisHandler) fail(c echo.Context, err error) error {
	var (
		dfe    *models.DateFormatError
		reqErr *requestError
		appErr *xhttp.AppError
	)
	switch {
	case errors.As(err, &reqErr):
		return xhttp.BadRequestResponse(c, reqErr.errs)
	case errors.As(err, &appErr):
		return xhttp.AppErrorResponse(c, appErr)
	case errors.As(err, &dfe):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_DATE_FORMAT", "contract_date", dfe.Error(), http.StatusBadRequest))
	case errors.Is(err, models.ErrReportNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, models.ErrAnalysisInProgress):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	case errors.Is(err, models.ErrDataUnavailable):
		h.l.Warn("analysis data unavailable", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(err.Error()))
	}
	h.l.Error("analysis request failed", applogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
