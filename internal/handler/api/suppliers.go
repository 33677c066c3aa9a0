package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"ContractScan/internal/domain/models"
	"ContractScan/internal/usecase"
	xhttp "ContractScan/pkg/http"
	applogger "ContractScan/pkg/logger"
)

type SupplierHandler struct {
	registry *usecase.SupplierRegistry
	l        *applogger.Logger
}

func NewSupplierHandler(registry *usecase.SupplierRegistry, l *applogger.Logger) *SupplierHandler {
	return &SupplierHandler{registry: registry, l: l}
}

func (h *SupplierHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/suppliers")
	g.GET("", h.List)
	g.GET("/public", h.Public)
	g.POST("", h.Create)
	g.PATCH("/:name", h.Update)
	g.DELETE("/:name", h.Delete)
}

func (h *SupplierHandler) List(c echo.Context) error {
	all, err := h.registry.List(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.ListResponse(c, all, int64(len(all)))
}

// Public lists listed suppliers of one tier (default 3).
func (h *SupplierHandler) Public(c echo.Context) error {
	req := &models.SuppliersByTierRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.registry.PublicByTier(c.Request().Context(), req.Tier)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SupplierHandler) Create(c echo.Context) error {
	s := &models.Supplier{}
	if verr := xhttp.ReadAndValidateRequest(c, s); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.Add(c.Request().Context(), *s); err != nil {
		return h.fail(c, err)
	}
	return xhttp.CreatedResponse(c, s)
}

// Update takes a JSON object keyed by registry column, e.g. {"Tier_Level": "2"}.
func (h *SupplierHandler) Update(c echo.Context) error {
	fields := map[string]string{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &fields); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("body must be an object of column to value"))
	}
	if len(fields) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("no fields to update"))
	}
	s, err := h.registry.Update(c.Request().Context(), c.Param("name"), fields)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *SupplierHandler) Delete(c echo.Context) error {
	if err := h.registry.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return h.fail(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *SupplierHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrSupplierNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, models.ErrSupplierExists):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	case errors.Is(err, models.ErrUnknownSupplierField), errors.Is(err, models.ErrInvalidSupplier):
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError("", err.Error()))
	}
	h.l.Error("supplier registry error", applogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
