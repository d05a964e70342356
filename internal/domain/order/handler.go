package order

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/radpa/radpa/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/orders", h.ListOrders)
	api.GET("/orders/stats", h.GetStats)
	api.GET("/orders/:orderId", h.GetOrder)
	api.GET("/patients/:id", h.GetPatientOrder)
	api.GET("/patients/:id/ev", h.GetEligibility)
}

// HTTPError maps service errors onto the responses every patient page uses.
func HTTPError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "No data found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) ListOrders(c echo.Context) error {
	pg := pagination.FromContext(c)
	rows, err := h.svc.TableRows(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(rows, pg), len(rows), pg.Limit, pg.Offset))
}

func (h *Handler) GetStats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) GetOrder(c echo.Context) error {
	o, err := h.svc.GetByID(c.Request().Context(), c.Param("orderId"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) GetPatientOrder(c echo.Context) error {
	o, err := h.svc.GetByMRN(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) GetEligibility(c echo.Context) error {
	ev, err := h.svc.Eligibility(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, ev)
}
