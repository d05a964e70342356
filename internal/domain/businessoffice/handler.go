package businessoffice

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/domain/orderstate"
	"github.com/radpa/radpa/pkg/validation"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	bo := api.Group("/patients/:id/dynamics/business-office")
	bo.GET("", h.Get)
	bo.PUT("", h.Save)
	bo.POST("/refresh", h.Refresh)
	bo.POST("/entries", h.AddEntry)
	bo.POST("/entries/:idx/cases", h.AddAuthCase)
	bo.DELETE("/entries/:idx/cases/:case", h.DeleteAuthCase)
	bo.POST("/rpa", h.TriggerRPA)
}

type view struct {
	OrderID    string                      `json:"orderId"`
	Entries    []order.BusinessOfficeEntry `json:"entries"`
	RPATrigger *orderstate.RPATrigger      `json:"rpaTrigger,omitempty"`
}

type saveRequest struct {
	Entries []order.BusinessOfficeEntry `json:"entries" validate:"required"`
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNoTemplates):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEntryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return order.HTTPError(err)
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	o, entries, err := h.svc.Entries(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	v := view{OrderID: o.OrderID, Entries: entries}
	trig, err := h.svc.store.RPATrigger(ctx, o.OrderID)
	switch {
	case err == nil:
		v.RPATrigger = trig
	case !errors.Is(err, orderstate.ErrNotFound):
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Save(c echo.Context) error {
	var req saveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validation.Messages(err))
	}
	entries, err := h.svc.Save(c.Request().Context(), c.Param("id"), req.Entries)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *Handler) Refresh(c echo.Context) error {
	entries, err := h.svc.RefreshTemplates(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *Handler) AddEntry(c echo.Context) error {
	entries, err := h.svc.AddEntry(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"entries": entries})
}

func (h *Handler) AddAuthCase(c echo.Context) error {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry index")
	}
	entries, err := h.svc.AddAuthCase(c.Request().Context(), c.Param("id"), idx)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"entries": entries})
}

func (h *Handler) DeleteAuthCase(c echo.Context) error {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry index")
	}
	caseIdx, err := strconv.Atoi(c.Param("case"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case index")
	}
	entries, err := h.svc.DeleteAuthCase(c.Request().Context(), c.Param("id"), idx, caseIdx)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *Handler) TriggerRPA(c echo.Context) error {
	note, err := h.svc.TriggerRPA(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, note)
}
