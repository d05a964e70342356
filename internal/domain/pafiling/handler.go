package pafiling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/domain/orderstate"
	"github.com/radpa/radpa/pkg/validation"
)

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/pa-form", h.GetDefaultForm)
	api.POST("/patients/:id/filing", h.StartFiling)

	f := api.Group("/filing")
	f.GET("/:sid", h.GetSession)
	f.POST("/:sid/loaded", h.LoadingComplete)
	f.POST("/:sid/continue", h.Continue)
	f.POST("/:sid/back", h.Back)
	f.POST("/:sid/submit", h.Submit)
	f.POST("/:sid/close", h.Close)
	f.DELETE("/:sid", h.Cancel)
}

type startRequest struct {
	Mode     EntryMode            `json:"mode"`
	FormData *orderstate.FormData `json:"formData"`
}

func httpError(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"message": "invalid PA form",
			"errors":  validation.Messages(verr.Err),
		})
	case errors.Is(err, ErrFormRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrFilingNotAllowed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return order.HTTPError(err)
}

func (h *Handler) GetDefaultForm(c echo.Context) error {
	o, err := h.mgr.orders.GetByMRN(c.Request().Context(), c.Param("id"))
	if err != nil {
		return order.HTTPError(err)
	}
	return c.JSON(http.StatusOK, DefaultForm(o))
}

func (h *Handler) StartFiling(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Mode == "" {
		req.Mode = ModeFresh
	}
	if !req.Mode.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be fresh, resumeForm or resumePreview")
	}
	w, err := h.mgr.Start(c.Request().Context(), c.Param("id"), req.Mode, req.FormData)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, w.Snapshot())
}

func (h *Handler) GetSession(c echo.Context) error {
	w, err := h.mgr.Get(c.Param("sid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w.Snapshot())
}

func (h *Handler) LoadingComplete(c echo.Context) error {
	return h.transition(c, func(w *Wizard) error { return w.LoadingComplete() })
}

func (h *Handler) Continue(c echo.Context) error {
	var form orderstate.FormData
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return h.transition(c, func(w *Wizard) error { return w.Continue(form) })
}

func (h *Handler) Back(c echo.Context) error {
	return h.transition(c, func(w *Wizard) error { return w.Back() })
}

func (h *Handler) Submit(c echo.Context) error {
	return h.transition(c, func(w *Wizard) error { return w.Submit(c.Request().Context()) })
}

func (h *Handler) Close(c echo.Context) error {
	snap, err := h.mgr.Close(c.Param("sid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler) Cancel(c echo.Context) error {
	if err := h.mgr.Cancel(c.Param("sid")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) transition(c echo.Context, fn func(*Wizard) error) error {
	w, err := h.mgr.Get(c.Param("sid"))
	if err != nil {
		return httpError(err)
	}
	if err := fn(w); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w.Snapshot())
}
