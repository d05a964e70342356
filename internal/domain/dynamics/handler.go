package dynamics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/pkg/validation"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	p := api.Group("/patients/:id")
	p.GET("/layout", h.GetLayout)
	p.GET("/overview", h.GetOverview)
	p.POST("/complete", h.MarkComplete)
	p.DELETE("/submission", h.ResetSubmission)

	d := p.Group("/dynamics")
	d.GET("/authorization", h.GetAuthorization)
	d.GET("/workflow", h.GetWorkflow)
	d.GET("/documents", h.GetDocuments)
	d.GET("/auth-letters", h.GetAuthLetters)
	d.GET("/filed-pa", h.GetFiledPA)
	d.GET("/issues", h.GetIssues)
	d.POST("/issues/upload", h.RecordUpload)
	d.POST("/issues/request", h.RecordRequest)
	d.DELETE("/issues/processing-request", h.ClearProcessingRequest)
	d.DELETE("/issues/rpa", h.ClearRPATrigger)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNoFiledPA):
		return echo.NewHTTPError(http.StatusNotFound, "No data found")
	case errors.Is(err, ErrActionNotAllowed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return order.HTTPError(err)
}

func (h *Handler) GetLayout(c echo.Context) error {
	v, err := h.svc.Layout(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetOverview(c echo.Context) error {
	v, err := h.svc.Overview(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetAuthorization(c echo.Context) error {
	v, err := h.svc.Authorization(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

// GetWorkflow accepts ?all=true to reveal collapsed steps.
func (h *Handler) GetWorkflow(c echo.Context) error {
	showAll := false
	if raw := c.QueryParam("all"); raw != "" {
		var err error
		if showAll, err = strconv.ParseBool(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid all parameter")
		}
	}
	v, err := h.svc.Workflow(c.Request().Context(), c.Param("id"), showAll)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetDocuments(c echo.Context) error {
	v, err := h.svc.Documents(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetAuthLetters(c echo.Context) error {
	v, err := h.svc.AuthLetters(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetFiledPA(c echo.Context) error {
	v, err := h.svc.FiledPA(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetIssues(c echo.Context) error {
	v, err := h.svc.Issues(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) RecordUpload(c echo.Context) error {
	var u Upload
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validation.Messages(err))
	}
	pr, err := h.svc.RecordUpload(c.Request().Context(), c.Param("id"), u)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, pr)
}

func (h *Handler) RecordRequest(c echo.Context) error {
	pr, err := h.svc.RecordRequest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, pr)
}

func (h *Handler) ClearProcessingRequest(c echo.Context) error {
	if err := h.svc.ClearProcessingRequest(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ClearRPATrigger(c echo.Context) error {
	if err := h.svc.ClearRPATrigger(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkComplete(c echo.Context) error {
	if err := h.svc.MarkComplete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ResetSubmission(c echo.Context) error {
	if err := h.svc.ResetSubmission(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
