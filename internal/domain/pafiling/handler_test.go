package pafiling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newHandlerEnv(t *testing.T) (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv(t)
	return NewHandler(env.mgr), env, echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_GetDefaultForm(t *testing.T) {
	h, _, e := newHandlerEnv(t)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("MRN100205")

	if err := h.GetDefaultForm(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"icdCode":"C79.51"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_FullFiling(t *testing.T) {
	h, env, e := newHandlerEnv(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"mode":"fresh"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("MRN100205")
	if err := h.StartFiling(c); err != nil {
		t.Fatalf("start: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var snap Snapshot
	json.Unmarshal(rec.Body.Bytes(), &snap)
	if snap.State != StateForm {
		t.Fatalf("expected form, got %s", snap.State)
	}

	form, _ := json.Marshal(validForm())
	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, string(form)), rec)
	c.SetParamNames("sid")
	c.SetParamValues(snap.ID)
	if err := h.Continue(c); err != nil {
		t.Fatalf("continue: %v", err)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("sid")
	c.SetParamValues(snap.ID)
	if err := h.Submit(c); err != nil {
		t.Fatalf("submit: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &snap)
	if snap.State != StateSuccess || snap.AuthorizationNumber == "" {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("sid")
	c.SetParamValues(snap.ID)
	if err := h.Close(c); err != nil {
		t.Fatalf("close: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &snap)
	if snap.Redirect != RedirectFiledPA {
		t.Errorf("expected filed-pa redirect, got %q", snap.Redirect)
	}
	if env.mgr.Len() != 0 {
		t.Error("session not released")
	}
}

func TestHandler_StartFiling_Conflict(t *testing.T) {
	h, _, e := newHandlerEnv(t)
	c := e.NewContext(jsonRequest(http.MethodPost, `{"mode":"fresh"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("MRN100201")

	err := h.StartFiling(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_StartFiling_BadMode(t *testing.T) {
	h, _, e := newHandlerEnv(t)
	c := e.NewContext(jsonRequest(http.MethodPost, `{"mode":"later"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("MRN100205")

	err := h.StartFiling(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_StartFiling_NotFound(t *testing.T) {
	h, _, e := newHandlerEnv(t)
	c := e.NewContext(jsonRequest(http.MethodPost, `{}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("MRN000000")

	err := h.StartFiling(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound || he.Message != "No data found" {
		t.Errorf("expected 404 No data found, got %v", err)
	}
}

func TestHandler_Continue_Invalid(t *testing.T) {
	h, env, e := newHandlerEnv(t)
	w, err := env.mgr.Start(context.Background(), "MRN100205", ModeResumeForm, nil)
	if err != nil {
		t.Fatal(err)
	}

	c := e.NewContext(jsonRequest(http.MethodPost, `{"diagnoses":[],"procedures":[{"code":"78306"}],"fromDate":"2025-12-22"}`), httptest.NewRecorder())
	c.SetParamNames("sid")
	c.SetParamValues(w.ID())

	err = h.Continue(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	body, _ := he.Message.(map[string]interface{})
	if body["errors"] == nil {
		t.Errorf("expected field errors, got %v", he.Message)
	}
}

func TestHandler_UnknownSession(t *testing.T) {
	h, _, e := newHandlerEnv(t)
	for name, fn := range map[string]echo.HandlerFunc{
		"get": h.GetSession, "back": h.Back, "cancel": h.Cancel, "close": h.Close,
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
		c.SetParamNames("sid")
		c.SetParamValues("missing")
		err := fn(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %v", name, err)
		}
	}
}

func TestHandler_Cancel(t *testing.T) {
	h, env, e := newHandlerEnv(t)
	w, _ := env.mgr.Start(context.Background(), "MRN100205", ModeResumeForm, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("sid")
	c.SetParamValues(w.ID())
	if err := h.Cancel(c); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
