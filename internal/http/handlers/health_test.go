package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubCheck struct{ err error }

func (s stubCheck) PingContext(context.Context) error { return s.err }
func (s stubCheck) Init(context.Context) error        { return s.err }

func serveReady(t *testing.T, h *HealthHandler) (int, readiness) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/readyz", h.Ready)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var body readiness
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode readiness: %v", err)
	}
	return rec.Code, body
}

func TestReadyReportsDatabaseAndRender(t *testing.T) {
	code, body := serveReady(t, NewHealthHandler(stubCheck{}, stubCheck{}))
	if code != http.StatusOK || body.Status != "ready" {
		t.Fatalf("ready: want=200/ready got=%d/%s", code, body.Status)
	}
	if body.Checks["database"] != "ok" || body.Checks["render"] != "ok" {
		t.Fatalf("checks: %+v", body.Checks)
	}
}

func TestReadyFailsWhenRenderEngineCannotLoadFonts(t *testing.T) {
	code, body := serveReady(t, NewHealthHandler(stubCheck{}, stubCheck{err: errors.New("bold font: missing")}))
	if code != http.StatusServiceUnavailable || body.Status != "unavailable" {
		t.Fatalf("ready: want=503/unavailable got=%d/%s", code, body.Status)
	}
	if body.Checks["render"] != "bold font: missing" || body.Checks["database"] != "ok" {
		t.Fatalf("checks: %+v", body.Checks)
	}
}

func TestReadySkipsUnconfiguredChecks(t *testing.T) {
	code, body := serveReady(t, NewHealthHandler(nil, nil))
	if code != http.StatusOK || body.Checks["database"] != "skipped" || body.Checks["render"] != "skipped" {
		t.Fatalf("ready: code=%d checks=%+v", code, body.Checks)
	}
}
