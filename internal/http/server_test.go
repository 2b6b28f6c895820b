package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cpiview/internal/core"
	"cpiview/internal/services"
	"cpiview/internal/source/memory"
)

type errReader struct{}

func (errReader) ReadObservations(_ context.Context, _ string, _ core.DateRange) ([]core.Observation, error) {
	return nil, errors.New("upstream unreachable")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	catalog := core.DefaultCatalog()
	store := memory.NewSeeded(catalog, time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC))
	svc := services.NewSeriesService(catalog, store, nil, nil, nil, time.Minute)
	return NewServer(":0", svc)
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t)

	rr := get(t, srv, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Consumer Price Index Dashboard") {
		t.Error("index body missing heading")
	}
	// Default selection pre-checked.
	if !strings.Contains(body, `value="All Items" checked`) {
		t.Error("default series not checked")
	}
	if !strings.Contains(body, `value="Housing">`) || strings.Contains(body, `value="Housing" checked`) {
		t.Error("non-default series should be present but unchecked")
	}
}

func TestIndexUnknownPathIs404(t *testing.T) {
	srv := newTestServer(t)
	if rr := get(t, srv, "/nope"); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	if rr := get(t, srv, "/healthz"); rr.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rr.Code)
	}
	if rr := get(t, srv, "/readyz"); rr.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rr.Code)
	}
}

func TestChartPartial(t *testing.T) {
	srv := newTestServer(t)

	rr := get(t, srv, "/ui/chart?series=All+Items&series=Housing&start_date=2024-01-01&end_date=2025-12-31&view_type=Both")
	if rr.Code != http.StatusOK {
		t.Fatalf("chart status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `id="chart-data"`) {
		t.Error("chart partial missing payload script")
	}
	if !strings.Contains(body, `"show_yoy":true`) || !strings.Contains(body, `"show_index":true`) {
		t.Error("Both view should enable index and YoY traces")
	}
	if !strings.Contains(body, "#1f77b4") {
		t.Error("first series missing first palette color")
	}
}

func TestChartInvalidParamsNeverFiveHundred(t *testing.T) {
	srv := newTestServer(t)

	targets := []string{
		"/ui/chart?start_date=garbage&end_date=also-garbage",
		"/ui/chart?start_date=2025-01-01&end_date=2020-01-01",
		"/ui/chart?series=Not+A+Series&view_type=bogus",
		"/?start_date=13-37&series=%00",
	}
	for _, target := range targets {
		if rr := get(t, srv, target); rr.Code >= 500 {
			t.Errorf("%s -> %d, want < 500", target, rr.Code)
		}
	}
}

func TestChartUpstreamFailureIsOnPageMessage(t *testing.T) {
	catalog := core.DefaultCatalog()
	svc := services.NewSeriesService(catalog, errReader{}, nil, nil, nil, time.Minute)
	srv := NewServer(":0", svc)

	rr := get(t, srv, "/ui/chart?series=All+Items")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with on-page message", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Error fetching data") {
		t.Error("body missing fetch error notice")
	}
}

func TestObservationsPartial(t *testing.T) {
	srv := newTestServer(t)

	rr := get(t, srv, "/ui/observations?series=All+Items&start_date=2024-01-01&end_date=2025-12-31")
	if rr.Code != http.StatusOK {
		t.Fatalf("observations status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<table>") || !strings.Contains(body, "All Items") {
		t.Error("observations partial missing table")
	}
}

func TestShareLinkRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rr := get(t, srv, "/ui/share-link?series=Housing&start_date=2024-01-01&end_date=2025-12-31&view_type=Year-over-Year+Changes")
	if rr.Code != http.StatusOK {
		t.Fatalf("share status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"start_date=2024-01-01",
		"end_date=2025-12-31",
		"series=Housing",
		"view_type=Year-over-Year",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("share link missing %q in %s", want, body)
		}
	}
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t)

	rr := get(t, srv, "/export.csv?series=All+Items&start_date=2024-01-01&end_date=2025-12-31")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %s", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if lines[0] != "series,series_id,date,value" {
		t.Errorf("header = %s", lines[0])
	}
	if len(lines) < 2 {
		t.Fatal("export has no data rows")
	}
	if !strings.HasPrefix(lines[1], "All Items,CPIAUCSL,") {
		t.Errorf("first row = %s", lines[1])
	}
}

func TestExportCSVAllFailedIsBadGateway(t *testing.T) {
	svc := services.NewSeriesService(core.DefaultCatalog(), errReader{}, nil, nil, nil, time.Minute)
	srv := NewServer(":0", svc)

	rr := get(t, srv, "/export.csv?series=All+Items")
	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rr := get(t, srv, "/")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options")
	}
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "script-src 'self'") {
		t.Error("missing CSP")
	}
}
