package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPCollectorRecordsMetrics(t *testing.T) {
	collector, err := NewHTTPCollector()
	if err != nil {
		t.Fatalf("NewHTTPCollector returned error: %v", err)
	}

	handlerInvoked := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerInvoked = true
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	instrumented := collector.InstrumentHandler(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	instrumented.ServeHTTP(rr, req)

	if !handlerInvoked {
		t.Fatal("expected handler to be invoked")
	}

	if rr.Code != http.StatusAccepted {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	body := scrape(t, collector)
	if !strings.Contains(body, `loopin_http_requests_total{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("requests_total metric not recorded, body=%q", body)
	}

	if !strings.Contains(body, `loopin_http_request_duration_seconds_count{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("request_duration_seconds_count metric not recorded, body=%q", body)
	}
}

func TestArchiveMetricsObserveRun(t *testing.T) {
	collector, err := NewHTTPCollector()
	if err != nil {
		t.Fatalf("NewHTTPCollector returned error: %v", err)
	}

	archiveMetrics, err := collector.NewArchiveMetrics()
	if err != nil {
		t.Fatalf("NewArchiveMetrics returned error: %v", err)
	}

	archiveMetrics.ObserveRun(5, 5, 120*time.Millisecond, nil)
	archiveMetrics.ObserveRun(0, 0, 0, fmt.Errorf("database unavailable"))

	body := scrape(t, collector)
	if !strings.Contains(body, `loopin_archive_runs_total{status="success"} 1`) {
		t.Fatalf("success run not recorded, body=%q", body)
	}
	if !strings.Contains(body, `loopin_archive_runs_total{status="error"} 1`) {
		t.Fatalf("failed run not recorded, body=%q", body)
	}
	if !strings.Contains(body, `loopin_archive_events_archived_total 5`) {
		t.Fatalf("events_archived_total not recorded, body=%q", body)
	}
	if !strings.Contains(body, `loopin_archive_events_deleted_total 5`) {
		t.Fatalf("events_deleted_total not recorded, body=%q", body)
	}
}

func scrape(t *testing.T, collector *HTTPCollector) string {
	t.Helper()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to return 200, got %d", rr.Code)
	}
	return rr.Body.String()
}
