package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordHTTPRequest_CountsByLabels はラベルごとにカウントされることを検証する。
func TestRecordHTTPRequest_CountsByLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "/users/{id}", http.StatusOK, 10*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/users/{id}", http.StatusOK, 20*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/users/{id}", http.StatusNotFound, 5*time.Millisecond)

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/users/{id}", "200")); got != 2 {
		t.Errorf("200 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/users/{id}", "404")); got != 1 {
		t.Errorf("404 count = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.requestLatency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
}

func TestSetStoreReady(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if got := testutil.ToFloat64(c.storeReady); got != 0 {
		t.Errorf("initial store_ready = %v, want 0", got)
	}
	c.SetStoreReady(true)
	if got := testutil.ToFloat64(c.storeReady); got != 1 {
		t.Errorf("store_ready = %v, want 1", got)
	}
	c.SetStoreReady(false)
	if got := testutil.ToFloat64(c.storeReady); got != 0 {
		t.Errorf("store_ready = %v, want 0", got)
	}
}

func TestRecordSessionsCleaned(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionsCleaned(3)
	c.RecordSessionsCleaned(0)

	if got := testutil.ToFloat64(c.sessionsCleaned); got != 3 {
		t.Errorf("sessions_cleaned_total = %v, want 3", got)
	}
}

// TestNewCollector_DuplicateRegistrationPanics は同一レジストリへの二重登録がpanicすることを検証する。
func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewCollector(reg)
}

// TestHandler_ServesMetrics はスクレイプでメトリクスが返ることを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.SetStoreReady(true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "taskman_store_ready 1") {
		t.Errorf("expected store_ready gauge in output, got:\n%s", body)
	}
}
