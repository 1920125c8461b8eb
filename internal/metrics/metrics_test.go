package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestRecordSyncSuccess_IncrementsCounter は同期成功カウンタが増加することを検証する。
func TestRecordSyncSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSyncSuccess("daily_summary")
	c.RecordSyncSuccess("daily_summary")

	if v := counterValue(t, reg, "fitlog_sync_success_total"); v != 2 {
		t.Errorf("sync_success_total = %v, want 2", v)
	}
}

// TestRecordSyncFailure_IncrementsCounter は同期失敗カウンタが増加することを検証する。
func TestRecordSyncFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSyncFailure("sleep", "RATE_LIMITED")

	if v := counterValue(t, reg, "fitlog_sync_fail_total"); v != 1 {
		t.Errorf("sync_fail_total = %v, want 1", v)
	}
}

// TestRecordVendorHTTPStatus_CountsByStatus はステータスコード別にカウントされることを検証する。
func TestRecordVendorHTTPStatus_CountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordVendorHTTPStatus(200)
	c.RecordVendorHTTPStatus(200)
	c.RecordVendorHTTPStatus(429)

	if v := counterValue(t, reg, "fitlog_vendor_http_status_total"); v != 3 {
		t.Errorf("vendor_http_status_total = %v, want 3", v)
	}
}

// TestRecordRecordsUpserted_AddsCount はアップサート件数が加算されることを検証する。
func TestRecordRecordsUpserted_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRecordsUpserted("activities", 5)
	c.RecordRecordsUpserted("activities", 3)

	if v := counterValue(t, reg, "fitlog_records_upserted_total"); v != 8 {
		t.Errorf("records_upserted_total = %v, want 8", v)
	}
}

// TestRecordTickSkipped_IncrementsCounter はティックスキップカウンタが増加することを検証する。
func TestRecordTickSkipped_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTickSkipped()

	if v := counterValue(t, reg, "fitlog_scheduler_ticks_skipped_total"); v != 1 {
		t.Errorf("scheduler_ticks_skipped_total = %v, want 1", v)
	}
}

// TestRecordVendorLatency_Observes はレイテンシヒストグラムに記録されることを検証する。
func TestRecordVendorLatency_Observes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordVendorLatency(150 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "fitlog_vendor_latency_seconds" {
			found = true
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
				t.Errorf("sample count = %d, want 1", count)
			}
		}
	}
	if !found {
		t.Error("fitlog_vendor_latency_seconds metric not found")
	}
}

// TestMetricsHandler_ServesPrometheusFormat は/metricsがPrometheus形式で応答することを検証する。
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordSyncSuccess("hrv")

	server := httptest.NewServer(SetupMetricsRoute(reg))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics がエラーを返した: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("ステータス = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ボディの読み取りに失敗した: %v", err)
	}
	if !strings.Contains(string(body), "fitlog_sync_success_total") {
		t.Error("レスポンスに fitlog_sync_success_total が含まれるべき")
	}
}
