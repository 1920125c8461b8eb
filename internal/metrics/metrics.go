// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやクライアント層から利用する。
type MetricsCollector interface {
	RecordSyncSuccess(metric string)
	RecordSyncFailure(metric string, reason string)
	RecordVendorHTTPStatus(statusCode int)
	RecordVendorLatency(duration time.Duration)
	RecordRecordsUpserted(metric string, count int)
	RecordTickSkipped()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	syncSuccess     *prometheus.CounterVec
	syncFail        *prometheus.CounterVec
	vendorStatus    *prometheus.CounterVec
	vendorLatency   prometheus.Histogram
	recordsUpserted *prometheus.CounterVec
	ticksSkipped    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitlog_sync_success_total",
			Help: "メトリクスカテゴリ別の同期成功の合計数",
		}, []string{"metric"}),
		syncFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitlog_sync_fail_total",
			Help: "メトリクスカテゴリ別・理由別の同期失敗の合計数",
		}, []string{"metric", "reason"}),
		vendorStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitlog_vendor_http_status_total",
			Help: "ベンダーAPIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		vendorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fitlog_vendor_latency_seconds",
			Help:    "ベンダーAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		recordsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitlog_records_upserted_total",
			Help: "メトリクスカテゴリ別のアップサートされたレコードの合計数",
		}, []string{"metric"}),
		ticksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitlog_scheduler_ticks_skipped_total",
			Help: "前回サイクル実行中のためスキップされたティックの合計数",
		}),
	}

	reg.MustRegister(
		c.syncSuccess,
		c.syncFail,
		c.vendorStatus,
		c.vendorLatency,
		c.recordsUpserted,
		c.ticksSkipped,
	)

	return c
}

// RecordSyncSuccess はメトリクスカテゴリの同期成功を記録する。
func (c *Collector) RecordSyncSuccess(metric string) {
	c.syncSuccess.WithLabelValues(metric).Inc()
}

// RecordSyncFailure はメトリクスカテゴリの同期失敗を記録する。
func (c *Collector) RecordSyncFailure(metric string, reason string) {
	c.syncFail.WithLabelValues(metric, reason).Inc()
}

// RecordVendorHTTPStatus はベンダーAPIのHTTPステータスコードを記録する。
func (c *Collector) RecordVendorHTTPStatus(statusCode int) {
	c.vendorStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordVendorLatency はベンダーAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordVendorLatency(duration time.Duration) {
	c.vendorLatency.Observe(duration.Seconds())
}

// RecordRecordsUpserted はアップサートされたレコード数を記録する。
func (c *Collector) RecordRecordsUpserted(metric string, count int) {
	c.recordsUpserted.WithLabelValues(metric).Add(float64(count))
}

// RecordTickSkipped はスキップされたスケジューラティックを記録する。
func (c *Collector) RecordTickSkipped() {
	c.ticksSkipped.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
