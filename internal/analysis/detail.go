// Package analysis はアクティビティ詳細の時系列解析とFTP推定を提供する。
package analysis

import (
	"encoding/json"

	"github.com/hitoshi/fitlog/internal/model"
)

// Series はアクティビティ詳細から抽出した1秒間隔の時系列。
// パワーと心拍は行数と同じ長さで、欠測値は0として埋められる。
type Series struct {
	Power     []float64
	HeartRate []float64
}

// Len は時系列のサンプル数を返す。
func (s *Series) Len() int {
	return len(s.Power)
}

// HasPower はパワー値が1つでも含まれるかを返す。
func (s *Series) HasPower() bool {
	for _, p := range s.Power {
		if p > 0 {
			return true
		}
	}
	return false
}

// rawDetailPayload は詳細APIレスポンスの取り込み対象フィールド。
// metricDescriptorsがmetrics配列内の位置とメトリクスキーの対応を定義する。
type rawDetailPayload struct {
	MetricDescriptors []struct {
		MetricsIndex *int    `json:"metricsIndex"`
		Key          *string `json:"key"`
	} `json:"metricDescriptors"`
	ActivityDetailMetrics []struct {
		Metrics []*float64 `json:"metrics"`
	} `json:"activityDetailMetrics"`
}

// canonicalKeys はベンダーのメトリクスキーを正規名に対応させる。
// FTP推定に必要なパワーと心拍のみを抽出対象とする。
var canonicalKeys = map[string]string{
	"directPower":     "power",
	"directHeartRate": "heart_rate",
}

// ParseDetailSeries は詳細ペイロードからパワー・心拍の時系列を抽出する。
// metricDescriptorsまたはactivityDetailMetricsが欠落している場合は
// MalformedPayloadエラーを返す。
func ParseDetailSeries(raw json.RawMessage) (*Series, error) {
	var payload rawDetailPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, model.NewMalformedPayloadError("アクティビティ詳細のJSONパースに失敗しました")
	}
	if len(payload.MetricDescriptors) == 0 || len(payload.ActivityDetailMetrics) == 0 {
		return nil, model.NewMalformedPayloadError("アクティビティ詳細にメトリクス記述子がありません")
	}

	// metricsIndex → 正規キー の対応表を構築する
	indexToKey := make(map[int]string)
	for _, desc := range payload.MetricDescriptors {
		if desc.MetricsIndex == nil || desc.Key == nil {
			continue
		}
		if canonical, ok := canonicalKeys[*desc.Key]; ok {
			indexToKey[*desc.MetricsIndex] = canonical
		}
	}

	n := len(payload.ActivityDetailMetrics)
	series := &Series{
		Power:     make([]float64, n),
		HeartRate: make([]float64, n),
	}

	for i, entry := range payload.ActivityDetailMetrics {
		for idx, val := range entry.Metrics {
			key, ok := indexToKey[idx]
			if !ok || val == nil {
				continue
			}
			switch key {
			case "power":
				series.Power[i] = *val
			case "heart_rate":
				series.HeartRate[i] = *val
			}
		}
	}

	return series, nil
}
