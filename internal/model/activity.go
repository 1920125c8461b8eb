// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"time"
)

// Activity はベンダーが採番したIDを自然キーとする1回のアクティビティを表す。
// ActivityIDとStartTime以外はベンダーデータが欠落している場合nilになる。
type Activity struct {
	ActivityID          int64
	ActivityName        *string
	ActivityType        *string
	StartTime           time.Time
	DistanceMeters      *float64
	DurationSeconds     *float64
	AvgHR               *int
	MaxHR               *int
	Calories            *float64
	AvgPower            *int
	MaxPower            *int
	ElevationGainMeters *float64
	ElevationLossMeters *float64
	AvgCadence          *int
	MaxCadence          *int
	Steps               *int
	LastUpdated         time.Time
}

// ActivityDetail はアクティビティの時系列詳細データ（心拍・GPSサンプル等）を表す。
// ベンダーのレスポンスをそのままJSONBとして保持し、解析時にパースする。
type ActivityDetail struct {
	ActivityID  int64
	Details     json.RawMessage
	LastUpdated time.Time
}
