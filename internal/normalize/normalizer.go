// Package normalize はベンダーの生JSONペイロードをドメインモデルに正規化する。
//
// 必須フィールド（日付、アクティビティID、開始時刻）が欠落または不正な場合は
// MalformedPayloadエラーを返す。任意フィールドの欠落はエラーにせず、
// nilポインタとして保持する（ストア層でNULLになる）。
// アクティビティ一覧では不正な要素のみをスキップし、残りの正常な要素は
// 取り込みを継続する。
package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/security"
)

// dateLayout はベンダーのcalendarDateの形式。
const dateLayout = "2006-01-02"

// startTimeLayout はベンダーのstartTimeLocalの形式。
const startTimeLayout = "2006-01-02 15:04:05"

// Normalizer はベンダーペイロードの正規化処理を提供する。
type Normalizer struct {
	sanitizer security.TextSanitizerService
	logger    *slog.Logger
	now       func() time.Time // テスト用に差し替え可能
}

// NewNormalizer はNormalizerの新しいインスタンスを生成する。
func NewNormalizer(sanitizer security.TextSanitizerService, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		sanitizer: sanitizer,
		logger:    logger,
		now:       time.Now,
	}
}

// rawDailySummary は日次サマリーAPIレスポンスの取り込み対象フィールド。
type rawDailySummary struct {
	CalendarDate        *string  `json:"calendarDate"`
	TotalSteps          *int     `json:"totalSteps"`
	TotalDistanceMeters *float64 `json:"totalDistanceMeters"`
	ActiveKcal          *float64 `json:"activeKilocalories"`
	BmrKcal             *float64 `json:"bmrKilocalories"`
	TotalKcal           *float64 `json:"totalKilocalories"`
	RestingHR           *int     `json:"restingHeartRate"`
	MinHR               *int     `json:"minHeartRate"`
	MaxHR               *int     `json:"maxHeartRate"`
	AvgStress           *int     `json:"averageStressLevel"`
	MaxStress           *int     `json:"maxStressLevel"`
	BodyBatteryCurrent  *int     `json:"bodyBatteryMostRecentValue"`
	BodyBatteryHigh     *int     `json:"bodyBatteryHighestValue"`
	BodyBatteryLow      *int     `json:"bodyBatteryLowestValue"`
}

// DailySummary は日次サマリーの生ペイロードを正規化する。
// calendarDateが欠落または不正な場合はMalformedPayloadエラーを返す。
func (n *Normalizer) DailySummary(raw json.RawMessage) (*model.DailySummary, error) {
	var r rawDailySummary
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, model.NewMalformedPayloadError(fmt.Sprintf("日次サマリーのJSONパースに失敗しました: %v", err))
	}

	date, err := requireDate(r.CalendarDate, "calendarDate")
	if err != nil {
		return nil, err
	}

	return &model.DailySummary{
		Date:                date,
		TotalSteps:          r.TotalSteps,
		TotalDistanceMeters: floatToIntPtr(r.TotalDistanceMeters),
		ActiveKcal:          r.ActiveKcal,
		BmrKcal:             r.BmrKcal,
		TotalKcal:           r.TotalKcal,
		RestingHR:           r.RestingHR,
		MinHR:               r.MinHR,
		MaxHR:               r.MaxHR,
		AvgStress:           r.AvgStress,
		MaxStress:           r.MaxStress,
		BodyBatteryCurrent:  r.BodyBatteryCurrent,
		BodyBatteryHigh:     r.BodyBatteryHigh,
		BodyBatteryLow:      r.BodyBatteryLow,
		LastUpdated:         n.now(),
	}, nil
}

// rawSleepPayload は睡眠APIレスポンスの取り込み対象フィールド。
// サマリーはdailySleepDTO配下に、スコアはさらにsleepScores.overall配下にネストされる。
type rawSleepPayload struct {
	DailySleepDTO struct {
		CalendarDate      *string `json:"calendarDate"`
		SleepTimeSeconds  *int    `json:"sleepTimeSeconds"`
		DeepSleepSeconds  *int    `json:"deepSleepSeconds"`
		LightSleepSeconds *int    `json:"lightSleepSeconds"`
		RemSleepSeconds   *int    `json:"remSleepSeconds"`
		AwakeSleepSeconds *int    `json:"awakeSleepSeconds"`
		SleepScores       struct {
			Overall struct {
				Value        *int    `json:"value"`
				QualifierKey *string `json:"qualifierKey"`
			} `json:"overall"`
		} `json:"sleepScores"`
	} `json:"dailySleepDTO"`
}

// Sleep は睡眠データの生ペイロードを正規化する。
// dailySleepDTO.calendarDateが欠落または不正な場合はMalformedPayloadエラーを返す。
func (n *Normalizer) Sleep(raw json.RawMessage) (*model.SleepSummary, error) {
	var r rawSleepPayload
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, model.NewMalformedPayloadError(fmt.Sprintf("睡眠データのJSONパースに失敗しました: %v", err))
	}

	dto := r.DailySleepDTO
	date, err := requireDate(dto.CalendarDate, "dailySleepDTO.calendarDate")
	if err != nil {
		return nil, err
	}

	return &model.SleepSummary{
		Date:              date,
		TotalSleepSeconds: dto.SleepTimeSeconds,
		DeepSleepSeconds:  dto.DeepSleepSeconds,
		LightSleepSeconds: dto.LightSleepSeconds,
		RemSleepSeconds:   dto.RemSleepSeconds,
		AwakeSleepSeconds: dto.AwakeSleepSeconds,
		SleepScore:        dto.SleepScores.Overall.Value,
		SleepQuality:      dto.SleepScores.Overall.QualifierKey,
		LastUpdated:       n.now(),
	}, nil
}

// rawHrvPayload はHRV APIレスポンスの取り込み対象フィールド。
type rawHrvPayload struct {
	HrvSummary struct {
		CalendarDate *string `json:"calendarDate"`
		LastNightAvg *int    `json:"lastNightAvg"`
		WeeklyAvg    *int    `json:"weeklyAvg"`
		Status       *string `json:"status"`
	} `json:"hrvSummary"`
}

// HRV はHRVデータの生ペイロードを正規化する。
// hrvSummary.calendarDateが欠落または不正な場合はMalformedPayloadエラーを返す。
func (n *Normalizer) HRV(raw json.RawMessage) (*model.HrvSummary, error) {
	var r rawHrvPayload
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, model.NewMalformedPayloadError(fmt.Sprintf("HRVデータのJSONパースに失敗しました: %v", err))
	}

	s := r.HrvSummary
	date, err := requireDate(s.CalendarDate, "hrvSummary.calendarDate")
	if err != nil {
		return nil, err
	}

	return &model.HrvSummary{
		Date:         date,
		LastNightAvg: s.LastNightAvg,
		WeeklyAvg:    s.WeeklyAvg,
		Status:       s.Status,
		LastUpdated:  n.now(),
	}, nil
}

// rawActivity はアクティビティ一覧APIレスポンスの取り込み対象フィールド。
type rawActivity struct {
	ActivityID   *int64  `json:"activityId"`
	ActivityName *string `json:"activityName"`
	ActivityType struct {
		TypeKey *string `json:"typeKey"`
	} `json:"activityType"`
	StartTimeLocal *string  `json:"startTimeLocal"`
	Distance       *float64 `json:"distance"`
	Duration       *float64 `json:"duration"`
	AverageHR      *float64 `json:"averageHR"`
	MaxHR          *float64 `json:"maxHR"`
	Calories       *float64 `json:"calories"`
	AvgPower       *float64 `json:"avgPower"`
	MaxPower       *float64 `json:"maxPower"`
	ElevationGain  *float64 `json:"elevationGain"`
	ElevationLoss  *float64 `json:"elevationLoss"`
	// ケイデンスは種目によりフィールド名が異なる（バイク優先、ラン系を代替とする）
	AvgBikingCadence  *float64 `json:"averageBikingCadenceInRevPerMinute"`
	AvgRunningCadence *float64 `json:"averageRunningCadenceInStepsPerMinute"`
	MaxBikingCadence  *float64 `json:"maxBikingCadenceInRevPerMinute"`
	MaxRunningCadence *float64 `json:"maxRunningCadenceInStepsPerMinute"`
	Steps             *int     `json:"steps"`
}

// Activities はアクティビティ一覧の生ペイロードを正規化する。
// 各要素のactivityIdとstartTimeLocalは必須だが、欠落または不正な要素は
// その要素だけをスキップして警告ログを残し、残りの正常な要素を返す。
// 一覧全体がJSONとして解釈できない場合のみMalformedPayloadエラーを返す。
// アクティビティ名はサニタイズされて保存される。
func (n *Normalizer) Activities(raw json.RawMessage) ([]*model.Activity, error) {
	var rs []rawActivity
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, model.NewMalformedPayloadError(fmt.Sprintf("アクティビティ一覧のJSONパースに失敗しました: %v", err))
	}

	activities := make([]*model.Activity, 0, len(rs))
	for i, r := range rs {
		if r.ActivityID == nil {
			n.skipActivity(i, "activityIdがありません")
			continue
		}
		if r.StartTimeLocal == nil {
			n.skipActivity(i, "startTimeLocalがありません")
			continue
		}
		startTime, err := time.Parse(startTimeLayout, *r.StartTimeLocal)
		if err != nil {
			n.skipActivity(i, fmt.Sprintf("startTimeLocalが不正です: %v", err))
			continue
		}

		a := &model.Activity{
			ActivityID:          *r.ActivityID,
			ActivityType:        r.ActivityType.TypeKey,
			StartTime:           startTime,
			DistanceMeters:      r.Distance,
			DurationSeconds:     r.Duration,
			AvgHR:               floatToIntPtr(r.AverageHR),
			MaxHR:               floatToIntPtr(r.MaxHR),
			Calories:            r.Calories,
			AvgPower:            floatToIntPtr(r.AvgPower),
			MaxPower:            floatToIntPtr(r.MaxPower),
			ElevationGainMeters: r.ElevationGain,
			ElevationLossMeters: r.ElevationLoss,
			AvgCadence:          floatToIntPtr(coalesceFloat(r.AvgBikingCadence, r.AvgRunningCadence)),
			MaxCadence:          floatToIntPtr(coalesceFloat(r.MaxBikingCadence, r.MaxRunningCadence)),
			Steps:               r.Steps,
			LastUpdated:         n.now(),
		}

		if r.ActivityName != nil {
			name := n.sanitizer.Sanitize(*r.ActivityName)
			if name != "" {
				a.ActivityName = &name
			}
		}

		activities = append(activities, a)
	}

	return activities, nil
}

// skipActivity はスキップした不正要素を警告ログに記録する。
func (n *Normalizer) skipActivity(index int, reason string) {
	n.logger.Warn("不正なアクティビティ要素をスキップしました",
		slog.Int("index", index),
		slog.String("reason", reason),
	)
}

// requireDate は必須の日付フィールドを検証してパースする。
func requireDate(s *string, field string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, model.NewMalformedPayloadError(fmt.Sprintf("%sがありません", field))
	}
	date, err := time.Parse(dateLayout, *s)
	if err != nil {
		return time.Time{}, model.NewMalformedPayloadError(fmt.Sprintf("%sが不正です: %v", field, err))
	}
	return date, nil
}

// floatToIntPtr は*float64を四捨五入して*intに変換する。nilはnilのまま。
func floatToIntPtr(f *float64) *int {
	if f == nil {
		return nil
	}
	v := int(*f + 0.5)
	return &v
}

// coalesceFloat は最初の非nil値を返す。
func coalesceFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
