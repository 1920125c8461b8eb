// Package handler はHTTP APIのハンドラーとルーティングを提供する。
// APIは保存済みメトリクスの読み取り専用で、書き込みはワーカーのみが行う。
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/fitlog/internal/middleware"
	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/repository"
)

// defaultRangeDays は日付範囲パラメータ省略時の取得日数。
const defaultRangeDays = 30

// MetricsHandler は日次サマリー・睡眠・HRVの読み取りハンドラー。
type MetricsHandler struct {
	dailyRepo repository.DailySummaryRepository
	sleepRepo repository.SleepSummaryRepository
	hrvRepo   repository.HrvSummaryRepository
}

// NewMetricsHandler はMetricsHandlerを生成する。
func NewMetricsHandler(
	dailyRepo repository.DailySummaryRepository,
	sleepRepo repository.SleepSummaryRepository,
	hrvRepo repository.HrvSummaryRepository,
) *MetricsHandler {
	return &MetricsHandler{
		dailyRepo: dailyRepo,
		sleepRepo: sleepRepo,
		hrvRepo:   hrvRepo,
	}
}

// --- レスポンス型 ---

// dailySummaryResponse は日次サマリーのレスポンス。
type dailySummaryResponse struct {
	Date                string   `json:"date"`
	TotalSteps          *int     `json:"total_steps,omitempty"`
	TotalDistanceMeters *int     `json:"total_distance_meters,omitempty"`
	ActiveKcal          *float64 `json:"active_kcal,omitempty"`
	BmrKcal             *float64 `json:"bmr_kcal,omitempty"`
	TotalKcal           *float64 `json:"total_kcal,omitempty"`
	RestingHR           *int     `json:"resting_hr,omitempty"`
	MinHR               *int     `json:"min_hr,omitempty"`
	MaxHR               *int     `json:"max_hr,omitempty"`
	AvgStress           *int     `json:"avg_stress,omitempty"`
	MaxStress           *int     `json:"max_stress,omitempty"`
	BodyBatteryCurrent  *int     `json:"body_battery_current,omitempty"`
	BodyBatteryHigh     *int     `json:"body_battery_high,omitempty"`
	BodyBatteryLow      *int     `json:"body_battery_low,omitempty"`
}

// sleepSummaryResponse は睡眠サマリーのレスポンス。
type sleepSummaryResponse struct {
	Date              string  `json:"date"`
	TotalSleepSeconds *int    `json:"total_sleep_seconds,omitempty"`
	DeepSleepSeconds  *int    `json:"deep_sleep_seconds,omitempty"`
	LightSleepSeconds *int    `json:"light_sleep_seconds,omitempty"`
	RemSleepSeconds   *int    `json:"rem_sleep_seconds,omitempty"`
	AwakeSleepSeconds *int    `json:"awake_sleep_seconds,omitempty"`
	SleepScore        *int    `json:"sleep_score,omitempty"`
	SleepQuality      *string `json:"sleep_quality,omitempty"`
}

// hrvSummaryResponse はHRVサマリーのレスポンス。
type hrvSummaryResponse struct {
	Date         string  `json:"date"`
	LastNightAvg *int    `json:"last_night_avg,omitempty"`
	WeeklyAvg    *int    `json:"weekly_avg,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// ListDaily は日次サマリーの日付範囲取得を行う。
// GET /api/daily?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *MetricsHandler) ListDaily(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		middleware.WriteIngestError(w, err)
		return
	}

	summaries, err := h.dailyRepo.ListRange(r.Context(), from, to)
	if err != nil {
		middleware.WriteIngestError(w, err)
		return
	}

	resp := make([]dailySummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, dailySummaryResponse{
			Date:                s.Date.Format("2006-01-02"),
			TotalSteps:          s.TotalSteps,
			TotalDistanceMeters: s.TotalDistanceMeters,
			ActiveKcal:          s.ActiveKcal,
			BmrKcal:             s.BmrKcal,
			TotalKcal:           s.TotalKcal,
			RestingHR:           s.RestingHR,
			MinHR:               s.MinHR,
			MaxHR:               s.MaxHR,
			AvgStress:           s.AvgStress,
			MaxStress:           s.MaxStress,
			BodyBatteryCurrent:  s.BodyBatteryCurrent,
			BodyBatteryHigh:     s.BodyBatteryHigh,
			BodyBatteryLow:      s.BodyBatteryLow,
		})
	}

	writeJSON(w, resp)
}

// ListSleep は睡眠サマリーの日付範囲取得を行う。
// GET /api/sleep?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *MetricsHandler) ListSleep(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		middleware.WriteIngestError(w, err)
		return
	}

	summaries, err := h.sleepRepo.ListRange(r.Context(), from, to)
	if err != nil {
		middleware.WriteIngestError(w, err)
		return
	}

	resp := make([]sleepSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, sleepSummaryResponse{
			Date:              s.Date.Format("2006-01-02"),
			TotalSleepSeconds: s.TotalSleepSeconds,
			DeepSleepSeconds:  s.DeepSleepSeconds,
			LightSleepSeconds: s.LightSleepSeconds,
			RemSleepSeconds:   s.RemSleepSeconds,
			AwakeSleepSeconds: s.AwakeSleepSeconds,
			SleepScore:        s.SleepScore,
			SleepQuality:      s.SleepQuality,
		})
	}

	writeJSON(w, resp)
}

// ListHRV はHRVサマリーの日付範囲取得を行う。
// GET /api/hrv?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *MetricsHandler) ListHRV(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		middleware.WriteIngestError(w, err)
		return
	}

	summaries, err := h.hrvRepo.ListRange(r.Context(), from, to)
	if err != nil {
		middleware.WriteIngestError(w, err)
		return
	}

	resp := make([]hrvSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, hrvSummaryResponse{
			Date:         s.Date.Format("2006-01-02"),
			LastNightAvg: s.LastNightAvg,
			WeeklyAvg:    s.WeeklyAvg,
			Status:       s.Status,
		})
	}

	writeJSON(w, resp)
}

// parseDateRange はfrom/toクエリパラメータを解析する。
// 省略時はtoが当日、fromがto-30日。toがfromより前の場合はInvalidRangeエラー。
func parseDateRange(r *http.Request) (from, to time.Time, err error) {
	now := time.Now()
	to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from = to.AddDate(0, 0, -defaultRangeDays)

	if s := r.URL.Query().Get("to"); s != "" {
		to, err = time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, model.NewMalformedPayloadError("toの日付形式が不正です（YYYY-MM-DD）")
		}
		from = to.AddDate(0, 0, -defaultRangeDays)
	}
	if s := r.URL.Query().Get("from"); s != "" {
		from, err = time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, model.NewMalformedPayloadError("fromの日付形式が不正です（YYYY-MM-DD）")
		}
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, model.NewInvalidRangeError(from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	return from, to, nil
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
