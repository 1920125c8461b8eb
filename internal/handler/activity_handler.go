package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fitlog/internal/middleware"
	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/repository"
)

// defaultActivityLimit はアクティビティ一覧の1回の取得件数（デフォルト）。
const defaultActivityLimit = 50

// maxActivityLimit はアクティビティ一覧の取得件数の上限。
const maxActivityLimit = 200

// ActivityHandler はアクティビティの読み取りハンドラー。
type ActivityHandler struct {
	activityRepo repository.ActivityRepository
	detailRepo   repository.ActivityDetailRepository
}

// NewActivityHandler はActivityHandlerを生成する。
func NewActivityHandler(activityRepo repository.ActivityRepository, detailRepo repository.ActivityDetailRepository) *ActivityHandler {
	return &ActivityHandler{
		activityRepo: activityRepo,
		detailRepo:   detailRepo,
	}
}

// activityResponse はアクティビティのレスポンス。
type activityResponse struct {
	ActivityID          int64     `json:"activity_id"`
	ActivityName        *string   `json:"activity_name,omitempty"`
	ActivityType        *string   `json:"activity_type,omitempty"`
	StartTime           time.Time `json:"start_time"`
	DistanceMeters      *float64  `json:"distance_meters,omitempty"`
	DurationSeconds     *float64  `json:"duration_seconds,omitempty"`
	AvgHR               *int      `json:"avg_hr,omitempty"`
	MaxHR               *int      `json:"max_hr,omitempty"`
	Calories            *float64  `json:"calories,omitempty"`
	AvgPower            *int      `json:"avg_power,omitempty"`
	MaxPower            *int      `json:"max_power,omitempty"`
	ElevationGainMeters *float64  `json:"elevation_gain_meters,omitempty"`
	ElevationLossMeters *float64  `json:"elevation_loss_meters,omitempty"`
	AvgCadence          *int      `json:"avg_cadence,omitempty"`
	MaxCadence          *int      `json:"max_cadence,omitempty"`
	Steps               *int      `json:"steps,omitempty"`
}

func toActivityResponse(a *model.Activity) activityResponse {
	return activityResponse{
		ActivityID:          a.ActivityID,
		ActivityName:        a.ActivityName,
		ActivityType:        a.ActivityType,
		StartTime:           a.StartTime,
		DistanceMeters:      a.DistanceMeters,
		DurationSeconds:     a.DurationSeconds,
		AvgHR:               a.AvgHR,
		MaxHR:               a.MaxHR,
		Calories:            a.Calories,
		AvgPower:            a.AvgPower,
		MaxPower:            a.MaxPower,
		ElevationGainMeters: a.ElevationGainMeters,
		ElevationLossMeters: a.ElevationLossMeters,
		AvgCadence:          a.AvgCadence,
		MaxCadence:          a.MaxCadence,
		Steps:               a.Steps,
	}
}

// ListActivities はアクティビティ一覧を開始時刻の降順で取得する。
// GET /api/activities?limit=50
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			middleware.WriteIngestError(w, model.NewMalformedPayloadError("limitは正の整数で指定してください"))
			return
		}
		if n > maxActivityLimit {
			n = maxActivityLimit
		}
		limit = n
	}

	activities, err := h.activityRepo.ListRecent(r.Context(), limit)
	if err != nil {
		middleware.WriteIngestError(w, err)
		return
	}

	resp := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		resp = append(resp, toActivityResponse(a))
	}

	writeJSON(w, resp)
}

// GetActivity はアクティビティ詳細を取得する。
// GET /api/activities/{id}
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteIngestError(w, model.NewMalformedPayloadError("アクティビティIDは整数で指定してください"))
		return
	}

	a, err := h.activityRepo.FindByID(r.Context(), id)
	if err != nil {
		middleware.WriteIngestError(w, err)
		return
	}
	if a == nil {
		middleware.WriteIngestError(w, model.NewNotFoundError("アクティビティ"))
		return
	}

	writeJSON(w, toActivityResponse(a))
}

// GetActivityDetails はアクティビティの時系列詳細（生ペイロード）を取得する。
// GET /api/activities/{id}/details
func (h *ActivityHandler) GetActivityDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteIngestError(w, model.NewMalformedPayloadError("アクティビティIDは整数で指定してください"))
		return
	}

	d, err := h.detailRepo.FindByActivityID(r.Context(), id)
	if err != nil {
		middleware.WriteIngestError(w, err)
		return
	}
	if d == nil {
		middleware.WriteIngestError(w, model.NewNotFoundError("アクティビティ詳細"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(json.RawMessage(d.Details))
}
