package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/fitlog/internal/middleware"
	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/repository"
)

// defaultSyncRunLimit は同期実行履歴の1回の取得件数（デフォルト）。
const defaultSyncRunLimit = 20

// SyncRunHandler は同期実行履歴の読み取りハンドラー。
type SyncRunHandler struct {
	syncRunRepo repository.SyncRunRepository
}

// NewSyncRunHandler はSyncRunHandlerを生成する。
func NewSyncRunHandler(syncRunRepo repository.SyncRunRepository) *SyncRunHandler {
	return &SyncRunHandler{syncRunRepo: syncRunRepo}
}

// syncRunResponse は同期実行履歴のレスポンス。
type syncRunResponse struct {
	ID             string              `json:"id"`
	Kind           string              `json:"kind"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     *time.Time          `json:"finished_at,omitempty"`
	Status         string              `json:"status"`
	DatesProcessed int                 `json:"dates_processed"`
	FailureCount   int                 `json:"failure_count"`
	Failures       []model.DateFailure `json:"failures,omitempty"`
}

// ListSyncRuns は同期実行履歴を開始時刻の降順で取得する。
// GET /api/sync-runs?limit=20
func (h *SyncRunHandler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultSyncRunLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			middleware.WriteIngestError(w, model.NewMalformedPayloadError("limitは正の整数で指定してください"))
			return
		}
		limit = n
	}

	runs, err := h.syncRunRepo.ListRecent(r.Context(), limit)
	if err != nil {
		middleware.WriteIngestError(w, err)
		return
	}

	resp := make([]syncRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, syncRunResponse{
			ID:             run.ID,
			Kind:           string(run.Kind),
			StartedAt:      run.StartedAt,
			FinishedAt:     run.FinishedAt,
			Status:         string(run.Status),
			DatesProcessed: run.DatesProcessed,
			FailureCount:   run.FailureCount,
			Failures:       run.Failures,
		})
	}

	writeJSON(w, resp)
}
