package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/fitlog/internal/analysis"
	"github.com/hitoshi/fitlog/internal/middleware"
	"github.com/hitoshi/fitlog/internal/model"
)

// defaultFTPDays はFTP推定の対象期間（日数）のデフォルト。
const defaultFTPDays = 60

// FTPEstimatorService はFTP推定サービスのインターフェース。
type FTPEstimatorService interface {
	// Estimate は直近days日間のアクティビティからFTPを推定する。
	Estimate(ctx context.Context, days int, activityTypes []string) (*analysis.FTPEstimate, error)
}

// FTPHandler はFTP推定のHTTPハンドラー。
type FTPHandler struct {
	estimator FTPEstimatorService
}

// NewFTPHandler はFTPHandlerを生成する。
func NewFTPHandler(estimator FTPEstimatorService) *FTPHandler {
	return &FTPHandler{estimator: estimator}
}

// GetEstimate は保存済みパワーデータからFTPを推定して返す。
// GET /api/ftp?days=60&types=cycling,virtual_ride
func (h *FTPHandler) GetEstimate(w http.ResponseWriter, r *http.Request) {
	days := defaultFTPDays
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			middleware.WriteIngestError(w, model.NewMalformedPayloadError("daysは正の整数で指定してください"))
			return
		}
		days = n
	}

	var activityTypes []string
	if s := r.URL.Query().Get("types"); s != "" {
		for _, t := range strings.Split(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				activityTypes = append(activityTypes, t)
			}
		}
	}

	estimate, err := h.estimator.Estimate(r.Context(), days, activityTypes)
	if err != nil {
		if errors.Is(err, analysis.ErrInsufficientData) {
			middleware.WriteIngestError(w, model.NewNotFoundError("FTP推定に必要なパワーデータ"))
			return
		}
		middleware.WriteIngestError(w, err)
		return
	}

	writeJSON(w, estimate)
}
