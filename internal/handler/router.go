package handler

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/fitlog/internal/metrics"
	"github.com/hitoshi/fitlog/internal/middleware"
	"github.com/hitoshi/fitlog/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger            *slog.Logger
	CORSAllowedOrigin string
	DB                *sql.DB
	Gatherer          prometheus.Gatherer

	DailyRepo    repository.DailySummaryRepository
	SleepRepo    repository.SleepSummaryRepository
	HrvRepo      repository.HrvSummaryRepository
	ActivityRepo repository.ActivityRepository
	DetailRepo   repository.ActivityDetailRepository
	SyncRunRepo  repository.SyncRunRepository
	Estimator    FTPEstimatorService
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS
//
// APIは読み取り専用でGETのみを公開する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{deps.CORSAllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	metricsHandler := NewMetricsHandler(deps.DailyRepo, deps.SleepRepo, deps.HrvRepo)
	activityHandler := NewActivityHandler(deps.ActivityRepo, deps.DetailRepo)
	ftpHandler := NewFTPHandler(deps.Estimator)
	syncRunHandler := NewSyncRunHandler(deps.SyncRunRepo)

	// 運用エンドポイント
	r.Get("/health", healthHandler(deps.DB))
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	// メトリクスAPI（読み取り専用）
	r.Route("/api", func(r chi.Router) {
		r.Get("/daily", metricsHandler.ListDaily)
		r.Get("/sleep", metricsHandler.ListSleep)
		r.Get("/hrv", metricsHandler.ListHRV)

		r.Route("/activities", func(r chi.Router) {
			r.Get("/", activityHandler.ListActivities)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", activityHandler.GetActivity)
				r.Get("/details", activityHandler.GetActivityDetails)
			})
		})

		r.Get("/ftp", ftpHandler.GetEstimate)
		r.Get("/sync-runs", syncRunHandler.ListSyncRuns)
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "データベースに接続できません。", true)
			return
		}

		writeJSON(w, map[string]string{"status": "ok"})
	}
}
