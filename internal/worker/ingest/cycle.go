// Package ingest はヘルスメトリクスのバックグラウンド同期処理を提供する。
// スケジューラ、同期サイクル、リトライ/バックオフ戦略を含む。
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hitoshi/fitlog/internal/metrics"
	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/normalize"
	"github.com/hitoshi/fitlog/internal/repository"
)

// VendorClient はベンダーAPIからの取得インターフェース。
type VendorClient interface {
	FetchDailySummary(ctx context.Context, day time.Time) (json.RawMessage, error)
	FetchSleep(ctx context.Context, day time.Time) (json.RawMessage, error)
	FetchHRV(ctx context.Context, day time.Time) (json.RawMessage, error)
	FetchActivities(ctx context.Context, day time.Time) (json.RawMessage, error)
	FetchActivityDetail(ctx context.Context, activityID int64) (json.RawMessage, error)
}

// メトリクスカテゴリ名。失敗レポートとPrometheusラベルで共用する。
const (
	MetricDailySummary   = "daily_summary"
	MetricSleep          = "sleep"
	MetricHRV            = "hrv"
	MetricActivities     = "activities"
	MetricActivityDetail = "activity_detail"
)

// Syncer は1日分のメトリクス取得・正規化・保存を実行する。
// メトリクスカテゴリ単位で失敗を隔離し、あるカテゴリの失敗が
// 同日の他カテゴリの処理を妨げない。
type Syncer struct {
	client       VendorClient
	normalizer   *normalize.Normalizer
	dailyRepo    repository.DailySummaryRepository
	sleepRepo    repository.SleepSummaryRepository
	hrvRepo      repository.HrvSummaryRepository
	activityRepo repository.ActivityRepository
	detailRepo   repository.ActivityDetailRepository
	syncRunRepo  repository.SyncRunRepository
	collector    metrics.MetricsCollector
	logger       *slog.Logger
	maxRetries   int
	syncDetails  bool
	sleep        func(time.Duration) // テスト用に差し替え可能
	now          func() time.Time    // テスト用に差し替え可能
}

// NewSyncer はSyncerの新しいインスタンスを生成する。
func NewSyncer(
	client VendorClient,
	normalizer *normalize.Normalizer,
	dailyRepo repository.DailySummaryRepository,
	sleepRepo repository.SleepSummaryRepository,
	hrvRepo repository.HrvSummaryRepository,
	activityRepo repository.ActivityRepository,
	detailRepo repository.ActivityDetailRepository,
	syncRunRepo repository.SyncRunRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxRetries int,
	syncDetails bool,
) *Syncer {
	return &Syncer{
		client:       client,
		normalizer:   normalizer,
		dailyRepo:    dailyRepo,
		sleepRepo:    sleepRepo,
		hrvRepo:      hrvRepo,
		activityRepo: activityRepo,
		detailRepo:   detailRepo,
		syncRunRepo:  syncRunRepo,
		collector:    collector,
		logger:       logger,
		maxRetries:   maxRetries,
		syncDetails:  syncDetails,
		sleep:        time.Sleep,
		now:          time.Now,
	}
}

// SyncDate は指定日の全メトリクスカテゴリを同期し、失敗したカテゴリの一覧を返す。
// カテゴリ単位で失敗を隔離する：あるカテゴリの失敗は他カテゴリを妨げない。
// ベンダーにデータがない日（404）は失敗として扱わずスキップする。
func (s *Syncer) SyncDate(ctx context.Context, day time.Time) []model.DateFailure {
	var failures []model.DateFailure
	dateStr := day.Format("2006-01-02")

	record := func(metric string, err error) {
		if err == nil {
			s.collector.RecordSyncSuccess(metric)
			return
		}
		if model.IsNotFound(err) {
			s.logger.Info("ベンダーにデータがないためスキップします",
				slog.String("date", dateStr),
				slog.String("metric", metric),
			)
			return
		}
		code := string(model.CodeOf(err))
		s.collector.RecordSyncFailure(metric, code)
		s.logger.Error("メトリクスの同期に失敗しました",
			slog.String("date", dateStr),
			slog.String("metric", metric),
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		failures = append(failures, model.DateFailure{
			Date:   dateStr,
			Metric: metric,
			Reason: code,
		})
	}

	record(MetricDailySummary, s.syncDailySummary(ctx, day))
	record(MetricSleep, s.syncSleep(ctx, day))
	record(MetricHRV, s.syncHRV(ctx, day))
	record(MetricActivities, s.syncActivities(ctx, day, &failures))

	return failures
}

// syncDailySummary は日次サマリーを取得・正規化・保存する。
func (s *Syncer) syncDailySummary(ctx context.Context, day time.Time) error {
	return WithRetry(ctx, s.maxRetries, s.sleep, func(ctx context.Context) error {
		raw, err := s.client.FetchDailySummary(ctx, day)
		if err != nil {
			return err
		}
		summary, err := s.normalizer.DailySummary(raw)
		if err != nil {
			return err
		}
		if err := s.dailyRepo.Upsert(ctx, summary); err != nil {
			return err
		}
		s.collector.RecordRecordsUpserted(MetricDailySummary, 1)
		return nil
	})
}

// syncSleep は睡眠データを取得・正規化・保存する。
func (s *Syncer) syncSleep(ctx context.Context, day time.Time) error {
	return WithRetry(ctx, s.maxRetries, s.sleep, func(ctx context.Context) error {
		raw, err := s.client.FetchSleep(ctx, day)
		if err != nil {
			return err
		}
		summary, err := s.normalizer.Sleep(raw)
		if err != nil {
			return err
		}
		if err := s.sleepRepo.Upsert(ctx, summary); err != nil {
			return err
		}
		s.collector.RecordRecordsUpserted(MetricSleep, 1)
		return nil
	})
}

// syncHRV はHRVデータを取得・正規化・保存する。
func (s *Syncer) syncHRV(ctx context.Context, day time.Time) error {
	return WithRetry(ctx, s.maxRetries, s.sleep, func(ctx context.Context) error {
		raw, err := s.client.FetchHRV(ctx, day)
		if err != nil {
			return err
		}
		summary, err := s.normalizer.HRV(raw)
		if err != nil {
			return err
		}
		if err := s.hrvRepo.Upsert(ctx, summary); err != nil {
			return err
		}
		s.collector.RecordRecordsUpserted(MetricHRV, 1)
		return nil
	})
}

// syncActivities は指定日のアクティビティ一覧を同期し、必要なら各詳細も取得する。
// 詳細の失敗はアクティビティ単位で隔離し、failuresに追記する。
func (s *Syncer) syncActivities(ctx context.Context, day time.Time, failures *[]model.DateFailure) error {
	var activities []*model.Activity

	err := WithRetry(ctx, s.maxRetries, s.sleep, func(ctx context.Context) error {
		raw, err := s.client.FetchActivities(ctx, day)
		if err != nil {
			return err
		}
		activities, err = s.normalizer.Activities(raw)
		if err != nil {
			return err
		}
		for _, a := range activities {
			if err := s.activityRepo.Upsert(ctx, a); err != nil {
				return err
			}
		}
		s.collector.RecordRecordsUpserted(MetricActivities, len(activities))
		return nil
	})
	if err != nil {
		return err
	}

	if !s.syncDetails {
		return nil
	}

	dateStr := day.Format("2006-01-02")
	for _, a := range activities {
		if err := s.syncActivityDetail(ctx, a.ActivityID); err != nil {
			if model.IsNotFound(err) {
				continue
			}
			code := string(model.CodeOf(err))
			s.collector.RecordSyncFailure(MetricActivityDetail, code)
			s.logger.Error("アクティビティ詳細の同期に失敗しました",
				slog.String("date", dateStr),
				slog.Int64("activity_id", a.ActivityID),
				slog.String("code", code),
			)
			*failures = append(*failures, model.DateFailure{
				Date:   dateStr,
				Metric: MetricActivityDetail,
				Reason: code,
			})
		}
	}

	return nil
}

// syncActivityDetail は1アクティビティの時系列詳細を取得・保存する。
func (s *Syncer) syncActivityDetail(ctx context.Context, activityID int64) error {
	return WithRetry(ctx, s.maxRetries, s.sleep, func(ctx context.Context) error {
		raw, err := s.client.FetchActivityDetail(ctx, activityID)
		if err != nil {
			return err
		}
		detail := &model.ActivityDetail{
			ActivityID:  activityID,
			Details:     raw,
			LastUpdated: s.now(),
		}
		if err := s.detailRepo.Upsert(ctx, detail); err != nil {
			return err
		}
		s.collector.RecordRecordsUpserted(MetricActivityDetail, 1)
		return nil
	})
}

// RunCycle は定期同期サイクルを1回実行する。
// 対象日は当日と、includeYesterdayが真の場合は前日も含む
// （ベンダー側で遅延して確定するデータを拾い直すため）。
// 実行は監査レコードとしてsync_runsに記録される。
func (s *Syncer) RunCycle(ctx context.Context, includeYesterday bool) error {
	start := s.now()
	today := start

	dates := []time.Time{today}
	if includeYesterday {
		dates = []time.Time{today.AddDate(0, 0, -1), today}
	}

	run := &model.SyncRun{
		Kind:      model.SyncRunKindScheduled,
		StartedAt: start,
		Status:    model.SyncRunStatusSucceeded,
	}
	if err := s.syncRunRepo.Create(ctx, run); err != nil {
		// 監査レコードが作れなくても同期自体は継続する
		s.logger.Error("同期実行レコードの作成に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("同期サイクルを開始します",
		slog.Int("date_count", len(dates)),
	)

	var allFailures []model.DateFailure
	for _, day := range dates {
		if ctx.Err() != nil {
			break
		}
		allFailures = append(allFailures, s.SyncDate(ctx, day)...)
	}

	finished := s.now()
	run.FinishedAt = &finished
	run.DatesProcessed = len(dates)
	run.FailureCount = len(allFailures)
	run.Failures = allFailures
	if len(allFailures) > 0 {
		run.Status = model.SyncRunStatusPartial
	}
	if err := s.syncRunRepo.Finish(ctx, run); err != nil {
		s.logger.Error("同期実行レコードの更新に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("同期サイクルが完了しました",
		slog.Int("date_count", len(dates)),
		slog.Int("failure_count", len(allFailures)),
		slog.Int64("duration_ms", finished.Sub(start).Milliseconds()),
	)

	return nil
}
