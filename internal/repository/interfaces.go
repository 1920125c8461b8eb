// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
)

// DailySummaryRepository は日次サマリーの永続化インターフェース。
type DailySummaryRepository interface {
	// Upsert は日付を自然キーとして日次サマリーを冪等にUPSERTする。
	// 既存行は完全上書きされる（マージしない）。
	Upsert(ctx context.Context, s *model.DailySummary) error

	// FindByDate は指定日の日次サマリーを取得する。見つからない場合はnilを返す。
	FindByDate(ctx context.Context, date time.Time) (*model.DailySummary, error)

	// ListRange は[from, to]（両端含む）の日次サマリーを日付昇順で返す。
	ListRange(ctx context.Context, from, to time.Time) ([]*model.DailySummary, error)
}

// SleepSummaryRepository は睡眠サマリーの永続化インターフェース。
type SleepSummaryRepository interface {
	// Upsert は日付を自然キーとして睡眠サマリーを冪等にUPSERTする。
	Upsert(ctx context.Context, s *model.SleepSummary) error

	// FindByDate は指定日の睡眠サマリーを取得する。見つからない場合はnilを返す。
	FindByDate(ctx context.Context, date time.Time) (*model.SleepSummary, error)

	// ListRange は[from, to]（両端含む）の睡眠サマリーを日付昇順で返す。
	ListRange(ctx context.Context, from, to time.Time) ([]*model.SleepSummary, error)
}

// HrvSummaryRepository はHRVサマリーの永続化インターフェース。
type HrvSummaryRepository interface {
	// Upsert は日付を自然キーとしてHRVサマリーを冪等にUPSERTする。
	Upsert(ctx context.Context, s *model.HrvSummary) error

	// FindByDate は指定日のHRVサマリーを取得する。見つからない場合はnilを返す。
	FindByDate(ctx context.Context, date time.Time) (*model.HrvSummary, error)

	// ListRange は[from, to]（両端含む）のHRVサマリーを日付昇順で返す。
	ListRange(ctx context.Context, from, to time.Time) ([]*model.HrvSummary, error)
}

// ActivityRepository はアクティビティの永続化インターフェース。
type ActivityRepository interface {
	// Upsert はactivity_idを自然キーとしてアクティビティを冪等にUPSERTする。
	Upsert(ctx context.Context, a *model.Activity) error

	// FindByID は指定IDのアクティビティを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, activityID int64) (*model.Activity, error)

	// ListRecent は開始時刻の降順でアクティビティを取得する。
	ListRecent(ctx context.Context, limit int) ([]*model.Activity, error)

	// ListIDsSince は指定時刻以降に開始したアクティビティのIDを返す。
	// activityTypesが空でない場合はその種別に限定する。FTP推定の入力収集に使用する。
	ListIDsSince(ctx context.Context, since time.Time, activityTypes []string) ([]int64, error)
}

// ActivityDetailRepository はアクティビティ詳細（時系列ペイロード）の永続化インターフェース。
type ActivityDetailRepository interface {
	// Upsert はactivity_idを自然キーとして詳細ペイロードを冪等にUPSERTする。
	Upsert(ctx context.Context, d *model.ActivityDetail) error

	// FindByActivityID は指定アクティビティの詳細を取得する。見つからない場合はnilを返す。
	FindByActivityID(ctx context.Context, activityID int64) (*model.ActivityDetail, error)
}

// SyncRunRepository は同期実行の監査レコードの永続化インターフェース。
type SyncRunRepository interface {
	// Create は実行開始時に監査レコードを作成する。
	Create(ctx context.Context, run *model.SyncRun) error

	// Finish は実行完了時にステータスと集計、失敗レポートを記録する。
	Finish(ctx context.Context, run *model.SyncRun) error

	// ListRecent は開始時刻の降順で実行履歴を取得する。
	ListRecent(ctx context.Context, limit int) ([]*model.SyncRun, error)

	// DeleteOlderThan は指定時刻より前に開始した実行履歴を削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
