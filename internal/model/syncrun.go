// Package model はドメインモデルを定義する。
package model

import "time"

// SyncRunKind は同期実行の種別を表す。
type SyncRunKind string

const (
	// SyncRunKindScheduled はスケジューラによる定期実行。
	SyncRunKindScheduled SyncRunKind = "scheduled"
	// SyncRunKindBackfill はバックフィルツールによる実行。
	SyncRunKindBackfill SyncRunKind = "backfill"
)

// SyncRunStatus は同期実行の結果ステータスを表す。
type SyncRunStatus string

const (
	// SyncRunStatusSucceeded は全日付の処理が成功したことを示す。
	SyncRunStatusSucceeded SyncRunStatus = "succeeded"
	// SyncRunStatusPartial は一部の日付で失敗があったことを示す。
	SyncRunStatusPartial SyncRunStatus = "partial"
	// SyncRunStatusFailed は実行全体が失敗したことを示す。
	SyncRunStatusFailed SyncRunStatus = "failed"
)

// DateFailure はある日付の処理失敗を表す。バックフィルの最終レポートに含まれる。
type DateFailure struct {
	Date   string `json:"date"`
	Metric string `json:"metric"`
	Reason string `json:"reason"`
}

// SyncRun は1回の同期実行（定期サイクルまたはバックフィル）の監査レコード。
type SyncRun struct {
	ID             string
	Kind           SyncRunKind
	StartedAt      time.Time
	FinishedAt     *time.Time
	Status         SyncRunStatus
	DatesProcessed int
	FailureCount   int
	Failures       []DateFailure
}
