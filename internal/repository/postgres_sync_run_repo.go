package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fitlog/internal/model"
)

// PostgresSyncRunRepo はPostgreSQLを使用した同期実行監査リポジトリ。
type PostgresSyncRunRepo struct {
	db *sql.DB
}

// NewPostgresSyncRunRepo はPostgresSyncRunRepoを生成する。
func NewPostgresSyncRunRepo(db *sql.DB) *PostgresSyncRunRepo {
	return &PostgresSyncRunRepo{db: db}
}

// Create は実行開始時に監査レコードを作成する。IDが空の場合はUUIDを採番する。
func (r *PostgresSyncRunRepo) Create(ctx context.Context, run *model.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, kind, started_at, status, dates_processed, failure_count, report)
		 VALUES ($1, $2, $3, $4, 0, 0, '[]'::jsonb)`,
		run.ID, string(run.Kind), run.StartedAt, string(run.Status),
	)
	if err != nil {
		return fmt.Errorf("同期実行レコードの作成に失敗しました: %w", classifyStoreError(err))
	}
	return nil
}

// Finish は実行完了時にステータスと集計、失敗レポートを記録する。
func (r *PostgresSyncRunRepo) Finish(ctx context.Context, run *model.SyncRun) error {
	report, err := json.Marshal(run.Failures)
	if err != nil {
		return fmt.Errorf("失敗レポートのJSON化に失敗しました: %w", err)
	}
	if run.Failures == nil {
		report = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE sync_runs
		 SET finished_at = $2, status = $3, dates_processed = $4, failure_count = $5, report = $6
		 WHERE id = $1`,
		run.ID, run.FinishedAt, string(run.Status), run.DatesProcessed, run.FailureCount, report,
	)
	if err != nil {
		return fmt.Errorf("同期実行レコードの更新に失敗しました: %w", classifyStoreError(err))
	}
	return nil
}

// ListRecent は開始時刻の降順で実行履歴を取得する。
func (r *PostgresSyncRunRepo) ListRecent(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, started_at, finished_at, status, dates_processed, failure_count, report
		 FROM sync_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("同期実行履歴の取得に失敗しました: %w", classifyStoreError(err))
	}
	defer rows.Close()

	var runs []*model.SyncRun
	for rows.Next() {
		run := &model.SyncRun{}
		var kind, status string
		var finishedAt sql.NullTime
		var report []byte

		if err := rows.Scan(
			&run.ID, &kind, &run.StartedAt, &finishedAt,
			&status, &run.DatesProcessed, &run.FailureCount, &report,
		); err != nil {
			return nil, fmt.Errorf("同期実行行の読み取りに失敗しました: %w", err)
		}

		run.Kind = model.SyncRunKind(kind)
		run.Status = model.SyncRunStatus(status)
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		if len(report) > 0 {
			if err := json.Unmarshal(report, &run.Failures); err != nil {
				return nil, fmt.Errorf("失敗レポートの復元に失敗しました: %w", err)
			}
		}

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("同期実行履歴の走査に失敗しました: %w", classifyStoreError(err))
	}

	return runs, nil
}

// DeleteOlderThan は指定時刻より前に開始した実行履歴を削除し、削除件数を返す。
// 保持期間を超えた監査レコードの定期クリーンアップに使用する。
func (r *PostgresSyncRunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_runs WHERE started_at < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("同期実行履歴の削除に失敗しました: %w", classifyStoreError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ SyncRunRepository = (*PostgresSyncRunRepo)(nil)
