package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fitlog/internal/model"
)

// PostgresActivityDetailRepo はPostgreSQLを使用したアクティビティ詳細リポジトリ。
// 詳細ペイロードはベンダーのレスポンスをそのままJSONBとして保持する。
type PostgresActivityDetailRepo struct {
	db *sql.DB
}

// NewPostgresActivityDetailRepo はPostgresActivityDetailRepoを生成する。
func NewPostgresActivityDetailRepo(db *sql.DB) *PostgresActivityDetailRepo {
	return &PostgresActivityDetailRepo{db: db}
}

// Upsert はactivity_idを自然キーとして詳細ペイロードを冪等にUPSERTする。
func (r *PostgresActivityDetailRepo) Upsert(ctx context.Context, d *model.ActivityDetail) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_details (activity_id, details, last_updated)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (activity_id) DO UPDATE SET
		     details = EXCLUDED.details,
		     last_updated = EXCLUDED.last_updated`,
		d.ActivityID, []byte(d.Details), d.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("アクティビティ詳細のUPSERTに失敗しました: %w", classifyStoreError(err))
	}
	return nil
}

// FindByActivityID は指定アクティビティの詳細を取得する。見つからない場合はnilを返す。
func (r *PostgresActivityDetailRepo) FindByActivityID(ctx context.Context, activityID int64) (*model.ActivityDetail, error) {
	d := &model.ActivityDetail{ActivityID: activityID}
	var details []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT details, last_updated FROM activity_details WHERE activity_id = $1`,
		activityID,
	).Scan(&details, &d.LastUpdated)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アクティビティ詳細の取得に失敗しました: %w", classifyStoreError(err))
	}

	d.Details = details
	return d, nil
}

// compile-time interface check
var _ ActivityDetailRepository = (*PostgresActivityDetailRepo)(nil)
