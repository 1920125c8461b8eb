package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
)

// PostgresHrvSummaryRepo はPostgreSQLを使用したHRVサマリーリポジトリ。
type PostgresHrvSummaryRepo struct {
	db *sql.DB
}

// NewPostgresHrvSummaryRepo はPostgresHrvSummaryRepoを生成する。
func NewPostgresHrvSummaryRepo(db *sql.DB) *PostgresHrvSummaryRepo {
	return &PostgresHrvSummaryRepo{db: db}
}

// Upsert は日付を自然キーとしてHRVサマリーを冪等にUPSERTする。
func (r *PostgresHrvSummaryRepo) Upsert(ctx context.Context, s *model.HrvSummary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO hrv_summary (date, last_night_avg, weekly_avg, status, last_updated)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (date) DO UPDATE SET
		     last_night_avg = EXCLUDED.last_night_avg,
		     weekly_avg = EXCLUDED.weekly_avg,
		     status = EXCLUDED.status,
		     last_updated = EXCLUDED.last_updated`,
		s.Date, s.LastNightAvg, s.WeeklyAvg, s.Status, s.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("HRVサマリーのUPSERTに失敗しました: %w", classifyStoreError(err))
	}
	return nil
}

// FindByDate は指定日のHRVサマリーを取得する。見つからない場合はnilを返す。
func (r *PostgresHrvSummaryRepo) FindByDate(ctx context.Context, date time.Time) (*model.HrvSummary, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT date, last_night_avg, weekly_avg, status, last_updated
		 FROM hrv_summary WHERE date = $1`,
		date,
	)

	s, err := scanHrvSummary(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("HRVサマリーの取得に失敗しました: %w", classifyStoreError(err))
	}
	return s, nil
}

// ListRange は[from, to]（両端含む）のHRVサマリーを日付昇順で返す。
func (r *PostgresHrvSummaryRepo) ListRange(ctx context.Context, from, to time.Time) ([]*model.HrvSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, last_night_avg, weekly_avg, status, last_updated
		 FROM hrv_summary WHERE date >= $1 AND date <= $2 ORDER BY date ASC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("HRVサマリー一覧の取得に失敗しました: %w", classifyStoreError(err))
	}
	defer rows.Close()

	var summaries []*model.HrvSummary
	for rows.Next() {
		s, err := scanHrvSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("HRVサマリー行の読み取りに失敗しました: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("HRVサマリー一覧の走査に失敗しました: %w", classifyStoreError(err))
	}

	return summaries, nil
}

// scanHrvSummary は1行を読み取りHrvSummaryに変換する。
func scanHrvSummary(row rowScanner) (*model.HrvSummary, error) {
	s := &model.HrvSummary{}
	var lastNight, weekly sql.NullInt64
	var status sql.NullString

	if err := row.Scan(&s.Date, &lastNight, &weekly, &status, &s.LastUpdated); err != nil {
		return nil, err
	}

	s.LastNightAvg = nullIntValue(lastNight)
	s.WeeklyAvg = nullIntValue(weekly)
	s.Status = nullStringValue(status)

	return s, nil
}

// compile-time interface check
var _ HrvSummaryRepository = (*PostgresHrvSummaryRepo)(nil)
