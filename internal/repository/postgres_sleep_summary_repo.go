package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
)

// PostgresSleepSummaryRepo はPostgreSQLを使用した睡眠サマリーリポジトリ。
type PostgresSleepSummaryRepo struct {
	db *sql.DB
}

// NewPostgresSleepSummaryRepo はPostgresSleepSummaryRepoを生成する。
func NewPostgresSleepSummaryRepo(db *sql.DB) *PostgresSleepSummaryRepo {
	return &PostgresSleepSummaryRepo{db: db}
}

// Upsert は日付を自然キーとして睡眠サマリーを冪等にUPSERTする。
func (r *PostgresSleepSummaryRepo) Upsert(ctx context.Context, s *model.SleepSummary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sleep_summary (
		     date, total_sleep_seconds, deep_sleep_seconds, light_sleep_seconds,
		     rem_sleep_seconds, awake_sleep_seconds, sleep_score, sleep_quality, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (date) DO UPDATE SET
		     total_sleep_seconds = EXCLUDED.total_sleep_seconds,
		     deep_sleep_seconds = EXCLUDED.deep_sleep_seconds,
		     light_sleep_seconds = EXCLUDED.light_sleep_seconds,
		     rem_sleep_seconds = EXCLUDED.rem_sleep_seconds,
		     awake_sleep_seconds = EXCLUDED.awake_sleep_seconds,
		     sleep_score = EXCLUDED.sleep_score,
		     sleep_quality = EXCLUDED.sleep_quality,
		     last_updated = EXCLUDED.last_updated`,
		s.Date, s.TotalSleepSeconds, s.DeepSleepSeconds, s.LightSleepSeconds,
		s.RemSleepSeconds, s.AwakeSleepSeconds, s.SleepScore, s.SleepQuality, s.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("睡眠サマリーのUPSERTに失敗しました: %w", classifyStoreError(err))
	}
	return nil
}

// FindByDate は指定日の睡眠サマリーを取得する。見つからない場合はnilを返す。
func (r *PostgresSleepSummaryRepo) FindByDate(ctx context.Context, date time.Time) (*model.SleepSummary, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT date, total_sleep_seconds, deep_sleep_seconds, light_sleep_seconds,
		        rem_sleep_seconds, awake_sleep_seconds, sleep_score, sleep_quality, last_updated
		 FROM sleep_summary WHERE date = $1`,
		date,
	)

	s, err := scanSleepSummary(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("睡眠サマリーの取得に失敗しました: %w", classifyStoreError(err))
	}
	return s, nil
}

// ListRange は[from, to]（両端含む）の睡眠サマリーを日付昇順で返す。
func (r *PostgresSleepSummaryRepo) ListRange(ctx context.Context, from, to time.Time) ([]*model.SleepSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, total_sleep_seconds, deep_sleep_seconds, light_sleep_seconds,
		        rem_sleep_seconds, awake_sleep_seconds, sleep_score, sleep_quality, last_updated
		 FROM sleep_summary WHERE date >= $1 AND date <= $2 ORDER BY date ASC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("睡眠サマリー一覧の取得に失敗しました: %w", classifyStoreError(err))
	}
	defer rows.Close()

	var summaries []*model.SleepSummary
	for rows.Next() {
		s, err := scanSleepSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("睡眠サマリー行の読み取りに失敗しました: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("睡眠サマリー一覧の走査に失敗しました: %w", classifyStoreError(err))
	}

	return summaries, nil
}

// scanSleepSummary は1行を読み取りSleepSummaryに変換する。
func scanSleepSummary(row rowScanner) (*model.SleepSummary, error) {
	s := &model.SleepSummary{}
	var total, deep, light, rem, awake, score sql.NullInt64
	var quality sql.NullString

	if err := row.Scan(
		&s.Date, &total, &deep, &light, &rem, &awake, &score, &quality, &s.LastUpdated,
	); err != nil {
		return nil, err
	}

	s.TotalSleepSeconds = nullIntValue(total)
	s.DeepSleepSeconds = nullIntValue(deep)
	s.LightSleepSeconds = nullIntValue(light)
	s.RemSleepSeconds = nullIntValue(rem)
	s.AwakeSleepSeconds = nullIntValue(awake)
	s.SleepScore = nullIntValue(score)
	s.SleepQuality = nullStringValue(quality)

	return s, nil
}

// compile-time interface check
var _ SleepSummaryRepository = (*PostgresSleepSummaryRepo)(nil)
