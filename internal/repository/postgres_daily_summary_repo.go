package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
)

// PostgresDailySummaryRepo はPostgreSQLを使用した日次サマリーリポジトリ。
type PostgresDailySummaryRepo struct {
	db *sql.DB
}

// NewPostgresDailySummaryRepo はPostgresDailySummaryRepoを生成する。
func NewPostgresDailySummaryRepo(db *sql.DB) *PostgresDailySummaryRepo {
	return &PostgresDailySummaryRepo{db: db}
}

// Upsert は日付を自然キーとして日次サマリーを冪等にUPSERTする。
// 既存行は完全上書きされる（マージしない）。
func (r *PostgresDailySummaryRepo) Upsert(ctx context.Context, s *model.DailySummary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO daily_summary (
		     date, total_steps, total_distance_meters, active_kcal, bmr_kcal, total_kcal,
		     resting_hr, min_hr, max_hr, avg_stress, max_stress,
		     body_battery_current, body_battery_high, body_battery_low, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (date) DO UPDATE SET
		     total_steps = EXCLUDED.total_steps,
		     total_distance_meters = EXCLUDED.total_distance_meters,
		     active_kcal = EXCLUDED.active_kcal,
		     bmr_kcal = EXCLUDED.bmr_kcal,
		     total_kcal = EXCLUDED.total_kcal,
		     resting_hr = EXCLUDED.resting_hr,
		     min_hr = EXCLUDED.min_hr,
		     max_hr = EXCLUDED.max_hr,
		     avg_stress = EXCLUDED.avg_stress,
		     max_stress = EXCLUDED.max_stress,
		     body_battery_current = EXCLUDED.body_battery_current,
		     body_battery_high = EXCLUDED.body_battery_high,
		     body_battery_low = EXCLUDED.body_battery_low,
		     last_updated = EXCLUDED.last_updated`,
		s.Date, s.TotalSteps, s.TotalDistanceMeters, s.ActiveKcal, s.BmrKcal, s.TotalKcal,
		s.RestingHR, s.MinHR, s.MaxHR, s.AvgStress, s.MaxStress,
		s.BodyBatteryCurrent, s.BodyBatteryHigh, s.BodyBatteryLow, s.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("日次サマリーのUPSERTに失敗しました: %w", classifyStoreError(err))
	}
	return nil
}

// FindByDate は指定日の日次サマリーを取得する。見つからない場合はnilを返す。
func (r *PostgresDailySummaryRepo) FindByDate(ctx context.Context, date time.Time) (*model.DailySummary, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT date, total_steps, total_distance_meters, active_kcal, bmr_kcal, total_kcal,
		        resting_hr, min_hr, max_hr, avg_stress, max_stress,
		        body_battery_current, body_battery_high, body_battery_low, last_updated
		 FROM daily_summary WHERE date = $1`,
		date,
	)

	s, err := scanDailySummary(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("日次サマリーの取得に失敗しました: %w", classifyStoreError(err))
	}
	return s, nil
}

// ListRange は[from, to]（両端含む）の日次サマリーを日付昇順で返す。
func (r *PostgresDailySummaryRepo) ListRange(ctx context.Context, from, to time.Time) ([]*model.DailySummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, total_steps, total_distance_meters, active_kcal, bmr_kcal, total_kcal,
		        resting_hr, min_hr, max_hr, avg_stress, max_stress,
		        body_battery_current, body_battery_high, body_battery_low, last_updated
		 FROM daily_summary WHERE date >= $1 AND date <= $2 ORDER BY date ASC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("日次サマリー一覧の取得に失敗しました: %w", classifyStoreError(err))
	}
	defer rows.Close()

	var summaries []*model.DailySummary
	for rows.Next() {
		s, err := scanDailySummary(rows)
		if err != nil {
			return nil, fmt.Errorf("日次サマリー行の読み取りに失敗しました: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("日次サマリー一覧の走査に失敗しました: %w", classifyStoreError(err))
	}

	return summaries, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanDailySummary は1行を読み取りDailySummaryに変換する。
func scanDailySummary(row rowScanner) (*model.DailySummary, error) {
	s := &model.DailySummary{}
	var totalSteps, totalDistance, restingHR, minHR, maxHR sql.NullInt64
	var avgStress, maxStress, bbCurrent, bbHigh, bbLow sql.NullInt64
	var activeKcal, bmrKcal, totalKcal sql.NullFloat64

	if err := row.Scan(
		&s.Date, &totalSteps, &totalDistance, &activeKcal, &bmrKcal, &totalKcal,
		&restingHR, &minHR, &maxHR, &avgStress, &maxStress,
		&bbCurrent, &bbHigh, &bbLow, &s.LastUpdated,
	); err != nil {
		return nil, err
	}

	s.TotalSteps = nullIntValue(totalSteps)
	s.TotalDistanceMeters = nullIntValue(totalDistance)
	s.ActiveKcal = nullFloatValue(activeKcal)
	s.BmrKcal = nullFloatValue(bmrKcal)
	s.TotalKcal = nullFloatValue(totalKcal)
	s.RestingHR = nullIntValue(restingHR)
	s.MinHR = nullIntValue(minHR)
	s.MaxHR = nullIntValue(maxHR)
	s.AvgStress = nullIntValue(avgStress)
	s.MaxStress = nullIntValue(maxStress)
	s.BodyBatteryCurrent = nullIntValue(bbCurrent)
	s.BodyBatteryHigh = nullIntValue(bbHigh)
	s.BodyBatteryLow = nullIntValue(bbLow)

	return s, nil
}

// compile-time interface check
var _ DailySummaryRepository = (*PostgresDailySummaryRepo)(nil)
