package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/fitlog/internal/model"
)

// PostgresActivityRepo はPostgreSQLを使用したアクティビティリポジトリ。
type PostgresActivityRepo struct {
	db *sql.DB
}

// NewPostgresActivityRepo はPostgresActivityRepoを生成する。
func NewPostgresActivityRepo(db *sql.DB) *PostgresActivityRepo {
	return &PostgresActivityRepo{db: db}
}

// Upsert はactivity_idを自然キーとしてアクティビティを冪等にUPSERTする。
// 既存行は完全上書きされる（マージしない）。
func (r *PostgresActivityRepo) Upsert(ctx context.Context, a *model.Activity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (
		     activity_id, activity_name, activity_type, start_time,
		     distance_meters, duration_seconds, avg_hr, max_hr, calories,
		     avg_power, max_power, elevation_gain_meters, elevation_loss_meters,
		     avg_cadence, max_cadence, steps, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (activity_id) DO UPDATE SET
		     activity_name = EXCLUDED.activity_name,
		     activity_type = EXCLUDED.activity_type,
		     start_time = EXCLUDED.start_time,
		     distance_meters = EXCLUDED.distance_meters,
		     duration_seconds = EXCLUDED.duration_seconds,
		     avg_hr = EXCLUDED.avg_hr,
		     max_hr = EXCLUDED.max_hr,
		     calories = EXCLUDED.calories,
		     avg_power = EXCLUDED.avg_power,
		     max_power = EXCLUDED.max_power,
		     elevation_gain_meters = EXCLUDED.elevation_gain_meters,
		     elevation_loss_meters = EXCLUDED.elevation_loss_meters,
		     avg_cadence = EXCLUDED.avg_cadence,
		     max_cadence = EXCLUDED.max_cadence,
		     steps = EXCLUDED.steps,
		     last_updated = EXCLUDED.last_updated`,
		a.ActivityID, a.ActivityName, a.ActivityType, a.StartTime,
		a.DistanceMeters, a.DurationSeconds, a.AvgHR, a.MaxHR, a.Calories,
		a.AvgPower, a.MaxPower, a.ElevationGainMeters, a.ElevationLossMeters,
		a.AvgCadence, a.MaxCadence, a.Steps, a.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("アクティビティのUPSERTに失敗しました: %w", classifyStoreError(err))
	}
	return nil
}

// FindByID は指定IDのアクティビティを取得する。見つからない場合はnilを返す。
func (r *PostgresActivityRepo) FindByID(ctx context.Context, activityID int64) (*model.Activity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT activity_id, activity_name, activity_type, start_time,
		        distance_meters, duration_seconds, avg_hr, max_hr, calories,
		        avg_power, max_power, elevation_gain_meters, elevation_loss_meters,
		        avg_cadence, max_cadence, steps, last_updated
		 FROM activities WHERE activity_id = $1`,
		activityID,
	)

	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アクティビティの取得に失敗しました: %w", classifyStoreError(err))
	}
	return a, nil
}

// ListRecent は開始時刻の降順でアクティビティを取得する。
func (r *PostgresActivityRepo) ListRecent(ctx context.Context, limit int) ([]*model.Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT activity_id, activity_name, activity_type, start_time,
		        distance_meters, duration_seconds, avg_hr, max_hr, calories,
		        avg_power, max_power, elevation_gain_meters, elevation_loss_meters,
		        avg_cadence, max_cadence, steps, last_updated
		 FROM activities ORDER BY start_time DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("アクティビティ一覧の取得に失敗しました: %w", classifyStoreError(err))
	}
	defer rows.Close()

	var activities []*model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("アクティビティ行の読み取りに失敗しました: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アクティビティ一覧の走査に失敗しました: %w", classifyStoreError(err))
	}

	return activities, nil
}

// ListIDsSince は指定時刻以降に開始したアクティビティのIDを開始時刻の降順で返す。
// activityTypesが空でない場合はその種別に限定する。
func (r *PostgresActivityRepo) ListIDsSince(ctx context.Context, since time.Time, activityTypes []string) ([]int64, error) {
	query := `SELECT activity_id FROM activities WHERE start_time >= $1`
	args := []interface{}{since}

	if len(activityTypes) > 0 {
		query += ` AND activity_type = ANY($2)`
		args = append(args, pq.Array(activityTypes))
	}
	query += ` ORDER BY start_time DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("アクティビティIDの取得に失敗しました: %w", classifyStoreError(err))
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("アクティビティID行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アクティビティIDの走査に失敗しました: %w", classifyStoreError(err))
	}

	return ids, nil
}

// scanActivity は1行を読み取りActivityに変換する。
func scanActivity(row rowScanner) (*model.Activity, error) {
	a := &model.Activity{}
	var name, actType sql.NullString
	var distance, duration, calories, elevGain, elevLoss sql.NullFloat64
	var avgHR, maxHR, avgPower, maxPower, avgCadence, maxCadence, steps sql.NullInt64

	if err := row.Scan(
		&a.ActivityID, &name, &actType, &a.StartTime,
		&distance, &duration, &avgHR, &maxHR, &calories,
		&avgPower, &maxPower, &elevGain, &elevLoss,
		&avgCadence, &maxCadence, &steps, &a.LastUpdated,
	); err != nil {
		return nil, err
	}

	a.ActivityName = nullStringValue(name)
	a.ActivityType = nullStringValue(actType)
	a.DistanceMeters = nullFloatValue(distance)
	a.DurationSeconds = nullFloatValue(duration)
	a.AvgHR = nullIntValue(avgHR)
	a.MaxHR = nullIntValue(maxHR)
	a.Calories = nullFloatValue(calories)
	a.AvgPower = nullIntValue(avgPower)
	a.MaxPower = nullIntValue(maxPower)
	a.ElevationGainMeters = nullFloatValue(elevGain)
	a.ElevationLossMeters = nullFloatValue(elevLoss)
	a.AvgCadence = nullIntValue(avgCadence)
	a.MaxCadence = nullIntValue(maxCadence)
	a.Steps = nullIntValue(steps)

	return a, nil
}

// compile-time interface check
var _ ActivityRepository = (*PostgresActivityRepo)(nil)
