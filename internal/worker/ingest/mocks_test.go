package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
)

// mockVendorClient はVendorClientのテスト用モック。
type mockVendorClient struct {
	fetchDailySummaryFunc   func(ctx context.Context, day time.Time) (json.RawMessage, error)
	fetchSleepFunc          func(ctx context.Context, day time.Time) (json.RawMessage, error)
	fetchHRVFunc            func(ctx context.Context, day time.Time) (json.RawMessage, error)
	fetchActivitiesFunc     func(ctx context.Context, day time.Time) (json.RawMessage, error)
	fetchActivityDetailFunc func(ctx context.Context, activityID int64) (json.RawMessage, error)
}

func (m *mockVendorClient) FetchDailySummary(ctx context.Context, day time.Time) (json.RawMessage, error) {
	if m.fetchDailySummaryFunc != nil {
		return m.fetchDailySummaryFunc(ctx, day)
	}
	return json.RawMessage(`{"calendarDate": "` + day.Format("2006-01-02") + `"}`), nil
}

func (m *mockVendorClient) FetchSleep(ctx context.Context, day time.Time) (json.RawMessage, error) {
	if m.fetchSleepFunc != nil {
		return m.fetchSleepFunc(ctx, day)
	}
	return json.RawMessage(`{"dailySleepDTO": {"calendarDate": "` + day.Format("2006-01-02") + `"}}`), nil
}

func (m *mockVendorClient) FetchHRV(ctx context.Context, day time.Time) (json.RawMessage, error) {
	if m.fetchHRVFunc != nil {
		return m.fetchHRVFunc(ctx, day)
	}
	return json.RawMessage(`{"hrvSummary": {"calendarDate": "` + day.Format("2006-01-02") + `"}}`), nil
}

func (m *mockVendorClient) FetchActivities(ctx context.Context, day time.Time) (json.RawMessage, error) {
	if m.fetchActivitiesFunc != nil {
		return m.fetchActivitiesFunc(ctx, day)
	}
	return json.RawMessage(`[]`), nil
}

func (m *mockVendorClient) FetchActivityDetail(ctx context.Context, activityID int64) (json.RawMessage, error) {
	if m.fetchActivityDetailFunc != nil {
		return m.fetchActivityDetailFunc(ctx, activityID)
	}
	return json.RawMessage(`{}`), nil
}

// mockDailyRepo はDailySummaryRepositoryのテスト用モック。
type mockDailyRepo struct {
	upsertFunc func(ctx context.Context, s *model.DailySummary) error
	upserted   []*model.DailySummary
}

func (m *mockDailyRepo) Upsert(ctx context.Context, s *model.DailySummary) error {
	if m.upsertFunc != nil {
		if err := m.upsertFunc(ctx, s); err != nil {
			return err
		}
	}
	m.upserted = append(m.upserted, s)
	return nil
}

func (m *mockDailyRepo) FindByDate(ctx context.Context, date time.Time) (*model.DailySummary, error) {
	return nil, nil
}

func (m *mockDailyRepo) ListRange(ctx context.Context, from, to time.Time) ([]*model.DailySummary, error) {
	return nil, nil
}

// mockSleepRepo はSleepSummaryRepositoryのテスト用モック。
type mockSleepRepo struct {
	upsertFunc func(ctx context.Context, s *model.SleepSummary) error
	upserted   []*model.SleepSummary
}

func (m *mockSleepRepo) Upsert(ctx context.Context, s *model.SleepSummary) error {
	if m.upsertFunc != nil {
		if err := m.upsertFunc(ctx, s); err != nil {
			return err
		}
	}
	m.upserted = append(m.upserted, s)
	return nil
}

func (m *mockSleepRepo) FindByDate(ctx context.Context, date time.Time) (*model.SleepSummary, error) {
	return nil, nil
}

func (m *mockSleepRepo) ListRange(ctx context.Context, from, to time.Time) ([]*model.SleepSummary, error) {
	return nil, nil
}

// mockHrvRepo はHrvSummaryRepositoryのテスト用モック。
type mockHrvRepo struct {
	upsertFunc func(ctx context.Context, s *model.HrvSummary) error
	upserted   []*model.HrvSummary
}

func (m *mockHrvRepo) Upsert(ctx context.Context, s *model.HrvSummary) error {
	if m.upsertFunc != nil {
		if err := m.upsertFunc(ctx, s); err != nil {
			return err
		}
	}
	m.upserted = append(m.upserted, s)
	return nil
}

func (m *mockHrvRepo) FindByDate(ctx context.Context, date time.Time) (*model.HrvSummary, error) {
	return nil, nil
}

func (m *mockHrvRepo) ListRange(ctx context.Context, from, to time.Time) ([]*model.HrvSummary, error) {
	return nil, nil
}

// mockActivityRepo はActivityRepositoryのテスト用モック。
type mockActivityRepo struct {
	upsertFunc func(ctx context.Context, a *model.Activity) error
	upserted   []*model.Activity
}

func (m *mockActivityRepo) Upsert(ctx context.Context, a *model.Activity) error {
	if m.upsertFunc != nil {
		if err := m.upsertFunc(ctx, a); err != nil {
			return err
		}
	}
	m.upserted = append(m.upserted, a)
	return nil
}

func (m *mockActivityRepo) FindByID(ctx context.Context, activityID int64) (*model.Activity, error) {
	return nil, nil
}

func (m *mockActivityRepo) ListRecent(ctx context.Context, limit int) ([]*model.Activity, error) {
	return nil, nil
}

func (m *mockActivityRepo) ListIDsSince(ctx context.Context, since time.Time, activityTypes []string) ([]int64, error) {
	return nil, nil
}

// mockDetailRepo はActivityDetailRepositoryのテスト用モック。
type mockDetailRepo struct {
	upserted []*model.ActivityDetail
}

func (m *mockDetailRepo) Upsert(ctx context.Context, d *model.ActivityDetail) error {
	m.upserted = append(m.upserted, d)
	return nil
}

func (m *mockDetailRepo) FindByActivityID(ctx context.Context, activityID int64) (*model.ActivityDetail, error) {
	return nil, nil
}

// mockSyncRunRepo はSyncRunRepositoryのテスト用モック。
type mockSyncRunRepo struct {
	created  []*model.SyncRun
	finished []*model.SyncRun
}

func (m *mockSyncRunRepo) Create(ctx context.Context, run *model.SyncRun) error {
	run.ID = "test-run-id"
	m.created = append(m.created, run)
	return nil
}

func (m *mockSyncRunRepo) Finish(ctx context.Context, run *model.SyncRun) error {
	m.finished = append(m.finished, run)
	return nil
}

func (m *mockSyncRunRepo) ListRecent(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	return nil, nil
}

func (m *mockSyncRunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// mockCollector はMetricsCollectorのテスト用モック。
type mockCollector struct {
	mu           sync.Mutex
	successes    map[string]int
	failures     map[string]int
	ticksSkipped int
}

func newMockCollector() *mockCollector {
	return &mockCollector{
		successes: make(map[string]int),
		failures:  make(map[string]int),
	}
}

func (m *mockCollector) RecordSyncSuccess(metric string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes[metric]++
}

func (m *mockCollector) RecordSyncFailure(metric string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[metric]++
}

func (m *mockCollector) RecordVendorHTTPStatus(statusCode int) {}

func (m *mockCollector) RecordVendorLatency(duration time.Duration) {}

func (m *mockCollector) RecordRecordsUpserted(metric string, count int) {}

func (m *mockCollector) RecordTickSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticksSkipped++
}

func (m *mockCollector) skippedTicks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticksSkipped
}
