package normalize

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/security"
)

func newTestNormalizer() *Normalizer {
	var buf bytes.Buffer
	return newTestNormalizerWithLog(&buf)
}

func newTestNormalizerWithLog(buf *bytes.Buffer) *Normalizer {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	n := NewNormalizer(security.NewTextSanitizer(), logger)
	n.now = func() time.Time {
		return time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	}
	return n
}

// --- 日次サマリーの正規化テスト ---

func TestDailySummary_AllFields(t *testing.T) {
	n := newTestNormalizer()

	raw := json.RawMessage(`{
		"calendarDate": "2026-08-20",
		"totalSteps": 8500,
		"totalDistanceMeters": 6800.5,
		"activeKilocalories": 450,
		"bmrKilocalories": 1600,
		"totalKilocalories": 2050,
		"restingHeartRate": 52,
		"minHeartRate": 48,
		"maxHeartRate": 165,
		"averageStressLevel": 28,
		"maxStressLevel": 80,
		"bodyBatteryMostRecentValue": 60,
		"bodyBatteryHighestValue": 95,
		"bodyBatteryLowestValue": 30
	}`)

	s, err := n.DailySummary(raw)
	if err != nil {
		t.Fatalf("DailySummary がエラーを返した: %v", err)
	}

	wantDate := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	if !s.Date.Equal(wantDate) {
		t.Errorf("Date = %v, want %v", s.Date, wantDate)
	}
	if s.TotalSteps == nil || *s.TotalSteps != 8500 {
		t.Errorf("TotalSteps = %v, want 8500", s.TotalSteps)
	}
	// 距離は四捨五入してメートル整数で保持する
	if s.TotalDistanceMeters == nil || *s.TotalDistanceMeters != 6801 {
		t.Errorf("TotalDistanceMeters = %v, want 6801", s.TotalDistanceMeters)
	}
	if s.RestingHR == nil || *s.RestingHR != 52 {
		t.Errorf("RestingHR = %v, want 52", s.RestingHR)
	}
	if s.BodyBatteryHigh == nil || *s.BodyBatteryHigh != 95 {
		t.Errorf("BodyBatteryHigh = %v, want 95", s.BodyBatteryHigh)
	}
}

func TestDailySummary_OptionalFieldsMissing(t *testing.T) {
	n := newTestNormalizer()

	// 必須の日付のみ。任意フィールドの欠落はエラーにならずnilになる
	raw := json.RawMessage(`{"calendarDate": "2026-08-20"}`)

	s, err := n.DailySummary(raw)
	if err != nil {
		t.Fatalf("DailySummary がエラーを返した: %v", err)
	}

	if s.TotalSteps != nil {
		t.Errorf("TotalSteps = %v, want nil", s.TotalSteps)
	}
	if s.RestingHR != nil {
		t.Errorf("RestingHR = %v, want nil", s.RestingHR)
	}
	if s.BodyBatteryCurrent != nil {
		t.Errorf("BodyBatteryCurrent = %v, want nil", s.BodyBatteryCurrent)
	}
}

func TestDailySummary_MissingDate(t *testing.T) {
	n := newTestNormalizer()

	raw := json.RawMessage(`{"totalSteps": 100}`)

	_, err := n.DailySummary(raw)
	if err == nil {
		t.Fatal("日付欠落はエラーを返すべき")
	}
	if model.CodeOf(err) != model.ErrCodeMalformedPayload {
		t.Errorf("エラーコード = %s, want %s", model.CodeOf(err), model.ErrCodeMalformedPayload)
	}
	if model.IsRetryable(err) {
		t.Error("MalformedPayloadエラーはリトライ不可であるべき")
	}
}

func TestDailySummary_InvalidDate(t *testing.T) {
	n := newTestNormalizer()

	raw := json.RawMessage(`{"calendarDate": "not-a-date"}`)

	_, err := n.DailySummary(raw)
	if err == nil {
		t.Fatal("不正な日付はエラーを返すべき")
	}
	if model.CodeOf(err) != model.ErrCodeMalformedPayload {
		t.Errorf("エラーコード = %s, want %s", model.CodeOf(err), model.ErrCodeMalformedPayload)
	}
}

func TestDailySummary_InvalidJSON(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.DailySummary(json.RawMessage(`{invalid`))
	if err == nil {
		t.Fatal("不正なJSONはエラーを返すべき")
	}
	if model.CodeOf(err) != model.ErrCodeMalformedPayload {
		t.Errorf("エラーコード = %s, want %s", model.CodeOf(err), model.ErrCodeMalformedPayload)
	}
}

// --- 睡眠データの正規化テスト ---

func TestSleep_NestedFields(t *testing.T) {
	n := newTestNormalizer()

	raw := json.RawMessage(`{
		"dailySleepDTO": {
			"calendarDate": "2026-08-20",
			"sleepTimeSeconds": 27000,
			"deepSleepSeconds": 5400,
			"lightSleepSeconds": 14400,
			"remSleepSeconds": 5400,
			"awakeSleepSeconds": 1800,
			"sleepScores": {
				"overall": {"value": 82, "qualifierKey": "GOOD"}
			}
		}
	}`)

	s, err := n.Sleep(raw)
	if err != nil {
		t.Fatalf("Sleep がエラーを返した: %v", err)
	}

	if s.TotalSleepSeconds == nil || *s.TotalSleepSeconds != 27000 {
		t.Errorf("TotalSleepSeconds = %v, want 27000", s.TotalSleepSeconds)
	}
	if s.SleepScore == nil || *s.SleepScore != 82 {
		t.Errorf("SleepScore = %v, want 82", s.SleepScore)
	}
	if s.SleepQuality == nil || *s.SleepQuality != "GOOD" {
		t.Errorf("SleepQuality = %v, want GOOD", s.SleepQuality)
	}
}

func TestSleep_MissingDTO(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.Sleep(json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("dailySleepDTO欠落はエラーを返すべき")
	}
	if model.CodeOf(err) != model.ErrCodeMalformedPayload {
		t.Errorf("エラーコード = %s, want %s", model.CodeOf(err), model.ErrCodeMalformedPayload)
	}
}

func TestSleep_ScoresMissing(t *testing.T) {
	n := newTestNormalizer()

	raw := json.RawMessage(`{
		"dailySleepDTO": {"calendarDate": "2026-08-20", "sleepTimeSeconds": 25000}
	}`)

	s, err := n.Sleep(raw)
	if err != nil {
		t.Fatalf("Sleep がエラーを返した: %v", err)
	}
	if s.SleepScore != nil {
		t.Errorf("SleepScore = %v, want nil", s.SleepScore)
	}
	if s.SleepQuality != nil {
		t.Errorf("SleepQuality = %v, want nil", s.SleepQuality)
	}
}

// --- HRVデータの正規化テスト ---

func TestHRV_AllFields(t *testing.T) {
	n := newTestNormalizer()

	raw := json.RawMessage(`{
		"hrvSummary": {
			"calendarDate": "2026-08-20",
			"lastNightAvg": 55,
			"weeklyAvg": 52,
			"status": "BALANCED"
		}
	}`)

	s, err := n.HRV(raw)
	if err != nil {
		t.Fatalf("HRV がエラーを返した: %v", err)
	}

	if s.LastNightAvg == nil || *s.LastNightAvg != 55 {
		t.Errorf("LastNightAvg = %v, want 55", s.LastNightAvg)
	}
	if s.Status == nil || *s.Status != "BALANCED" {
		t.Errorf("Status = %v, want BALANCED", s.Status)
	}
}

func TestHRV_MissingSummary(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.HRV(json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("hrvSummary欠落はエラーを返すべき")
	}
	if model.CodeOf(err) != model.ErrCodeMalformedPayload {
		t.Errorf("エラーコード = %s, want %s", model.CodeOf(err), model.ErrCodeMalformedPayload)
	}
}

// --- アクティビティの正規化テスト ---

func TestActivities_MapsFields(t *testing.T) {
	n := newTestNormalizer()

	raw := json.RawMessage(`[{
		"activityId": 12345,
		"activityName": "Morning Ride",
		"activityType": {"typeKey": "cycling"},
		"startTimeLocal": "2026-08-20 07:30:00",
		"distance": 25000.0,
		"duration": 3600.0,
		"averageHR": 142.0,
		"maxHR": 178.0,
		"calories": 650.0,
		"avgPower": 185.0,
		"maxPower": 540.0,
		"elevationGain": 320.0,
		"elevationLoss": 315.0,
		"averageBikingCadenceInRevPerMinute": 88.0,
		"maxBikingCadenceInRevPerMinute": 115.0
	}]`)

	activities, err := n.Activities(raw)
	if err != nil {
		t.Fatalf("Activities がエラーを返した: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("件数 = %d, want 1", len(activities))
	}

	a := activities[0]
	if a.ActivityID != 12345 {
		t.Errorf("ActivityID = %d, want 12345", a.ActivityID)
	}
	if a.ActivityName == nil || *a.ActivityName != "Morning Ride" {
		t.Errorf("ActivityName = %v, want Morning Ride", a.ActivityName)
	}
	if a.ActivityType == nil || *a.ActivityType != "cycling" {
		t.Errorf("ActivityType = %v, want cycling", a.ActivityType)
	}
	wantStart := time.Date(2026, 8, 20, 7, 30, 0, 0, time.UTC)
	if !a.StartTime.Equal(wantStart) {
		t.Errorf("StartTime = %v, want %v", a.StartTime, wantStart)
	}
	if a.AvgHR == nil || *a.AvgHR != 142 {
		t.Errorf("AvgHR = %v, want 142", a.AvgHR)
	}
	if a.AvgPower == nil || *a.AvgPower != 185 {
		t.Errorf("AvgPower = %v, want 185", a.AvgPower)
	}
	if a.AvgCadence == nil || *a.AvgCadence != 88 {
		t.Errorf("AvgCadence = %v, want 88", a.AvgCadence)
	}
}

func TestActivities_RunningCadenceFallback(t *testing.T) {
	n := newTestNormalizer()

	// バイクケイデンスがない場合はランニングケイデンスを採用する
	raw := json.RawMessage(`[{
		"activityId": 99,
		"startTimeLocal": "2026-08-20 06:00:00",
		"averageRunningCadenceInStepsPerMinute": 172.0
	}]`)

	activities, err := n.Activities(raw)
	if err != nil {
		t.Fatalf("Activities がエラーを返した: %v", err)
	}
	if a := activities[0]; a.AvgCadence == nil || *a.AvgCadence != 172 {
		t.Errorf("AvgCadence = %v, want 172", a.AvgCadence)
	}
}

func TestActivities_SanitizesName(t *testing.T) {
	n := newTestNormalizer()

	raw := json.RawMessage(`[{
		"activityId": 7,
		"activityName": "Evening Run<script>alert(1)</script>",
		"startTimeLocal": "2026-08-20 18:00:00"
	}]`)

	activities, err := n.Activities(raw)
	if err != nil {
		t.Fatalf("Activities がエラーを返した: %v", err)
	}
	if a := activities[0]; a.ActivityName == nil || *a.ActivityName != "Evening Run" {
		t.Errorf("ActivityName = %v, want Evening Run", a.ActivityName)
	}
}

func TestActivities_SkipsMalformedElement(t *testing.T) {
	var buf bytes.Buffer
	n := newTestNormalizerWithLog(&buf)

	// 中央の要素はactivityIdを欠く。前後の正常な要素は失われてはならない
	raw := json.RawMessage(`[
		{"activityId": 100, "startTimeLocal": "2026-08-20 06:00:00"},
		{"startTimeLocal": "2026-08-20 07:00:00"},
		{"activityId": 300, "startTimeLocal": "2026-08-20 08:00:00"}
	]`)

	activities, err := n.Activities(raw)
	if err != nil {
		t.Fatalf("Activities がエラーを返した: %v", err)
	}
	if len(activities) != 2 {
		t.Fatalf("件数 = %d, want 2", len(activities))
	}
	if activities[0].ActivityID != 100 || activities[1].ActivityID != 300 {
		t.Errorf("ActivityID = [%d, %d], want [100, 300]",
			activities[0].ActivityID, activities[1].ActivityID)
	}
	if !strings.Contains(buf.String(), "activityIdがありません") {
		t.Errorf("スキップ理由が警告ログに記録されるべき: %s", buf.String())
	}
}

func TestActivities_SkipsMissingStartTime(t *testing.T) {
	n := newTestNormalizer()

	raw := json.RawMessage(`[
		{"activityId": 5},
		{"activityId": 6, "startTimeLocal": "2026-08-20 06:00:00"}
	]`)

	activities, err := n.Activities(raw)
	if err != nil {
		t.Fatalf("Activities がエラーを返した: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("件数 = %d, want 1", len(activities))
	}
	if activities[0].ActivityID != 6 {
		t.Errorf("ActivityID = %d, want 6", activities[0].ActivityID)
	}
}

func TestActivities_SkipsInvalidStartTime(t *testing.T) {
	n := newTestNormalizer()

	raw := json.RawMessage(`[{"activityId": 8, "startTimeLocal": "not-a-time"}]`)

	activities, err := n.Activities(raw)
	if err != nil {
		t.Fatalf("Activities がエラーを返した: %v", err)
	}
	if len(activities) != 0 {
		t.Errorf("件数 = %d, want 0", len(activities))
	}
}

func TestActivities_InvalidJSON(t *testing.T) {
	n := newTestNormalizer()

	// 一覧全体が解釈できない場合のみエラーになる
	_, err := n.Activities(json.RawMessage(`{not-a-list`))
	if err == nil {
		t.Fatal("不正なJSONはエラーを返すべき")
	}
	if model.CodeOf(err) != model.ErrCodeMalformedPayload {
		t.Errorf("エラーコード = %s, want %s", model.CodeOf(err), model.ErrCodeMalformedPayload)
	}
}

func TestActivities_EmptyList(t *testing.T) {
	n := newTestNormalizer()

	activities, err := n.Activities(json.RawMessage(`[]`))
	if err != nil {
		t.Fatalf("Activities がエラーを返した: %v", err)
	}
	if len(activities) != 0 {
		t.Errorf("件数 = %d, want 0", len(activities))
	}
}
