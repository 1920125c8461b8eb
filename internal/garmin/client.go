// Package garmin はGarmin Connect APIとの連携機能を提供する。
// 事前発行されたベアラートークンによる認証と、日次サマリー・睡眠・HRV・
// アクティビティの取得を行う。ベンダーAPIへの連続呼び出しはレートリミッタで
// ペーシングされる。
package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/fitlog/internal/model"
)

const (
	// defaultBaseURL はGarmin Connect APIのベースURL。
	defaultBaseURL = "https://connectapi.garmin.com"
	// userAgent はベンダーAPI呼び出し時のUser-Agent。
	userAgent = "Fitlog/1.0 Health Metrics Sync"
)

// VendorCallObserver はベンダーAPI呼び出しの観測フック。
// metricsパッケージのコレクターがこれを満たす。
type VendorCallObserver interface {
	RecordVendorHTTPStatus(statusCode int)
	RecordVendorLatency(duration time.Duration)
}

// Client はGarmin Connect APIのクライアント。
// 全ての取得メソッドはレートリミッタによるペーシングの後にHTTP呼び出しを行い、
// 生のJSONペイロードを返す。正規化はnormalizeパッケージが担う。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	token      string
	baseURL    string // テスト用にベースURLを差し替え可能
	observer   VendorCallObserver
}

// NewClient はClientの新しいインスタンスを生成する。
// apiIntervalはベンダーAPI呼び出しの最小間隔。
func NewClient(httpClient *http.Client, logger *slog.Logger, token string, baseURL string, apiInterval time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Every(apiInterval), 1),
		token:      token,
		baseURL:    baseURL,
	}
}

// SetObserver はベンダーAPI呼び出しの観測フックを設定する。未設定でも動作する。
func (c *Client) SetObserver(o VendorCallObserver) {
	c.observer = o
}

// FetchDailySummary は指定日の日次サマリー（歩数・心拍・ストレス・Body Battery）を取得する。
func (c *Client) FetchDailySummary(ctx context.Context, day time.Time) (json.RawMessage, error) {
	path := fmt.Sprintf("/usersummary-service/usersummary/daily?calendarDate=%s", day.Format("2006-01-02"))
	return c.get(ctx, path, "daily_summary")
}

// FetchSleep は指定日の睡眠データを取得する。
func (c *Client) FetchSleep(ctx context.Context, day time.Time) (json.RawMessage, error) {
	path := fmt.Sprintf("/wellness-service/wellness/dailySleepData?date=%s", day.Format("2006-01-02"))
	return c.get(ctx, path, "sleep")
}

// FetchHRV は指定日のHRVデータを取得する。
func (c *Client) FetchHRV(ctx context.Context, day time.Time) (json.RawMessage, error) {
	path := fmt.Sprintf("/hrv-service/hrv/%s", day.Format("2006-01-02"))
	return c.get(ctx, path, "hrv")
}

// FetchActivities は指定日に開始したアクティビティの一覧を取得する。
func (c *Client) FetchActivities(ctx context.Context, day time.Time) (json.RawMessage, error) {
	d := day.Format("2006-01-02")
	path := fmt.Sprintf("/activitylist-service/activities/search/activities?startDate=%s&endDate=%s&start=0&limit=50", d, d)
	return c.get(ctx, path, "activities")
}

// FetchActivityDetail は指定アクティビティの時系列詳細（メトリクスサンプル）を取得する。
func (c *Client) FetchActivityDetail(ctx context.Context, activityID int64) (json.RawMessage, error) {
	path := fmt.Sprintf("/activity-service/activity/%d/details", activityID)
	return c.get(ctx, path, "activity_detail")
}

// get はペーシング・認証ヘッダー付与・ステータス分類を行う共通取得処理。
func (c *Client) get(ctx context.Context, path string, category string) (json.RawMessage, error) {
	// 連続呼び出しの間隔を空ける（バックフィル時のベンダー負荷対策）
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ベンダーAPIの呼び出しに失敗しました",
			slog.String("category", category),
			slog.String("error", err.Error()),
		)
		return nil, model.NewVendorFetchError(err)
	}
	defer resp.Body.Close()

	if c.observer != nil {
		c.observer.RecordVendorHTTPStatus(resp.StatusCode)
		c.observer.RecordVendorLatency(time.Since(start))
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("ベンダーAPIがエラーステータスを返しました",
			slog.String("category", category),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, classifyVendorStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewVendorFetchError(fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err))
	}

	c.logger.Debug("ベンダーAPIの呼び出しが完了しました",
		slog.String("category", category),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		slog.Int("bytes", len(body)),
	)

	return body, nil
}

// classifyVendorStatus はベンダーAPIのHTTPステータスをエラー分類に変換する。
//   - 401/403: 認証エラー（資格情報の再発行が必要、リトライ不可）
//   - 429: レートリミット（リトライ可能）
//   - 5xx: ベンダー側の一時障害（レートリミットと同様にリトライ可能として扱う）
//   - 404: データなし
func classifyVendorStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return model.NewAuthError(fmt.Errorf("ベンダーAPIがステータス %d を返しました", status))
	case status == http.StatusTooManyRequests:
		return model.NewRateLimitedError(fmt.Errorf("ベンダーAPIがステータス %d を返しました", status))
	case status >= 500:
		return model.NewRateLimitedError(fmt.Errorf("ベンダーAPIがステータス %d を返しました", status))
	case status == http.StatusNotFound:
		return model.NewNotFoundError("ベンダーデータ")
	default:
		return model.NewVendorFetchError(fmt.Errorf("ベンダーAPIがステータス %d を返しました", status))
	}
}
