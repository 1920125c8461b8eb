package ingest

import (
	"context"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
)

const (
	// initialBackoff は指数バックオフの初回遅延（5秒）。
	initialBackoff = 5 * time.Second
	// maxBackoff は指数バックオフの最大遅延（2分）。
	maxBackoff = 2 * time.Minute
)

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回5秒、2倍ずつ増加、最大2分。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// WithRetry はリトライ可能なエラー（レートリミット、ストア一時障害）に限り、
// 指数バックオフを挟んで最大maxRetries回まで操作を再試行する。
// リトライ不可のエラー（認証、ペイロード不正、レコード不正）は即座に返す。
// コンテキストのキャンセルはバックオフ待機を中断する。
func WithRetry(ctx context.Context, maxRetries int, sleep func(time.Duration), op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !model.IsRetryable(err) {
			return err
		}
		if attempt >= maxRetries {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sleep(CalculateBackoff(attempt))
	}
}
