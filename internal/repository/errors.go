package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"

	"github.com/hitoshi/fitlog/internal/model"
)

// classifyStoreError はドライバエラーを取り込みパイプラインのエラー分類に変換する。
//
//   - SQLSTATEクラス23（整合性制約違反）はノーマライザのバグを意味するため
//     InvalidRecordとして再試行しない。
//   - 接続系のエラー（SQLSTATEクラス08/57、driver.ErrBadConn、ネットワークエラー）は
//     StoreUnavailableとして再試行可能。
//   - それ以外も一時障害とみなしStoreUnavailableに倒す。
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	// コンテキストのキャンセルはそのまま伝播する
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23": // integrity_constraint_violation
			return model.NewInvalidRecordError(err)
		case "08", "57": // connection_exception, operator_intervention
			return model.NewStoreUnavailableError(err)
		}
		// 構文エラー等もここに落ちるが、リトライは上限付きのため許容する
		return model.NewStoreUnavailableError(err)
	}

	if errors.Is(err, driver.ErrBadConn) {
		return model.NewStoreUnavailableError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return model.NewStoreUnavailableError(err)
	}

	return model.NewStoreUnavailableError(err)
}
