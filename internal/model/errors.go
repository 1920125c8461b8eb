// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorCode は取り込みパイプラインのエラー分類コード。
type ErrorCode string

// 定義済みエラーコード
const (
	// ErrCodeAuth はベンダーが認証情報を拒否したことを示す。現在のサイクルは中断し、次のティックで再試行する。
	ErrCodeAuth ErrorCode = "AUTH_ERROR"
	// ErrCodeRateLimited はベンダーのスロットリングを示す。同一サイクル内でバックオフ付きの再試行を行う。
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeMalformedPayload はノーマライザがペイロードを解釈できないことを示す。該当レコードのみスキップする。
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"
	// ErrCodeStoreUnavailable はストア接続の一時的な障害を示す。バックオフ付きで再試行する。
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeInvalidRecord は制約違反を示す。ノーマライザのバグであり再試行しない。
	ErrCodeInvalidRecord ErrorCode = "INVALID_RECORD"
	// ErrCodeInvalidRange はバックフィルの日付範囲が不正（end < start）であることを示す。
	ErrCodeInvalidRange ErrorCode = "INVALID_RANGE"
	// ErrCodeNotFound は指定日のデータがベンダーに存在しないことを示す。失敗ではなくスキップとして扱う。
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeVendorFetch は上記に分類できないベンダー通信エラーを示す。
	ErrCodeVendorFetch ErrorCode = "VENDOR_FETCH_FAILED"
)

// IngestError は取り込みパイプラインの統一エラーフォーマット。
// 分類コードと再試行可否を保持し、リトライ戦略の判定に使用される。
type IngestError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Err       error
}

// Error はerrorインターフェースを実装する。
func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap はラップされた原因エラーを返す。
func (e *IngestError) Unwrap() error {
	return e.Err
}

// NewAuthError はベンダー認証エラーを生成する。
func NewAuthError(err error) *IngestError {
	return &IngestError{
		Code:      ErrCodeAuth,
		Message:   "ベンダーが認証情報を拒否しました",
		Retryable: false,
		Err:       err,
	}
}

// NewRateLimitedError はベンダースロットリングエラーを生成する。
func NewRateLimitedError(err error) *IngestError {
	return &IngestError{
		Code:      ErrCodeRateLimited,
		Message:   "ベンダーにレート制限されました",
		Retryable: true,
		Err:       err,
	}
}

// NewMalformedPayloadError はペイロード解釈エラーを生成する。
func NewMalformedPayloadError(reason string) *IngestError {
	return &IngestError{
		Code:      ErrCodeMalformedPayload,
		Message:   fmt.Sprintf("ペイロードを解釈できません: %s", reason),
		Retryable: false,
	}
}

// NewStoreUnavailableError はストア接続エラーを生成する。
func NewStoreUnavailableError(err error) *IngestError {
	return &IngestError{
		Code:      ErrCodeStoreUnavailable,
		Message:   "ストアへの接続に失敗しました",
		Retryable: true,
		Err:       err,
	}
}

// NewInvalidRecordError は制約違反エラーを生成する。
// ノーマライザのバグを示すため再試行しない。
func NewInvalidRecordError(err error) *IngestError {
	return &IngestError{
		Code:      ErrCodeInvalidRecord,
		Message:   "レコードが制約に違反しています",
		Retryable: false,
		Err:       err,
	}
}

// NewInvalidRangeError は日付範囲エラーを生成する。
func NewInvalidRangeError(start, end string) *IngestError {
	return &IngestError{
		Code:      ErrCodeInvalidRange,
		Message:   fmt.Sprintf("終了日が開始日より前です: start=%s end=%s", start, end),
		Retryable: false,
	}
}

// NewNotFoundError は指定日のデータ不存在を生成する。
func NewNotFoundError(what string) *IngestError {
	return &IngestError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("ベンダーにデータが存在しません: %s", what),
		Retryable: false,
	}
}

// NewVendorFetchError は分類不能なベンダー通信エラーを生成する。
func NewVendorFetchError(err error) *IngestError {
	return &IngestError{
		Code:      ErrCodeVendorFetch,
		Message:   "ベンダーAPIの呼び出しに失敗しました",
		Retryable: true,
		Err:       err,
	}
}

// CodeOf はエラーからErrorCodeを抽出する。IngestErrorでない場合は空文字を返す。
func CodeOf(err error) ErrorCode {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

// IsRetryable はエラーが再試行可能かを判定する。
// IngestErrorでないエラーは安全側に倒して再試行しない。
func IsRetryable(err error) bool {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Retryable
	}
	return false
}

// IsNotFound はエラーがデータ不存在かを判定する。
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}
