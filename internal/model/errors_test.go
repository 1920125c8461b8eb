package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIngestError_Classification(t *testing.T) {
	cause := errors.New("underlying")
	tests := []struct {
		name      string
		err       *IngestError
		wantCode  ErrorCode
		retryable bool
	}{
		{"認証エラー", NewAuthError(cause), ErrCodeAuth, false},
		{"レート制限", NewRateLimitedError(cause), ErrCodeRateLimited, true},
		{"不正ペイロード", NewMalformedPayloadError("dateがない"), ErrCodeMalformedPayload, false},
		{"ストア障害", NewStoreUnavailableError(cause), ErrCodeStoreUnavailable, true},
		{"制約違反", NewInvalidRecordError(cause), ErrCodeInvalidRecord, false},
		{"不正範囲", NewInvalidRangeError("2026-08-20", "2026-08-18"), ErrCodeInvalidRange, false},
		{"データ不存在", NewNotFoundError("daily_summary"), ErrCodeNotFound, false},
		{"ベンダー通信エラー", NewVendorFetchError(cause), ErrCodeVendorFetch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", tt.err.Retryable, tt.retryable)
			}
		})
	}
}

func TestIngestError_ErrorIncludesCode(t *testing.T) {
	err := NewRateLimitedError(errors.New("429 too many requests"))

	msg := err.Error()
	if !strings.Contains(msg, "RATE_LIMITED") {
		t.Errorf("Error() = %q, should contain RATE_LIMITED", msg)
	}
	if !strings.Contains(msg, "429 too many requests") {
		t.Errorf("Error() = %q, should contain cause", msg)
	}
}

func TestIngestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreUnavailableError(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewAuthError(nil)); got != ErrCodeAuth {
		t.Errorf("CodeOf(auth) = %s, want %s", got, ErrCodeAuth)
	}

	// ラップされていても抽出できること
	wrapped := fmt.Errorf("sync failed: %w", NewRateLimitedError(nil))
	if got := CodeOf(wrapped); got != ErrCodeRateLimited {
		t.Errorf("CodeOf(wrapped) = %s, want %s", got, ErrCodeRateLimited)
	}

	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %s, want empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %s, want empty", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewRateLimitedError(nil)) {
		t.Error("RATE_LIMITEDは再試行可能であるべき")
	}
	if !IsRetryable(NewStoreUnavailableError(nil)) {
		t.Error("STORE_UNAVAILABLEは再試行可能であるべき")
	}
	if IsRetryable(NewAuthError(nil)) {
		t.Error("AUTH_ERRORは再試行すべきでない")
	}
	if IsRetryable(NewMalformedPayloadError("bad")) {
		t.Error("MALFORMED_PAYLOADは再試行すべきでない")
	}
	if IsRetryable(NewInvalidRecordError(nil)) {
		t.Error("INVALID_RECORDは再試行すべきでない")
	}

	// IngestError以外は安全側に倒して再試行しない
	if IsRetryable(errors.New("plain")) {
		t.Error("分類不能なエラーは再試行すべきでない")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NewNotFoundError("sleep")) {
		t.Error("NOT_FOUNDを判定できるべき")
	}
	if IsNotFound(NewAuthError(nil)) {
		t.Error("AUTH_ERRORはNOT_FOUNDではない")
	}
}
