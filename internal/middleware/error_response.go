package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/fitlog/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, code string, message string, retryable bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	})
}

// WriteIngestError はIngestErrorをHTTPステータスに対応させてレスポンスを書き込む。
// IngestError以外のエラーは内部エラーとして扱う。
func WriteIngestError(w http.ResponseWriter, err error) {
	var ie *model.IngestError
	if !errors.As(err, &ie) {
		WriteInternalServerError(w)
		return
	}

	status := http.StatusInternalServerError
	switch ie.Code {
	case model.ErrCodeInvalidRange, model.ErrCodeMalformedPayload, model.ErrCodeInvalidRecord:
		status = http.StatusBadRequest
	case model.ErrCodeNotFound:
		status = http.StatusNotFound
	case model.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	case model.ErrCodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	case model.ErrCodeAuth:
		status = http.StatusBadGateway
	}

	WriteErrorResponse(w, status, string(ie.Code), ie.Message, ie.Retryable)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、利用者には一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "内部エラーが発生しました。", false)
}
