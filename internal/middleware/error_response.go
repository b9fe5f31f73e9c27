package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/ugresearch/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// WriteAPIError はエラーをAPIErrorとして解釈し、コードに応じた
// HTTPステータスでレスポンスを書き込む。APIErrorでない場合は500を返す。
func WriteAPIError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		WriteInternalServerError(w)
		return
	}
	WriteErrorResponse(w, StatusForErrorCode(apiErr.Code), apiErr)
}

// StatusForErrorCode はエラーコードをHTTPステータスコードに変換する。
func StatusForErrorCode(code string) int {
	switch code {
	case model.ErrCodeInvalidCredentials, model.ErrCodeEmailNotConfirmed:
		return http.StatusUnauthorized
	case model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeInvalidToken, model.ErrCodeTokenExpired, model.ErrCodeTokenUsed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeUserNotFound, model.ErrCodeProfileNotFound,
		model.ErrCodePublicationNotFound, model.ErrCodeProjectNotFound:
		return http.StatusNotFound
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
