package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 検証エラーの場合はFieldに対象フィールド名を持つ。
type APIError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
	Field   string // 検証エラーの対象フィールド
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthExchangeFailed         = "AUTH_EXCHANGE_FAILED"
	ErrCodeIdentityLookupFailed       = "IDENTITY_LOOKUP_FAILED"
	ErrCodeInvalidState               = "INVALID_STATE"
	ErrCodeMissingCredential          = "MISSING_CREDENTIAL"
	ErrCodeMalformedCredential        = "MALFORMED_CREDENTIAL"
	ErrCodeInvalidOrExpiredCredential = "INVALID_OR_EXPIRED_CREDENTIAL"
	ErrCodeValidation                 = "VALIDATION_ERROR"
	ErrCodeUnauthenticatedUser        = "UNAUTHENTICATED_USER"
	ErrCodeSlotConflict               = "SLOT_CONFLICT"
	ErrCodeTokenExpired               = "TOKEN_EXPIRED"
	ErrCodeAccessDenied               = "ACCESS_DENIED"
	ErrCodeUpstream                   = "UPSTREAM_ERROR"
	ErrCodeRateLimited                = "RATE_LIMITED"
	ErrCodeInternal                   = "INTERNAL_ERROR"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: reason,
		Field:   field,
	}
}

// NewUnauthenticatedUserError はユーザー未登録またはトークン未保持のエラーを生成する。
func NewUnauthenticatedUserError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthenticatedUser,
		Message: "User not authenticated",
	}
}

// NewSlotConflictError は指定枠に既存の予定がある場合のエラーを生成する。
func NewSlotConflictError() *APIError {
	return &APIError{
		Code:    ErrCodeSlotConflict,
		Message: "An event already exists for the specified date and time.",
	}
}

// NewTokenExpiredError はプロバイダーがトークンを拒否した場合のエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:    ErrCodeTokenExpired,
		Message: "Authentication failed. Please re-authenticate with Google.",
	}
}

// NewAccessDeniedError はカレンダーへの権限が無い場合のエラーを生成する。
func NewAccessDeniedError() *APIError {
	return &APIError{
		Code:    ErrCodeAccessDenied,
		Message: "Calendar access denied. Please check permissions.",
	}
}

// NewUpstreamError はプロバイダー呼び出しの分類できない失敗を表すエラーを生成する。
// messageは操作ごとの利用者向けメッセージ。
func NewUpstreamError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeUpstream,
		Message: message,
	}
}

// NewCredentialError はセッション資格情報の検証エラーを生成する。
func NewCredentialError(code string) *APIError {
	return &APIError{
		Code:    code,
		Message: "Unauthorized",
	}
}
