package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/bookcal/internal/auth"
	"github.com/hitoshi/bookcal/internal/model"
)

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
// 認証パッケージのセンチネルエラーをAPIErrorに変換する。
type AuthServiceAdapter struct {
	svc *auth.Service
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc}
}

// BeginAuth はOAuth認証URLを返す。
func (a *AuthServiceAdapter) BeginAuth() (string, error) {
	return a.svc.BeginAuth()
}

// CompleteAuth はOAuthコールバックを処理しセッション資格情報を返す。
func (a *AuthServiceAdapter) CompleteAuth(ctx context.Context, code, state string) (string, error) {
	token, err := a.svc.CompleteAuth(ctx, code, state)
	if err != nil {
		return "", toAuthAPIError(err)
	}
	return token, nil
}

// CurrentUser はセッションに束縛されたユーザーを返す。
func (a *AuthServiceAdapter) CurrentUser(ctx context.Context, email string) (*model.User, error) {
	return a.svc.CurrentUser(ctx, email)
}

// toAuthAPIError は認証フローのエラーをAPIErrorに変換する。
// 該当しないエラーはそのまま返し、内部エラーとして扱わせる。
func toAuthAPIError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidState):
		return &model.APIError{Code: model.ErrCodeInvalidState, Message: "Invalid state parameter"}
	case errors.Is(err, auth.ErrAuthExchangeFailed):
		return &model.APIError{Code: model.ErrCodeAuthExchangeFailed, Message: "Authentication failed"}
	case errors.Is(err, auth.ErrIdentityLookupFailed):
		return &model.APIError{Code: model.ErrCodeIdentityLookupFailed, Message: "Failed to fetch user information"}
	default:
		slog.Error("auth callback failed", slog.String("error", err.Error()))
		return err
	}
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*AuthServiceAdapter)(nil)
