// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/bookcal/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	BeginAuth() (string, error)
	CompleteAuth(ctx context.Context, code, state string) (string, error)
	CurrentUser(ctx context.Context, email string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// ClientURL はログイン完了後にリダイレクトするフロントエンドのURL。
	ClientURL string
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

type loginResponse struct {
	URL string `json:"url"`
}

type meResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login はGoogle OAuthの認証URLを返す。
// GET /auth/google
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.service.BeginAuth()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{URL: authURL})
}

// Callback はOAuthコールバックを処理し、資格情報付きでフロントエンドにリダイレクトする。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	code := q.Get("code")
	if code == "" {
		handleServiceError(w, r, model.NewValidationError("code", "Authorization code is missing"))
		return
	}

	token, err := h.service.CompleteAuth(r.Context(), code, q.Get("state"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	slog.Info("redirecting after login", slog.String("client_url", h.config.ClientURL))
	http.Redirect(w, r, h.redirectURL(token), http.StatusTemporaryRedirect)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	user, err := h.service.CurrentUser(r.Context(), email)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{Email: user.Email, Name: user.Name})
}

func (h *AuthHandler) redirectURL(token string) string {
	return strings.TrimRight(h.config.ClientURL, "/") + "/auth-redirect?token=" + url.QueryEscape(token)
}
