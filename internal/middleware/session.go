// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/bookcal/internal/auth"
	"github.com/hitoshi/bookcal/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// emailContextKey はリクエストコンテキストに認証済みメールアドレスを格納するためのキー。
var emailContextKey = contextKey("email")

// CredentialVerifier はセッション資格情報の検証に必要なインターフェース。
// auth.TokenManagerが実装する。
type CredentialVerifier interface {
	Verify(raw string) (string, error)
}

// NewSessionGuard はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
// 認証済みメールアドレスをリクエストコンテキストに注入する。
// ユーザーストアには一切アクセスしない。失敗時は常に401を返す。
func NewSessionGuard(verifier CredentialVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Authorizationヘッダーを取得
			header := r.Header.Get("Authorization")
			if header == "" {
				writeUnauthorized(w, model.ErrCodeMissingCredential)
				return
			}

			// 2. "Bearer <token>" 形式を検証
			raw, ok := bearerToken(header)
			if !ok {
				writeUnauthorized(w, model.ErrCodeMalformedCredential)
				return
			}

			// 3. 署名と有効期限を検証
			email, err := verifier.Verify(raw)
			if err != nil {
				code := model.ErrCodeInvalidOrExpiredCredential
				if errors.Is(err, auth.ErrMalformedCredential) {
					code = model.ErrCodeMalformedCredential
				}
				slog.Warn("session credential rejected",
					slog.String("code", code),
					slog.String("error", err.Error()),
				)
				writeUnauthorized(w, code)
				return
			}

			// 4. 認証済みメールアドレスをコンテキストに注入
			next.ServeHTTP(w, r.WithContext(ContextWithEmail(r.Context(), email)))
		})
	}
}

// bearerToken は "Bearer <token>" からトークン部分を取り出す。
// スキーム名の大文字小文字は区別しない。
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func writeUnauthorized(w http.ResponseWriter, code string) {
	WriteErrorResponse(w, http.StatusUnauthorized, model.NewCredentialError(code))
}

// EmailFromContext はリクエストコンテキストから認証済みメールアドレスを取得する。
// セッションガードを通過したリクエストでのみ有効。
func EmailFromContext(ctx context.Context) (string, error) {
	email, ok := ctx.Value(emailContextKey).(string)
	if !ok || email == "" {
		return "", fmt.Errorf("email not found in context")
	}
	return email, nil
}

// ContextWithEmail はコンテキストにメールアドレスを注入する。
// ロギングミドルウェアの記録対象にも反映する。
func ContextWithEmail(ctx context.Context, email string) context.Context {
	if entry := logEntryFromContext(ctx); entry != nil {
		entry.setEmail(email)
	}
	return context.WithValue(ctx, emailContextKey, email)
}
