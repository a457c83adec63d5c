// Package auth はGoogle OAuthによるログインとセッション資格情報の発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bookcal/internal/model"
	"github.com/hitoshi/bookcal/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	Email       string
	Name        string
	AccessToken string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// AuthCodeURL はOAuth認証URLを生成する。
	AuthCodeURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// LoginRecorder はログイン結果を記録する。
type LoginRecorder interface {
	RecordLogin(result string)
}

type noopLoginRecorder struct{}

func (noopLoginRecorder) RecordLogin(string) {}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	userRepo repository.UserRepository
	tokens   *TokenManager
	metrics  LoginRecorder
	now      func() time.Time
}

// NewService はServiceを生成する。metricsはnilを許容する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	tokens *TokenManager,
	metrics LoginRecorder,
) *Service {
	if metrics == nil {
		metrics = noopLoginRecorder{}
	}
	return &Service{
		oauth:    oauth,
		userRepo: userRepo,
		tokens:   tokens,
		metrics:  metrics,
		now:      time.Now,
	}
}

// BeginAuth は署名付きstateを埋め込んだOAuth認証URLを返す。
func (s *Service) BeginAuth() (string, error) {
	state, err := s.tokens.IssueState()
	if err != nil {
		return "", fmt.Errorf("failed to issue oauth state: %w", err)
	}
	return s.oauth.AuthCodeURL(state), nil
}

// CompleteAuth はOAuthコールバックを処理し、セッション資格情報を発行する。
// ユーザーレコードは名前とトークンを無条件に上書きする。
// レコードの更新より前に失敗した場合、ユーザーストアには一切触れない。
func (s *Service) CompleteAuth(ctx context.Context, code, state string) (string, error) {
	token, err := s.completeAuth(ctx, code, state)
	if err != nil {
		s.metrics.RecordLogin("failure")
		return "", err
	}
	s.metrics.RecordLogin("success")
	return token, nil
}

func (s *Service) completeAuth(ctx context.Context, code, state string) (string, error) {
	// 1. stateを検証
	if err := s.tokens.VerifyState(state); err != nil {
		slog.Warn("oauth state verification failed", slog.String("error", err.Error()))
		return "", err
	}

	// 2. 認可コードをトークンに交換し、ユーザー情報を取得
	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		return "", err
	}

	// 3. ユーザーレコードを作成または上書き
	now := s.now()
	user := &model.User{
		Email:       info.Email,
		Name:        info.Name,
		AccessToken: info.AccessToken,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return "", fmt.Errorf("failed to save user: %w", err)
	}

	// 4. セッション資格情報を発行
	token, err := s.tokens.Issue(info.Email)
	if err != nil {
		return "", fmt.Errorf("failed to issue session credential: %w", err)
	}

	slog.Info("user logged in", slog.String("email", info.Email))
	return token, nil
}

// CurrentUser はセッションに束縛されたユーザーを返す。
// レコードが無い場合はUnauthenticatedUserエラーを返す。
func (s *Service) CurrentUser(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthenticatedUserError()
	}
	return user, nil
}
