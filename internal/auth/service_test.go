package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/bookcal/internal/model"
	"github.com/hitoshi/bookcal/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	upsertFn      func(ctx context.Context, user *model.User) error
	upsertCalls   int
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Upsert(ctx context.Context, user *model.User) error {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, user)
	}
	return nil
}

type mockOAuthProvider struct {
	authCodeURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) AuthCodeURL(state string) string {
	if m.authCodeURLFn != nil {
		return m.authCodeURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

type mockLoginRecorder struct {
	results []string
}

func (m *mockLoginRecorder) RecordLogin(result string) {
	m.results = append(m.results, result)
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)
var _ LoginRecorder = (*mockLoginRecorder)(nil)

// --- ヘルパー ---

func successfulProvider() *mockOAuthProvider {
	return &mockOAuthProvider{
		authCodeURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + url.QueryEscape(state)
		},
		exchangeCodeFn: func(_ context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				Email:       "asha@example.com",
				Name:        "Asha",
				AccessToken: "provider-token-" + code,
			}, nil
		},
	}
}

func newTestService(provider OAuthProvider, repo repository.UserRepository, rec LoginRecorder) (*Service, *TokenManager) {
	tokens := NewTokenManager(TokenConfig{Secret: testSecret})
	return NewService(provider, repo, tokens, rec), tokens
}

func validState(t *testing.T, tokens *TokenManager) string {
	t.Helper()
	state, err := tokens.IssueState()
	if err != nil {
		t.Fatalf("IssueState() error = %v", err)
	}
	return state
}

// --- テスト ---

func TestBeginAuth_ReturnsURLWithVerifiableState(t *testing.T) {
	svc, tokens := newTestService(successfulProvider(), &mockUserRepo{}, nil)

	raw, err := svc.BeginAuth()
	if err != nil {
		t.Fatalf("BeginAuth() error = %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	if err := tokens.VerifyState(u.Query().Get("state")); err != nil {
		t.Errorf("embedded state should verify: %v", err)
	}
}

func TestCompleteAuth_Success_UpsertsAndIssuesCredential(t *testing.T) {
	var saved *model.User
	repo := &mockUserRepo{
		upsertFn: func(_ context.Context, user *model.User) error {
			saved = user
			return nil
		},
	}
	rec := &mockLoginRecorder{}
	svc, tokens := newTestService(successfulProvider(), repo, rec)
	fixed := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	token, err := svc.CompleteAuth(context.Background(), "abc", validState(t, tokens))
	if err != nil {
		t.Fatalf("CompleteAuth() error = %v", err)
	}

	if saved == nil {
		t.Fatal("expected user to be upserted")
	}
	if saved.Email != "asha@example.com" || saved.Name != "Asha" {
		t.Errorf("saved user = %+v", saved)
	}
	if saved.AccessToken != "provider-token-abc" {
		t.Errorf("access token = %q, want %q", saved.AccessToken, "provider-token-abc")
	}
	if !saved.UpdatedAt.Equal(fixed) {
		t.Errorf("updated_at = %v, want %v", saved.UpdatedAt, fixed)
	}

	email, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued credential should verify: %v", err)
	}
	if email != "asha@example.com" {
		t.Errorf("email = %q, want %q", email, "asha@example.com")
	}
	if len(rec.results) != 1 || rec.results[0] != "success" {
		t.Errorf("login metrics = %v", rec.results)
	}
}

func TestCompleteAuth_RepeatedLogin_OverwritesToken(t *testing.T) {
	store := map[string]*model.User{}
	repo := &mockUserRepo{
		upsertFn: func(_ context.Context, user *model.User) error {
			copied := *user
			store[user.Email] = &copied
			return nil
		},
	}
	svc, tokens := newTestService(successfulProvider(), repo, nil)

	if _, err := svc.CompleteAuth(context.Background(), "first", validState(t, tokens)); err != nil {
		t.Fatalf("first login error = %v", err)
	}
	if _, err := svc.CompleteAuth(context.Background(), "second", validState(t, tokens)); err != nil {
		t.Fatalf("second login error = %v", err)
	}

	if len(store) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(store))
	}
	if got := store["asha@example.com"].AccessToken; got != "provider-token-second" {
		t.Errorf("access token = %q, want latest", got)
	}
}

func TestCompleteAuth_ExchangeFailure_DoesNotTouchStore(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(context.Context, string) (*OAuthUserInfo, error) {
			return nil, ErrAuthExchangeFailed
		},
	}
	repo := &mockUserRepo{}
	rec := &mockLoginRecorder{}
	svc, tokens := newTestService(provider, repo, rec)

	token, err := svc.CompleteAuth(context.Background(), "invalid-code", validState(t, tokens))
	if !errors.Is(err, ErrAuthExchangeFailed) {
		t.Fatalf("error = %v, want ErrAuthExchangeFailed", err)
	}
	if token != "" {
		t.Errorf("expected empty token, got %q", token)
	}
	if repo.upsertCalls != 0 {
		t.Errorf("Upsert called %d times, want 0", repo.upsertCalls)
	}
	if len(rec.results) != 1 || rec.results[0] != "failure" {
		t.Errorf("login metrics = %v", rec.results)
	}
}

func TestCompleteAuth_IdentityLookupFailure_DoesNotTouchStore(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(context.Context, string) (*OAuthUserInfo, error) {
			return nil, ErrIdentityLookupFailed
		},
	}
	repo := &mockUserRepo{}
	svc, tokens := newTestService(provider, repo, nil)

	_, err := svc.CompleteAuth(context.Background(), "code", validState(t, tokens))
	if !errors.Is(err, ErrIdentityLookupFailed) {
		t.Fatalf("error = %v, want ErrIdentityLookupFailed", err)
	}
	if repo.upsertCalls != 0 {
		t.Errorf("Upsert called %d times, want 0", repo.upsertCalls)
	}
}

func TestCompleteAuth_InvalidState_SkipsExchange(t *testing.T) {
	exchanged := false
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(context.Context, string) (*OAuthUserInfo, error) {
			exchanged = true
			return &OAuthUserInfo{Email: "x@example.com"}, nil
		},
	}
	repo := &mockUserRepo{}
	svc, _ := newTestService(provider, repo, nil)

	_, err := svc.CompleteAuth(context.Background(), "code", "forged-state")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("error = %v, want ErrInvalidState", err)
	}
	if exchanged {
		t.Error("exchange must not run when state is invalid")
	}
	if repo.upsertCalls != 0 {
		t.Errorf("Upsert called %d times, want 0", repo.upsertCalls)
	}
}

func TestCompleteAuth_UpsertFailure(t *testing.T) {
	dbErr := errors.New("connection refused")
	repo := &mockUserRepo{
		upsertFn: func(context.Context, *model.User) error { return dbErr },
	}
	svc, tokens := newTestService(successfulProvider(), repo, nil)

	_, err := svc.CompleteAuth(context.Background(), "code", validState(t, tokens))
	if !errors.Is(err, dbErr) {
		t.Fatalf("error = %v, want wrapped store error", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to save user: ") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestCurrentUser_StoreFailure(t *testing.T) {
	dbErr := errors.New("connection refused")
	repo := &mockUserRepo{
		findByEmailFn: func(context.Context, string) (*model.User, error) { return nil, dbErr },
	}
	svc, _ := newTestService(successfulProvider(), repo, nil)

	_, err := svc.CurrentUser(context.Background(), "asha@example.com")
	if !errors.Is(err, dbErr) {
		t.Fatalf("error = %v, want wrapped store error", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to find user: ") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestCurrentUser(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			if email == "asha@example.com" {
				return &model.User{Email: email, Name: "Asha", AccessToken: "secret"}, nil
			}
			return nil, nil
		},
	}
	svc, _ := newTestService(successfulProvider(), repo, nil)

	user, err := svc.CurrentUser(context.Background(), "asha@example.com")
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user.Name != "Asha" {
		t.Errorf("name = %q, want %q", user.Name, "Asha")
	}

	_, err = svc.CurrentUser(context.Background(), "ghost@example.com")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthenticatedUser {
		t.Errorf("error = %v, want UNAUTHENTICATED_USER", err)
	}
}
