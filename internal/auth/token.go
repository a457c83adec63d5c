package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer = "bookcal"

	// DefaultSessionTTL はセッション資格情報の有効期間。
	DefaultSessionTTL = 24 * time.Hour
	// stateTTL はOAuthのstateの有効期間。
	stateTTL     = 10 * time.Minute
	stateSubject = "oauth_state"
)

// SessionClaims はセッション資格情報のクレーム。
// プロバイダーのトークンは含めず、メールアドレスのみを持つ。
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenConfig はTokenManagerの設定。
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	// Now は現在時刻を返す。nilならtime.Now。
	Now func() time.Time
}

// TokenManager はHS256で署名したセッション資格情報とOAuthのstateを発行・検証する。
// サーバー側に状態を持たないため失効リストは無い。
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(cfg TokenConfig) *TokenManager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenManager{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
	}
}

// Issue はメールアドレスを束縛したセッション資格情報を発行する。
func (m *TokenManager) Issue(email string) (string, error) {
	if email == "" {
		return "", errors.New("email is required")
	}
	now := m.now()
	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign credential: %w", err)
	}
	return signed, nil
}

// Verify はセッション資格情報を検証し、束縛されたメールアドレスを返す。
// 形式不正はErrMalformedCredential、署名不一致や期限切れはErrInvalidOrExpiredCredentialを返す。
func (m *TokenManager) Verify(raw string) (string, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return "", fmt.Errorf("%w: %w", ErrMalformedCredential, err)
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidOrExpiredCredential, err)
	}
	if claims.Email == "" {
		return "", fmt.Errorf("%w: missing email claim", ErrMalformedCredential)
	}
	return claims.Email, nil
}

// IssueState はコールバックで検証する署名付きのstateを発行する。
func (m *TokenManager) IssueState() (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   stateSubject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// VerifyState はIssueStateで発行したstateを検証する。
func (m *TokenManager) VerifyState(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: empty state", ErrInvalidState)
	}
	_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(stateSubject),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return nil
}

func (m *TokenManager) keyFunc(*jwt.Token) (any, error) {
	return m.secret, nil
}
