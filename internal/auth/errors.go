package auth

import "errors"

var (
	// ErrAuthExchangeFailed はプロバイダーが認可コードを拒否したことを示す。
	ErrAuthExchangeFailed = errors.New("authorization code exchange failed")
	// ErrIdentityLookupFailed はプロバイダーからユーザー情報を取得できなかったことを示す。
	ErrIdentityLookupFailed = errors.New("identity lookup failed")
	// ErrInvalidState はOAuthのstateパラメータが検証できなかったことを示す。
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrMalformedCredential はセッション資格情報の形式が不正であることを示す。
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrInvalidOrExpiredCredential は署名検証の失敗または有効期限切れを示す。
	ErrInvalidOrExpiredCredential = errors.New("invalid or expired credential")
)
