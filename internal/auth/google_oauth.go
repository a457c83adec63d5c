package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
)

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なエンドポイント
	AuthURL        string
	TokenURL       string
	PeopleEndpoint string
	HTTPClient     *http.Client
}

// GoogleOAuthProvider はGoogle OAuth 2.0による認証とPeople APIによる本人確認を提供する。
type GoogleOAuthProvider struct {
	oauth  *oauth2.Config
	config GoogleOAuthConfig
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
// スコープはプロフィール、メールアドレス、カレンダーの読み書き。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	endpoint := google.Endpoint
	if config.AuthURL != "" {
		endpoint.AuthURL = config.AuthURL
	}
	if config.TokenURL != "" {
		endpoint.TokenURL = config.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &GoogleOAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     endpoint,
			Scopes: []string{
				"openid",
				people.UserinfoProfileScope,
				people.UserinfoEmailScope,
				calendar.CalendarScope,
			},
		},
		config: config,
	}
}

// AuthCodeURL はGoogle OAuthの認証URLを生成する。
func (p *GoogleOAuthProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode は認可コードをアクセストークンに交換し、People APIでユーザー情報を取得する。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", ErrAuthExchangeFailed)
	}
	ctx = p.clientContext(ctx)

	// 1. 認可コードをアクセストークンに交換
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", ErrAuthExchangeFailed)
	}

	// 2. アクセストークンでユーザー情報を取得
	email, name, err := p.lookupIdentity(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityLookupFailed, err)
	}

	return &OAuthUserInfo{
		Email:       email,
		Name:        name,
		AccessToken: tok.AccessToken,
	}, nil
}

// lookupIdentity はpeople/meからメールアドレスと表示名を取得する。
// 複数ある場合はprimaryのものを優先する。
func (p *GoogleOAuthProvider) lookupIdentity(ctx context.Context, tok *oauth2.Token) (string, string, error) {
	opts := []option.ClientOption{
		option.WithHTTPClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))),
	}
	if p.config.PeopleEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.config.PeopleEndpoint))
	}

	svc, err := people.NewService(ctx, opts...)
	if err != nil {
		return "", "", fmt.Errorf("failed to create people service: %w", err)
	}

	person, err := svc.People.Get("people/me").
		PersonFields("names,emailAddresses").
		Context(ctx).
		Do()
	if err != nil {
		return "", "", fmt.Errorf("people/me request failed: %w", err)
	}

	email := primaryEmail(person.EmailAddresses)
	if email == "" {
		return "", "", fmt.Errorf("no email address in profile")
	}
	return email, primaryName(person.Names), nil
}

func primaryEmail(addrs []*people.EmailAddress) string {
	var fallback string
	for _, a := range addrs {
		if a == nil || a.Value == "" {
			continue
		}
		if a.Metadata != nil && a.Metadata.Primary {
			return a.Value
		}
		if fallback == "" {
			fallback = a.Value
		}
	}
	return fallback
}

func primaryName(names []*people.Name) string {
	var fallback string
	for _, n := range names {
		if n == nil || n.DisplayName == "" {
			continue
		}
		if n.Metadata != nil && n.Metadata.Primary {
			return n.DisplayName
		}
		if fallback == "" {
			fallback = n.DisplayName
		}
	}
	return fallback
}

// clientContext はoauth2が使うHTTPクライアントをコンテキストに設定する。
func (p *GoogleOAuthProvider) clientContext(ctx context.Context) context.Context {
	if p.config.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.config.HTTPClient)
}

// compile-time interface check
var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
