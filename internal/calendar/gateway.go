// Package calendar はGoogle Calendar APIへのアクセスを提供する。
//
// GoogleGateway は予定データを保持せず、呼び出しごとにユーザーのアクセストークンから
// calendar.Serviceを組み立てる。プロバイダーのエラーは分類せずにラップして返し、
// 分類はClassifyで呼び出し側が行う。
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hitoshi/bookcal/internal/model"
)

const (
	// DefaultCalendarID は操作対象のカレンダー。
	DefaultCalendarID = "primary"
	// DefaultTimeout はプロバイダー呼び出し1回あたりのタイムアウト。
	DefaultTimeout = 10 * time.Second
	// DefaultBreakerIdleTTL は使われていないブレーカーを破棄するまでの時間。
	DefaultBreakerIdleTTL = 10 * time.Minute
)

var (
	// ErrCircuitOpen はサーキットブレーカーが開いているため呼び出しを行わなかったことを示す。
	ErrCircuitOpen = errors.New("calendar provider circuit open")
	// ErrMissingToken はアクセストークンが空の場合に返される。
	ErrMissingToken = errors.New("calendar access token is empty")
)

// Observer はプロバイダー呼び出しの結果を受け取る。
// metrics.Collectorが実装する。
type Observer interface {
	ObserveCalendarCall(operation string, duration time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveCalendarCall(string, time.Duration, error) {}

// BreakerConfig はサーキットブレーカーの設定。
type BreakerConfig struct {
	// MaxRequests は半開状態で許可するリクエスト数。
	MaxRequests uint32
	// Interval は閉状態でカウントをリセットする周期。0ならリセットしない。
	Interval time.Duration
	// Timeout は開状態から半開状態へ移るまでの時間。
	Timeout time.Duration
	// ConsecutiveFailures はこの回数連続で失敗すると開状態になる。
	ConsecutiveFailures uint32
	// IdleTTL はトークンごとのブレーカーを破棄するまでの無通信時間。
	IdleTTL time.Duration
}

// Config はGoogleGatewayの設定。
type Config struct {
	CalendarID string
	Timeout    time.Duration
	// Endpoint はAPIのベースURL。空ならGoogleの既定値を使う。
	Endpoint string
	// HTTPClient はoauth2トランスポートの下で使うクライアント。
	HTTPClient *http.Client
	// Location は終日予定の日付を解釈するタイムゾーン。
	Location *time.Location
	Breaker  BreakerConfig
	Observer Observer
}

// DefaultConfig は既定値を持つConfigを返す。
func DefaultConfig() Config {
	return Config{
		CalendarID: DefaultCalendarID,
		Timeout:    DefaultTimeout,
		Location:   time.UTC,
		Breaker: BreakerConfig{
			MaxRequests:         1,
			Interval:            60 * time.Second,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
			IdleTTL:             DefaultBreakerIdleTTL,
		},
	}
}

// Window は予定一覧の取得範囲。
// Maxがゼロ値の場合は上限なし、Limitが0以下の場合は件数制限なし。
type Window struct {
	Min   time.Time
	Max   time.Time
	Limit int
}

// GoogleGateway はGoogle Calendar APIのゲートウェイ。
type GoogleGateway struct {
	cfg      Config
	breakers *breakerSet
	observer Observer
}

// NewGoogleGateway は新しいGoogleGatewayを生成する。
// ゼロ値のフィールドはDefaultConfigの値で補完する。
func NewGoogleGateway(cfg Config) *GoogleGateway {
	def := DefaultConfig()
	if cfg.CalendarID == "" {
		cfg.CalendarID = def.CalendarID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.Breaker.ConsecutiveFailures == 0 {
		cfg.Breaker = def.Breaker
	}

	observer := cfg.Observer
	if observer == nil {
		observer = noopObserver{}
	}

	return &GoogleGateway{
		cfg:      cfg,
		breakers: newBreakerSet(cfg.Breaker),
		observer: observer,
	}
}

// countsAsSuccess はブレーカーの失敗として数えないエラーを判定する。
// 4xx応答と呼び出し元のキャンセルはプロバイダーの障害ではない。
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code < http.StatusInternalServerError
	}
	return false
}

// ListEvents は指定範囲の単発予定を開始時刻の昇順で返す。
func (g *GoogleGateway) ListEvents(ctx context.Context, token string, w Window) ([]model.CalendarEvent, error) {
	res, err := g.execute(ctx, "list", token, func(ctx context.Context, svc *gcal.Service) (any, error) {
		call := svc.Events.List(g.cfg.CalendarID).
			SingleEvents(true).
			OrderBy("startTime").
			TimeMin(w.Min.Format(time.RFC3339))
		if !w.Max.IsZero() {
			call = call.TimeMax(w.Max.Format(time.RFC3339))
		}
		if w.Limit > 0 {
			call = call.MaxResults(int64(w.Limit))
		}
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	items := res.(*gcal.Events).Items
	events := make([]model.CalendarEvent, 0, len(items))
	for _, item := range items {
		events = append(events, g.fromAPIEvent(item))
	}
	return events, nil
}

// InsertEvent は予定を作成し、プロバイダーが採番したIDとリンクを含む予定を返す。
func (g *GoogleGateway) InsertEvent(ctx context.Context, token string, event model.CalendarEvent) (model.CalendarEvent, error) {
	res, err := g.execute(ctx, "insert", token, func(ctx context.Context, svc *gcal.Service) (any, error) {
		return svc.Events.Insert(g.cfg.CalendarID, toAPIEvent(event)).Context(ctx).Do()
	})
	if err != nil {
		return model.CalendarEvent{}, err
	}
	return g.fromAPIEvent(res.(*gcal.Event)), nil
}

// UpdateEvent は既存の予定のタイトル・説明・開始・終了を上書きする。
func (g *GoogleGateway) UpdateEvent(ctx context.Context, token, eventID string, event model.CalendarEvent) error {
	_, err := g.execute(ctx, "update", token, func(ctx context.Context, svc *gcal.Service) (any, error) {
		return svc.Events.Update(g.cfg.CalendarID, eventID, toAPIEvent(event)).Context(ctx).Do()
	})
	return err
}

// DeleteEvent は予定を削除する。
func (g *GoogleGateway) DeleteEvent(ctx context.Context, token, eventID string) error {
	_, err := g.execute(ctx, "delete", token, func(ctx context.Context, svc *gcal.Service) (any, error) {
		return nil, svc.Events.Delete(g.cfg.CalendarID, eventID).Context(ctx).Do()
	})
	return err
}

// execute はタイムアウトとトークン単位のサーキットブレーカーの下でfnを実行し、
// 結果をObserverへ通知する。
func (g *GoogleGateway) execute(
	ctx context.Context,
	operation, token string,
	fn func(ctx context.Context, svc *gcal.Service) (any, error),
) (any, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	res, err := g.breakers.get(token).Execute(func() (any, error) {
		svc, err := g.service(ctx, token)
		if err != nil {
			return nil, err
		}
		return fn(ctx, svc)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		err = fmt.Errorf("calendar %s: %w: %w", operation, ErrCircuitOpen, err)
	case err != nil:
		err = fmt.Errorf("calendar %s failed: %w", operation, err)
	}

	g.observer.ObserveCalendarCall(operation, time.Since(start), err)
	return res, err
}

// service はアクセストークン付きのcalendar.Serviceを生成する。
func (g *GoogleGateway) service(ctx context.Context, token string) (*gcal.Service, error) {
	base := g.cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), src)

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.cfg.Endpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, nil
}

func toAPIEvent(ev model.CalendarEvent) *gcal.Event {
	return &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &gcal.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
	}
}

func (g *GoogleGateway) fromAPIEvent(e *gcal.Event) model.CalendarEvent {
	ev := model.CalendarEvent{
		ID:          e.Id,
		Summary:     e.Summary,
		Description: e.Description,
		HTMLLink:    e.HtmlLink,
		Status:      e.Status,
	}
	ev.Start, ev.TimeZone = g.parseEventTime(e.Start)
	ev.End, _ = g.parseEventTime(e.End)
	return ev
}

// parseEventTime はEventDateTimeを時刻に変換する。
// 終日予定はその日の0時として扱う。解釈できない場合はゼロ値を返す。
func (g *GoogleGateway) parseEventTime(dt *gcal.EventDateTime) (time.Time, string) {
	if dt == nil {
		return time.Time{}, ""
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, dt.TimeZone
		}
		return t, dt.TimeZone
	}
	if dt.Date != "" {
		loc := g.cfg.Location
		if dt.TimeZone != "" {
			if l, err := time.LoadLocation(dt.TimeZone); err == nil {
				loc = l
			}
		}
		t, err := time.ParseInLocation("2006-01-02", dt.Date, loc)
		if err != nil {
			return time.Time{}, dt.TimeZone
		}
		return t, dt.TimeZone
	}
	return time.Time{}, dt.TimeZone
}
