// Package scheduling は予約のドメインロジックを提供する。
//
// Engine は入力検証、ユーザーのトークン解決、枠の重複検出を行い、
// 予約をカレンダーイベントとしてゲートウェイ経由で作成・更新・削除する。
// 重複検出と作成はアトミックではないため、同一枠への同時リクエストは両方成功しうる。
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/bookcal/internal/calendar"
	"github.com/hitoshi/bookcal/internal/model"
)

const (
	// SlotDuration は予約1件あたりの長さ。
	SlotDuration = time.Hour
	// DefaultListLimit は一覧で返す予定の最大件数。
	DefaultListLimit = 10

	statusCancelled = "cancelled"
)

// 操作名。メトリクスのラベルとして使う。
const (
	OpCreate = "create"
	OpList   = "list"
	OpUpdate = "update"
	OpCancel = "cancel"
)

// UserFinder はメールアドレスからユーザーを取得する。
// 存在しない場合は(nil, nil)を返す。
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Gateway はカレンダープロバイダーへの操作を定義する。
type Gateway interface {
	ListEvents(ctx context.Context, token string, w calendar.Window) ([]model.CalendarEvent, error)
	InsertEvent(ctx context.Context, token string, event model.CalendarEvent) (model.CalendarEvent, error)
	UpdateEvent(ctx context.Context, token, eventID string, event model.CalendarEvent) error
	DeleteEvent(ctx context.Context, token, eventID string) error
}

// PlainTextChecker は自由入力テキストにマークアップが含まれないことを判定する。
type PlainTextChecker interface {
	IsPlainText(raw string) bool
}

// MetricsRecorder は予約操作の結果を記録する。
type MetricsRecorder interface {
	RecordAppointment(operation, result string)
	RecordSlotConflict()
}

type noopMetrics struct{}

func (noopMetrics) RecordAppointment(string, string) {}
func (noopMetrics) RecordSlotConflict()              {}

type acceptAllText struct{}

func (acceptAllText) IsPlainText(string) bool { return true }

// Config はEngineの設定。
type Config struct {
	// Location は予約の日付と時刻を解釈するタイムゾーン。
	Location *time.Location
	// ListLimit は一覧の最大件数。0以下ならDefaultListLimit。
	ListLimit int
	// Now は現在時刻を返す。nilならtime.Now。
	Now func() time.Time
}

// Engine は予約操作のサービス層。
type Engine struct {
	users     UserFinder
	gateway   Gateway
	metrics   MetricsRecorder
	validate  *validator.Validate

	loc       *time.Location
	listLimit int
	now       func() time.Time
}

// NewEngine はEngineの新しいインスタンスを生成する。
// textとmetricsはnilを許容する。
func NewEngine(users UserFinder, gateway Gateway, text PlainTextChecker, metrics MetricsRecorder, cfg Config) *Engine {
	if text == nil {
		text = acceptAllText{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	limit := cfg.ListLimit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		users:     users,
		gateway:   gateway,
		metrics:   metrics,
		validate:  newValidator(text),
		loc:       loc,
		listLimit: limit,
		now:       now,
	}
}

// Create は予約を作成する。
// 検証、ユーザー解決、重複検出、イベント作成の順に処理する。
func (e *Engine) Create(ctx context.Context, email string, req model.AppointmentRequest) (*model.Booking, error) {
	booking, err := e.create(ctx, email, req)
	e.record(OpCreate, err)
	return booking, err
}

func (e *Engine) create(ctx context.Context, email string, req model.AppointmentRequest) (*model.Booking, error) {
	event, err := e.buildEvent(req)
	if err != nil {
		return nil, err
	}

	user, err := e.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := e.checkConflict(ctx, user.AccessToken, event.Start, event.End, ""); err != nil {
		return nil, classifyGatewayError(err, "Failed to create event")
	}

	created, err := e.gateway.InsertEvent(ctx, user.AccessToken, event)
	if err != nil {
		slog.Error("failed to insert calendar event",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, classifyGatewayError(err, "Failed to create event")
	}

	slog.Info("appointment created",
		slog.String("email", email),
		slog.String("event_id", created.ID),
		slog.Time("start", event.Start),
	)

	return &model.Booking{
		EventID: created.ID,
		Link:    created.HTMLLink,
		Event:   created,
	}, nil
}

// List は現在時刻以降の予定を開始時刻の昇順で最大ListLimit件返す。
func (e *Engine) List(ctx context.Context, email string) ([]model.CalendarEvent, error) {
	events, err := e.list(ctx, email)
	e.record(OpList, err)
	return events, err
}

func (e *Engine) list(ctx context.Context, email string) ([]model.CalendarEvent, error) {
	user, err := e.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}

	events, err := e.gateway.ListEvents(ctx, user.AccessToken, calendar.Window{
		Min:   e.now(),
		Limit: e.listLimit,
	})
	if err != nil {
		slog.Error("failed to list calendar events",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamError("Failed to fetch events")
	}
	return events, nil
}

// Update は既存の予定のタイトル・説明・開始・終了を上書きする。
// 新しい枠が自分以外の予定と重なる場合はSlotConflictを返す。
func (e *Engine) Update(ctx context.Context, email, eventID string, req model.AppointmentRequest) error {
	err := e.update(ctx, email, eventID, req)
	e.record(OpUpdate, err)
	return err
}

func (e *Engine) update(ctx context.Context, email, eventID string, req model.AppointmentRequest) error {
	event, err := e.buildEvent(req)
	if err != nil {
		return err
	}
	if eventID == "" {
		return model.NewValidationError("eventId", "Event ID is required")
	}

	user, err := e.resolveUser(ctx, email)
	if err != nil {
		return err
	}

	if err := e.checkConflict(ctx, user.AccessToken, event.Start, event.End, eventID); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return model.NewUpstreamError("Failed to update event")
	}

	if err := e.gateway.UpdateEvent(ctx, user.AccessToken, eventID, event); err != nil {
		slog.Error("failed to update calendar event",
			slog.String("email", email),
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
		return model.NewUpstreamError("Failed to update event")
	}

	slog.Info("appointment updated",
		slog.String("email", email),
		slog.String("event_id", eventID),
		slog.Time("start", event.Start),
	)
	return nil
}

// Cancel は予定を削除する。
// 予定の所有者確認はアクセストークンの権限に委ねる。
func (e *Engine) Cancel(ctx context.Context, email, eventID string) error {
	err := e.cancel(ctx, email, eventID)
	e.record(OpCancel, err)
	return err
}

func (e *Engine) cancel(ctx context.Context, email, eventID string) error {
	if eventID == "" {
		return model.NewValidationError("eventId", "Event ID is required")
	}

	user, err := e.resolveUser(ctx, email)
	if err != nil {
		return err
	}

	if err := e.gateway.DeleteEvent(ctx, user.AccessToken, eventID); err != nil {
		slog.Error("failed to delete calendar event",
			slog.String("email", email),
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
		return model.NewUpstreamError("Failed to delete event")
	}

	slog.Info("appointment cancelled",
		slog.String("email", email),
		slog.String("event_id", eventID),
	)
	return nil
}

// resolveUser はユーザーを取得し、カレンダー操作に使えるトークンを持つことを確認する。
func (e *Engine) resolveUser(ctx context.Context, email string) (*model.User, error) {
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.HasCalendarAccess() {
		return nil, model.NewUnauthenticatedUserError()
	}
	return user, nil
}

// buildEvent はリクエストを検証し、1時間枠のカレンダーイベントに変換する。
// 名前は前後の空白のみ除いてそのままタイトルに埋め込む。
func (e *Engine) buildEvent(req model.AppointmentRequest) (model.CalendarEvent, error) {
	if err := e.validateRequest(req); err != nil {
		return model.CalendarEvent{}, err
	}

	start, err := slotStart(req, e.loc)
	if err != nil {
		return model.CalendarEvent{}, model.NewValidationError("date", "Invalid date format")
	}

	return model.CalendarEvent{
		Summary:     "Meeting with " + strings.TrimSpace(req.Name),
		Description: "Phone: " + req.Phone,
		Start:       start,
		End:         start.Add(SlotDuration),
		TimeZone:    e.loc.String(),
	}, nil
}

// checkConflict は[start, end)と重なる予定があればSlotConflictを返す。
// ignoreIDに一致する予定は対象外とする。
// 時刻が解釈できなかった予定は重なっているものとして扱う。
func (e *Engine) checkConflict(ctx context.Context, token string, start, end time.Time, ignoreID string) error {
	events, err := e.gateway.ListEvents(ctx, token, calendar.Window{Min: start, Max: end})
	if err != nil {
		slog.Error("failed to check slot availability",
			slog.String("error", err.Error()),
		)
		return err
	}

	for _, ev := range events {
		if ev.Status == statusCancelled {
			continue
		}
		if ignoreID != "" && ev.ID == ignoreID {
			continue
		}
		if ev.Start.IsZero() || ev.End.IsZero() || ev.Overlaps(start, end) {
			e.metrics.RecordSlotConflict()
			slog.Info("slot conflict detected",
				slog.String("conflicting_event_id", ev.ID),
				slog.Time("start", start),
			)
			return model.NewSlotConflictError()
		}
	}
	return nil
}

// record は操作結果をメトリクスに記録する。
func (e *Engine) record(operation string, err error) {
	e.metrics.RecordAppointment(operation, resultLabel(err))
}
