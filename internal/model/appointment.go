package model

import "time"

// AppointmentRequest は予約の作成・更新リクエストを表す。
// バリデーション後にCalendarEventへ変換され、永続化はされない。
type AppointmentRequest struct {
	Name  string `json:"name" validate:"nonblank,plaintext"`
	Phone string `json:"phone" validate:"phone"`
	Date  string `json:"date" validate:"isodate"` // YYYY-MM-DD
	Time  string `json:"time" validate:"clock"`   // HH:MM（24時間表記）
}

// CalendarEvent はカレンダープロバイダー上の予定を表す。
// IDとHTMLLinkはプロバイダーが作成時に採番する。
type CalendarEvent struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	HTMLLink    string
	Status      string
}

// Overlaps は予定が[start, end)の時間帯と重なるかを判定する。
func (e CalendarEvent) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// Booking は予約作成の結果。
type Booking struct {
	EventID string
	Link    string
	Event   CalendarEvent
}
