// Package model はドメインモデルを定義する。
package model

import "time"

// User はGoogleでログインしたユーザーを表す。
// メールアドレスを一意キーとし、最新のアクセストークンのみを保持する。
type User struct {
	Email       string
	Name        string
	AccessToken string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasCalendarAccess はカレンダー操作に使えるトークンを保持しているかを返す。
func (u *User) HasCalendarAccess() bool {
	return u != nil && u.AccessToken != ""
}
