// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/bookcal/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// メールアドレスをキーとするキーバリューストアとして扱う。
type UserRepository interface {
	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Upsert はユーザーを作成する。既に存在する場合は名前とアクセストークンを上書きする。
	// 後勝ちで、既存トークンとのマージは行わない。
	Upsert(ctx context.Context, user *model.User) error
}
