package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/bookcal/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT email, name, access_token, created_at, updated_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.Email, &user.Name, &user.AccessToken, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// Upsert はユーザーを作成または上書き更新する。
// created_atは初回作成時の値を維持する。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if user.Email == "" {
		return fmt.Errorf("user email is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, access_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (email) DO UPDATE
		 SET name = EXCLUDED.name,
		     access_token = EXCLUDED.access_token,
		     updated_at = EXCLUDED.updated_at`,
		user.Email, user.Name, user.AccessToken, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
