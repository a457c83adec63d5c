// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// OAuth
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,required,notEmpty"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,required,notEmpty"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL,required,notEmpty"`

	// Session
	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Calendar
	CalendarTimezone string        `env:"CALENDAR_TIMEZONE" envDefault:"Asia/Kolkata"`
	CalendarTimeout  time.Duration `env:"CALENDAR_TIMEOUT" envDefault:"10s"`

	// Rate Limit（req/min/user）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitBooking int `env:"RATE_LIMIT_BOOKING" envDefault:"20"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8000"`
	ClientURL  string `env:"CLIENT_URL" envDefault:"http://localhost:3000"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	location *time.Location
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合やタイムゾーンが解決できない場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	loc, err := time.LoadLocation(cfg.CalendarTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CALENDAR_TIMEZONE %q: %w", cfg.CalendarTimezone, err)
	}
	cfg.location = loc

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.CalendarTimeout <= 0 {
		return nil, fmt.Errorf("CALENDAR_TIMEOUT must be positive, got %s", cfg.CalendarTimeout)
	}
	if cfg.RateLimitGeneral <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_GENERAL must be positive, got %d", cfg.RateLimitGeneral)
	}
	if cfg.RateLimitBooking <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_BOOKING must be positive, got %d", cfg.RateLimitBooking)
	}

	return cfg, nil
}

// Location は予約に使う固定タイムゾーンを返す。
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}
