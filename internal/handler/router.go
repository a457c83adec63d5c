package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookcal/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	CredentialVerifier middleware.CredentialVerifier
	CORSAllowedOrigin  string
	RateLimiter        *middleware.RateLimiter
	StatusRecorder     middleware.StatusRecorder

	// ヘルスチェックとメトリクス
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 予約
	BookingService BookingServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Metrics → Logging → SecurityHeaders → CORS
//	→ (保護ルートのみ) SessionGuard → RateLimit(General) → (予約作成のみ) RateLimit(Booking)
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	appointmentHandler := NewAppointmentHandler(deps.BookingService)
	guard := middleware.NewSessionGuard(deps.CredentialVerifier)

	// --- 認証不要のルート ---

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.With(guard).Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: SessionGuard → RateLimit(General)
	r.Route("/event", func(r chi.Router) {
		r.Use(guard)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", appointmentHandler.List)
		r.With(deps.RateLimiter.BookingMiddleware()).Post("/create", appointmentHandler.Create)
		r.Put("/update/{eventId}", appointmentHandler.Update)
		r.Delete("/delete/{eventId}", appointmentHandler.Delete)
	})

	return r
}
